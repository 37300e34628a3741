package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/subaru9/riot-ratelimit/pkg/logger"
)

const (
	headerDate                 = "Date"
	headerRetryAfter           = "Retry-After"
	headerRateLimitType        = "X-Rate-Limit-Type"
	headerAppRateLimit         = "X-App-Rate-Limit"
	headerAppRateLimitCount    = "X-App-Rate-Limit-Count"
	headerMethodRateLimit      = "X-Method-Rate-Limit"
	headerMethodRateLimitCount = "X-Method-Rate-Limit-Count"
)

// HeaderParser extracts LimitEntries and cooldown directives from upstream
// response headers.
type HeaderParser struct {
	log *logger.Logger
}

// NewHeaderParser builds a HeaderParser. log may be nil for a quiet parser
// suitable for unit tests.
func NewHeaderParser(log *logger.Logger) *HeaderParser {
	return &HeaderParser{log: log}
}

// Parse emits one LimitEntry per (limit_type, window_sec) pair declared by
// the app- and method-scope headers. Returns ErrHeaderMalformed when
// neither limit header is present at all or when a present header value
// does not follow the LIMIT:WINDOW grammar; a missing count header for an
// otherwise-present limit header degrades to a logged warning and a count
// of 0, not a hard failure.
func (p *HeaderParser) Parse(headers http.Header, routing Routing, endpoint string) ([]LimitEntry, error) {
	appLimit := headers.Get(headerAppRateLimit)
	methodLimit := headers.Get(headerMethodRateLimit)

	if appLimit == "" && methodLimit == "" {
		p.logError("both app and method rate-limit headers absent", routing, endpoint)
		return nil, wrapf(ErrHeaderMalformed, "neither %s nor %s present", headerAppRateLimit, headerMethodRateLimit)
	}

	var entries []LimitEntry

	if appLimit != "" {
		es, err := p.parseScope(LimitTypeApplication, appLimit, headers.Get(headerAppRateLimitCount), routing, endpoint)
		if err != nil {
			return nil, err
		}
		entries = append(entries, es...)
	}
	if methodLimit != "" {
		es, err := p.parseScope(LimitTypeMethod, methodLimit, headers.Get(headerMethodRateLimitCount), routing, endpoint)
		if err != nil {
			return nil, err
		}
		entries = append(entries, es...)
	}

	return entries, nil
}

func (p *HeaderParser) parseScope(lt LimitType, limitHeader, countHeader string, routing Routing, endpoint string) ([]LimitEntry, error) {
	limits, err := parsePairs(limitHeader)
	if err != nil {
		return nil, wrapf(ErrHeaderMalformed, "%s: %v", limitHeader, err)
	}

	var counts map[int]int
	if countHeader == "" {
		p.logWarn("count header absent for present limit header, defaulting counts to 0", routing, endpoint, string(lt))
		counts = map[int]int{}
	} else {
		pairs, err := parsePairs(countHeader)
		if err != nil {
			return nil, wrapf(ErrHeaderMalformed, "%s: %v", countHeader, err)
		}
		counts = make(map[int]int, len(pairs))
		for window, count := range pairs {
			counts[window] = count
		}
	}

	entries := make([]LimitEntry, 0, len(limits))
	for window, limit := range limits {
		count := counts[window]
		e, err := NewLimitEntry(LimitEntry{
			Routing:     routing,
			Endpoint:    endpoint,
			LimitType:   lt,
			WindowSec:   window,
			CountLimit:  limit,
			Count:       count,
			Source:      SourceHeaders,
			TTL:         absentTTL,
			AdjustedTTL: absentTTL,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// hasLimitDeclarations reports whether the response declared any quota at
// all. Parse fails on headers without one; callers that can legitimately
// receive quota-free responses (a bare 429) check this first.
func hasLimitDeclarations(headers http.Header) bool {
	return headers.Get(headerAppRateLimit) != "" || headers.Get(headerMethodRateLimit) != ""
}

// parsePairs parses "LIMIT:WINDOW,LIMIT:WINDOW,..." into window -> limit.
func parsePairs(raw string) (map[int]int, error) {
	result := map[int]int{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		halves := strings.SplitN(pair, ":", 2)
		if len(halves) != 2 {
			return nil, wrapf(ErrHeaderMalformed, "malformed pair %q", pair)
		}
		limit, err := strconv.Atoi(strings.TrimSpace(halves[0]))
		if err != nil {
			return nil, wrapf(ErrHeaderMalformed, "non-integer limit in %q: %v", pair, err)
		}
		window, err := strconv.Atoi(strings.TrimSpace(halves[1]))
		if err != nil {
			return nil, wrapf(ErrHeaderMalformed, "non-integer window in %q: %v", pair, err)
		}
		result[window] = limit
	}
	return result, nil
}

// ExtractCooldown builds a single LimitEntry describing a server-imposed
// back-off, filling defaults for any directive header the upstream omitted.
func (p *HeaderParser) ExtractCooldown(headers http.Header, routing Routing, endpoint string, now time.Time, maxTTL int) (LimitEntry, error) {
	retryAfterRaw := headers.Get(headerRetryAfter)
	if retryAfterRaw == "" {
		retryAfterRaw = strconv.Itoa(maxTTL)
	}
	retryAfter, err := strconv.Atoi(strings.TrimSpace(retryAfterRaw))
	if err != nil {
		return LimitEntry{}, wrapf(ErrHeaderMalformed, "non-integer %s: %v", headerRetryAfter, err)
	}

	ltRaw := headers.Get(headerRateLimitType)
	if ltRaw == "" {
		ltRaw = string(LimitTypeService)
	}
	lt, err := ParseLimitType(ltRaw)
	if err != nil {
		return LimitEntry{}, err
	}

	requestTime := now
	if dateRaw := headers.Get(headerDate); dateRaw != "" {
		parsed, err := time.Parse(time.RFC1123, dateRaw)
		if err != nil {
			return LimitEntry{}, wrapf(ErrHeaderMalformed, "non-RFC1123 %s: %v", headerDate, err)
		}
		requestTime = parsed
	}

	ep := endpoint
	if lt != LimitTypeMethod {
		ep = ""
	}

	return NewLimitEntry(LimitEntry{
		Routing:     routing,
		Endpoint:    ep,
		LimitType:   lt,
		RequestTime: requestTime,
		RetryAfter:  retryAfter,
		Source:      SourceHeaders,
		TTL:         absentTTL,
		AdjustedTTL: absentTTL,
	})
}

func (p *HeaderParser) logError(msg string, routing Routing, endpoint string) {
	if p.log == nil {
		return
	}
	p.log.Error(msg, zap.String("routing", string(routing)), zap.String("endpoint", endpoint))
}

func (p *HeaderParser) logWarn(msg string, routing Routing, endpoint string, limitType string) {
	if p.log == nil {
		return
	}
	p.log.Warn(msg, zap.String("routing", string(routing)), zap.String("endpoint", endpoint), zap.String("limit_type", limitType))
}
