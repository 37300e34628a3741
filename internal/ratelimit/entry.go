package ratelimit

import "time"

// LimitEntry is the single value type every component exchanges: a quota
// fact (policy), a live observation (counter/cooldown), or a raw header
// reading. Zero values mean "absent" except for TTL/AdjustedTTL, which use
// -1 since 0 is a legal TTL.
type LimitEntry struct {
	Routing     Routing
	Endpoint    string
	LimitType   LimitType
	WindowSec   int
	CountLimit  int
	Count       int
	RequestTime time.Time
	RetryAfter  int
	TTL         int
	AdjustedTTL int
	Source      Source
}

// absentTTL is the sentinel for "no TTL recorded", distinguishing it from a
// legitimate zero-second TTL.
const absentTTL = -1

// NewLimitEntry validates and constructs a LimitEntry. It never panics: any
// invariant violation comes back as ErrInvariantViolated, wrapped with the
// offending field, for the caller to decide whether that's fatal.
func NewLimitEntry(e LimitEntry) (LimitEntry, error) {
	if e.TTL < absentTTL {
		return LimitEntry{}, wrapf(ErrInvariantViolated, "ttl must be >= -1, got %d", e.TTL)
	}
	if e.AdjustedTTL < absentTTL {
		return LimitEntry{}, wrapf(ErrInvariantViolated, "adjusted_ttl must be >= -1, got %d", e.AdjustedTTL)
	}
	if err := validateLimitType(e.LimitType); err != nil {
		return LimitEntry{}, err
	}
	if e.WindowSec != 0 && e.WindowSec < 0 {
		return LimitEntry{}, wrapf(ErrInvariantViolated, "window_sec must be > 0 when set, got %d", e.WindowSec)
	}
	if e.CountLimit != 0 && e.CountLimit < 0 {
		return LimitEntry{}, wrapf(ErrInvariantViolated, "count_limit must be > 0 when set, got %d", e.CountLimit)
	}
	if e.Count < 0 {
		return LimitEntry{}, wrapf(ErrInvariantViolated, "count must be >= 0, got %d", e.Count)
	}
	if e.RetryAfter != 0 && e.RetryAfter < 0 {
		return LimitEntry{}, wrapf(ErrInvariantViolated, "retry_after must be > 0 when set, got %d", e.RetryAfter)
	}

	switch e.Source {
	case SourcePolicy:
		// A policy entry with no LimitType at all is the synthetic
		// blind-request marker RateLimit.Hit returns: "no policy known
		// yet" has no window or limit to report. A real policy entry always
		// names its scope, and for those window_sec/count_limit are
		// mandatory.
		if e.LimitType != "" && (e.WindowSec == 0 || e.CountLimit == 0) {
			return LimitEntry{}, wrapf(ErrInvariantViolated, "policy entry requires window_sec and count_limit")
		}
		if e.LimitType == LimitTypeService {
			return LimitEntry{}, wrapf(ErrInvariantViolated, "policy entries cannot carry service scope")
		}
	case SourceLive:
		if e.CountLimit == 0 || e.TTL == absentTTL {
			return LimitEntry{}, wrapf(ErrInvariantViolated, "live entry requires count_limit and ttl")
		}
	case SourceCooldown:
		if e.LimitType == LimitTypeMethod && e.Endpoint == "" {
			return LimitEntry{}, wrapf(ErrInvariantViolated, "method-scope cooldown entry requires an endpoint")
		}
	case SourceHeaders, "":
		// headers entries are validated field-by-field above; no additional
		// cross-field constraint applies before they're routed to a store.
	default:
		return LimitEntry{}, wrapf(ErrInvariantViolated, "unknown source %q", e.Source)
	}

	return e, nil
}

func validateLimitType(lt LimitType) error {
	switch lt {
	case LimitTypeApplication, LimitTypeMethod, LimitTypeService, "":
		return nil
	default:
		return wrapf(ErrInvariantViolated, "unknown limit type %q", lt)
	}
}

// WithCount returns a copy of e with Count replaced, re-validating
// invariants.
func (e LimitEntry) WithCount(count int) (LimitEntry, error) {
	e.Count = count
	return NewLimitEntry(e)
}

// WithTTL returns a copy of e with TTL replaced, re-validating invariants.
func (e LimitEntry) WithTTL(ttl int) (LimitEntry, error) {
	e.TTL = ttl
	return NewLimitEntry(e)
}
