package ratelimit

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/subaru9/riot-ratelimit/pkg/logger"
	storeredis "github.com/subaru9/riot-ratelimit/pkg/redis"
)

// PolicyStore bootstraps, reads and writes the quota policy (window set and
// per-window limit) for a (routing, endpoint) pair.
type PolicyStore interface {
	Known(ctx context.Context, routing Routing, endpoint string) (bool, error)
	Fetch(ctx context.Context, routing Routing, endpoint string) ([]LimitEntry, error)
	Set(ctx context.Context, headers http.Header, routing Routing, endpoint string) error
}

type redisPolicyStore struct {
	client storeredis.Client
	codec  *KeyCodec
	parser *HeaderParser
	log    *logger.Logger
}

// NewPolicyStore builds a Redis-backed PolicyStore.
func NewPolicyStore(client storeredis.Client, codec *KeyCodec, parser *HeaderParser, log *logger.Logger) PolicyStore {
	return &redisPolicyStore{client: client, codec: codec, parser: parser, log: log}
}

func (s *redisPolicyStore) Known(ctx context.Context, routing Routing, endpoint string) (bool, error) {
	appKey, err := s.codec.Encode(KindPolicyWindows, LimitEntry{Routing: routing, Endpoint: endpoint, LimitType: LimitTypeApplication})
	if err != nil {
		return false, err
	}
	methodKey, err := s.codec.Encode(KindPolicyWindows, LimitEntry{Routing: routing, Endpoint: endpoint, LimitType: LimitTypeMethod})
	if err != nil {
		return false, err
	}
	exists, err := s.client.Exists(ctx, appKey, methodKey)
	if err != nil {
		return false, wrapf(ErrStoreUnavailable, "checking policy existence: %v", err)
	}
	return exists, nil
}

func (s *redisPolicyStore) Fetch(ctx context.Context, routing Routing, endpoint string) ([]LimitEntry, error) {
	var entries []LimitEntry
	for _, lt := range []LimitType{LimitTypeApplication, LimitTypeMethod} {
		windowsKey, err := s.codec.Encode(KindPolicyWindows, LimitEntry{Routing: routing, Endpoint: endpoint, LimitType: lt})
		if err != nil {
			return nil, err
		}
		windowsRaw, err := s.client.Get(ctx, windowsKey)
		if err != nil {
			if err == storeredis.ErrNil {
				continue
			}
			return nil, wrapf(ErrStoreUnavailable, "fetching policy windows: %v", err)
		}
		for _, w := range strings.Split(windowsRaw, ",") {
			window, werr := strconv.Atoi(strings.TrimSpace(w))
			if werr != nil {
				continue
			}
			limitKey, err := s.codec.Encode(KindPolicyLimit, LimitEntry{Routing: routing, Endpoint: endpoint, LimitType: lt, WindowSec: window})
			if err != nil {
				return nil, err
			}
			limitRaw, err := s.client.Get(ctx, limitKey)
			if err != nil {
				return nil, wrapf(ErrPolicyNotFound, "missing policy limit for window %d: %v", window, err)
			}
			limit, lerr := strconv.Atoi(limitRaw)
			if lerr != nil {
				return nil, wrapf(ErrInvariantViolated, "non-integer stored limit %q: %v", limitRaw, lerr)
			}
			e, err := NewLimitEntry(LimitEntry{
				Routing: routing, Endpoint: endpoint, LimitType: lt,
				WindowSec: window, CountLimit: limit, Source: SourcePolicy,
				TTL: absentTTL, AdjustedTTL: absentTTL,
			})
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return nil, wrapf(ErrPolicyNotFound, "no policy for routing=%s endpoint=%s", routing, endpoint)
	}
	return entries, nil
}

// Set parses headers and writes the policy-windows and policy-limit keys for
// every scope observed, as a single atomic pipeline so a partial write is
// never visible to a concurrent Fetch.
func (s *redisPolicyStore) Set(ctx context.Context, headers http.Header, routing Routing, endpoint string) error {
	entries, err := s.parser.Parse(headers, routing, endpoint)
	if err != nil {
		return err
	}

	byType := map[LimitType][]LimitEntry{}
	for _, e := range entries {
		byType[e.LimitType] = append(byType[e.LimitType], e)
	}

	pipe := s.client.Pipeline()
	for lt, es := range byType {
		// Stable window order keeps the stored windows list (and therefore
		// Fetch's entry order) deterministic across bootstraps.
		sort.Slice(es, func(i, j int) bool { return es[i].WindowSec < es[j].WindowSec })
		windows := make([]string, 0, len(es))
		for _, e := range es {
			windows = append(windows, strconv.Itoa(e.WindowSec))
		}
		windowsKey, err := s.codec.Encode(KindPolicyWindows, LimitEntry{Routing: routing, Endpoint: endpoint, LimitType: lt})
		if err != nil {
			return err
		}
		pipe.Set(ctx, windowsKey, strings.Join(windows, ","), 0)
		for _, e := range es {
			limitKey, err := s.codec.Encode(KindPolicyLimit, e)
			if err != nil {
				return err
			}
			pipe.Set(ctx, limitKey, strconv.Itoa(e.CountLimit), 0)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return wrapf(ErrStoreUnavailable, "writing policy: %v", err)
	}

	if s.log != nil {
		s.log.Debug("policy written", zap.String("routing", string(routing)), zap.String("endpoint", endpoint), zap.Int("scopes", len(byType)))
	}
	return nil
}
