package ratelimit

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/subaru9/riot-ratelimit/pkg/logger"
	storeredis "github.com/subaru9/riot-ratelimit/pkg/redis"
)

// CooldownStore persists and queries server-imposed back-off periods.
type CooldownStore interface {
	// MaybeSet installs a cooldown key if the headers direct one and the
	// computed TTL is sane. installed reports whether a key was actually
	// written, so a caller can fire an analytics event only when something
	// changed. An out-of-range TTL comes back as ErrTTLInvalid, which the
	// façade treats as benign.
	MaybeSet(ctx context.Context, headers http.Header, routing Routing, endpoint string, now time.Time, maxTTL int) (installed bool, err error)
	Status(ctx context.Context, routing Routing, endpoint string) (Decision, error)
}

type redisCooldownStore struct {
	client storeredis.Client
	codec  *KeyCodec
	parser *HeaderParser
	log    *logger.Logger
}

// NewCooldownStore builds a Redis-backed CooldownStore.
func NewCooldownStore(client storeredis.Client, codec *KeyCodec, parser *HeaderParser, log *logger.Logger) CooldownStore {
	return &redisCooldownStore{client: client, codec: codec, parser: parser, log: log}
}

// MaybeSet installs a cooldown key if, and only if, the headers carry a
// complete back-off directive and the clock-skew-corrected TTL is sane.
func (s *redisCooldownStore) MaybeSet(ctx context.Context, headers http.Header, routing Routing, endpoint string, now time.Time, maxTTL int) (bool, error) {
	if headers.Get(headerRetryAfter) == "" || headers.Get(headerRateLimitType) == "" || headers.Get(headerDate) == "" {
		return false, nil
	}

	entry, err := s.parser.ExtractCooldown(headers, routing, endpoint, now, maxTTL)
	if err != nil {
		return false, err
	}

	adjustedTTL := int(entry.RequestTime.Add(time.Duration(entry.RetryAfter) * time.Second).Sub(now).Seconds())
	if adjustedTTL <= 0 || adjustedTTL > maxTTL {
		if s.log != nil {
			s.log.Warn("computed cooldown ttl out of range, not installing",
				zap.Int("adjusted_ttl", adjustedTTL), zap.Int("max_ttl", maxTTL),
				zap.String("routing", string(routing)), zap.String("endpoint", endpoint))
		}
		return false, wrapf(ErrTTLInvalid, "adjusted ttl %d outside (0, %d]", adjustedTTL, maxTTL)
	}

	entry, err = entry.WithTTL(adjustedTTL)
	if err != nil {
		return false, err
	}
	entry.AdjustedTTL = adjustedTTL

	key, err := s.codec.Encode(KindCooldown, entry)
	if err != nil {
		return false, err
	}
	ttl := time.Duration(adjustedTTL) * time.Second
	if err := s.client.Set(ctx, key, adjustedTTL, ttl); err != nil {
		return false, wrapf(ErrStoreUnavailable, "setting cooldown: %v", err)
	}
	return true, nil
}

// Status reports whether (routing, endpoint) is currently throttled by a
// cooldown. When more than one variant (application/service/method) is
// simultaneously active, the one with the largest remaining TTL dominates.
func (s *redisCooldownStore) Status(ctx context.Context, routing Routing, endpoint string) (Decision, error) {
	candidates := []LimitEntry{
		{Routing: routing, LimitType: LimitTypeApplication},
		{Routing: routing, LimitType: LimitTypeService},
	}
	if endpoint != "" {
		candidates = append(candidates, LimitEntry{Routing: routing, Endpoint: endpoint, LimitType: LimitTypeMethod})
	}

	pipe := s.client.Pipeline()
	ttlCmds := make([]storeredis.DurationCmd, len(candidates))
	keys := make([]string, len(candidates))
	for i, c := range candidates {
		key, err := s.codec.Encode(KindCooldown, c)
		if err != nil {
			return Decision{}, err
		}
		keys[i] = key
		ttlCmds[i] = pipe.TTL(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, wrapf(ErrStoreUnavailable, "checking cooldown status: %v", err)
	}

	best := -1
	bestTTL := time.Duration(0)
	for i, cmd := range ttlCmds {
		ttl, err := cmd.Result()
		if err != nil {
			continue
		}
		if ttl > 0 && ttl > bestTTL {
			bestTTL = ttl
			best = i
		}
	}

	if best == -1 {
		e, err := NewLimitEntry(LimitEntry{Routing: routing, Endpoint: endpoint, Source: SourceCooldown, TTL: absentTTL, AdjustedTTL: absentTTL})
		if err != nil {
			return Decision{}, err
		}
		return Decision{Allow: true, Entries: []LimitEntry{e}}, nil
	}

	winner := candidates[best]
	e, err := NewLimitEntry(LimitEntry{
		Routing: winner.Routing, Endpoint: winner.Endpoint, LimitType: winner.LimitType,
		TTL: int(bestTTL.Seconds()), AdjustedTTL: int(bestTTL.Seconds()), Source: SourceCooldown,
	})
	if err != nil {
		return Decision{}, err
	}
	return Decision{Allow: false, Entries: []LimitEntry{e}}, nil
}
