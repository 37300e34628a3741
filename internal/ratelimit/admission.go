package ratelimit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/subaru9/riot-ratelimit/pkg/logger"
	storeredis "github.com/subaru9/riot-ratelimit/pkg/redis"
)

// admissionScript implements the two-phase probe-then-commit check: it first
// verifies every counter is below its limit, and only then increments all of
// them. Phases never interleave across keys because the whole script runs
// atomically on the Redis server, which is what prevents two concurrent
// callers straddling the limit boundary from both being admitted.
//
// KEYS are the live-counter keys, one per (limit_type, window_sec).
// ARGV holds, for each KEYS[i] in order: limit_i, window_sec_i.
//
// Returns {status, n, key_1, count_1, limit_1, ttl_1, ..., key_n, count_n,
// limit_n, ttl_n}. status is 1 for allow, 0 for throttle. On throttle, n is
// always 1 and the single tuple describes the first breach found; on allow,
// n equals #KEYS and one tuple is returned per counter, so the caller can
// build a LimitEntry for every window without a second round trip.
const admissionScript = `
local n = #KEYS
for i = 1, n do
  local limit = tonumber(ARGV[2*i-1])
  local count = tonumber(redis.call('GET', KEYS[i])) or 0
  if count >= limit then
    local ttl = redis.call('TTL', KEYS[i])
    return {0, 1, KEYS[i], count, limit, ttl}
  end
end

local result = {1, n}
for i = 1, n do
  local limit = tonumber(ARGV[2*i-1])
  local window = tonumber(ARGV[2*i])
  local count = redis.call('INCR', KEYS[i])
  if count == 1 then
    redis.call('EXPIRE', KEYS[i], window)
  end
  local ttl = redis.call('TTL', KEYS[i])
  table.insert(result, KEYS[i])
  table.insert(result, count)
  table.insert(result, limit)
  table.insert(result, ttl)
end
return result
`

// Admission is the atomic check-and-increment decision engine.
type Admission interface {
	EnforceAndMaybeIncrement(ctx context.Context, entries []LimitEntry) (Decision, error)
}

type redisAdmission struct {
	client storeredis.Client
	codec  *KeyCodec
	log    *logger.Logger
}

// NewAdmission builds a Redis-backed Admission.
func NewAdmission(client storeredis.Client, codec *KeyCodec, log *logger.Logger) Admission {
	return &redisAdmission{client: client, codec: codec, log: log}
}

// EnforceAndMaybeIncrement runs the atomic script against every entry's
// live-counter key. entries must already carry WindowSec and CountLimit from
// PolicyStore.Fetch; service-scope entries must never be passed in, since
// they have no counter representation.
func (a *redisAdmission) EnforceAndMaybeIncrement(ctx context.Context, entries []LimitEntry) (Decision, error) {
	if len(entries) == 0 {
		return Decision{Allow: true}, nil
	}

	keys := make([]string, len(entries))
	args := make([]interface{}, 0, len(entries)*2)
	byKey := make(map[string]LimitEntry, len(entries))
	for i, e := range entries {
		if e.LimitType == LimitTypeService {
			return Decision{}, wrapf(ErrInvariantViolated, "admission cannot enforce a service-scope entry")
		}
		key, err := a.codec.Encode(KindLiveCounter, e)
		if err != nil {
			return Decision{}, err
		}
		keys[i] = key
		byKey[key] = e
		args = append(args, e.CountLimit, e.WindowSec)
	}

	raw, err := a.client.Eval(ctx, admissionScript, keys, args...)
	if err != nil {
		return Decision{}, wrapf(ErrStoreUnavailable, "running admission script: %v", err)
	}

	result, ok := raw.([]interface{})
	if !ok || len(result) < 2 {
		return Decision{}, wrapf(ErrStoreUnavailable, "unexpected admission script result shape: %#v", raw)
	}

	status, err := toInt64(result[0])
	if err != nil {
		return Decision{}, wrapf(ErrStoreUnavailable, "parsing admission status: %v", err)
	}
	tupleCount, err := toInt64(result[1])
	if err != nil {
		return Decision{}, wrapf(ErrStoreUnavailable, "parsing admission tuple count: %v", err)
	}
	if len(result) != 2+int(tupleCount)*4 {
		return Decision{}, wrapf(ErrStoreUnavailable, "admission script tuple count %d does not match result length %d", tupleCount, len(result))
	}

	allow := status == 1
	resultEntries := make([]LimitEntry, 0, tupleCount)
	for i := 0; i < int(tupleCount); i++ {
		offset := 2 + i*4
		key, ok := result[offset].(string)
		if !ok {
			return Decision{}, wrapf(ErrStoreUnavailable, "admission script returned non-string key")
		}
		count, err := toInt64(result[offset+1])
		if err != nil {
			return Decision{}, err
		}
		limit, err := toInt64(result[offset+2])
		if err != nil {
			return Decision{}, err
		}
		ttl, err := toInt64(result[offset+3])
		if err != nil {
			return Decision{}, err
		}

		base, found := byKey[key]
		if !found {
			return Decision{}, wrapf(ErrStoreUnavailable, "admission script referenced unknown key %q", key)
		}

		normalizedTTL := int(ttl)
		if normalizedTTL < 0 {
			// Redis TTL returns -1 for a key without an expiry and -2 for a
			// key that does not exist. 0 here means "no time left", the
			// closest honest value a SourceLive entry can carry.
			normalizedTTL = 0
		}

		entry, err := NewLimitEntry(LimitEntry{
			Routing: base.Routing, Endpoint: base.Endpoint, LimitType: base.LimitType,
			WindowSec: base.WindowSec, CountLimit: int(limit), Count: int(count),
			TTL: normalizedTTL, AdjustedTTL: absentTTL, Source: SourceLive,
		})
		if err != nil {
			return Decision{}, err
		}
		resultEntries = append(resultEntries, entry)

		if a.log != nil {
			a.log.Debug("admission decision",
				zap.Bool("allow", allow), zap.String("key", key),
				zap.Int64("count", count), zap.Int64("limit", limit), zap.Int64("ttl", ttl))
		}
	}

	return Decision{Allow: allow, Entries: resultEntries}, nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("not an integer: %#v", v)
	}
}
