package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	storeredis "github.com/subaru9/riot-ratelimit/pkg/redis"
)

// fakeRedis is an in-memory stand-in for pkg/redis.Client, used by every
// unit test in this package so none of them need a live Redis. It has its
// own logical clock (advanced explicitly via advance) instead of
// time.Now(), so TTL-sensitive scenarios (S2, S3, S5) are deterministic.
//
// Eval only understands the single admission script this codebase ever
// sends; it reimplements the two-phase probe-then-commit semantics in Go
// rather than interpreting Lua, since that script is the only one the
// admission engine issues.
type fakeRedis struct {
	mu       sync.Mutex
	values   map[string]string
	expireAt map[string]time.Time
	now      time.Time
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		values:   map[string]string{},
		expireAt: map[string]time.Time{},
		now:      time.Date(2025, 4, 1, 18, 0, 0, 0, time.UTC),
	}
}

func (f *fakeRedis) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fakeRedis) expired(key string) bool {
	deadline, ok := f.expireAt[key]
	if !ok {
		return false
	}
	if !f.now.Before(deadline) {
		delete(f.values, key)
		delete(f.expireAt, key)
		return true
	}
	return false
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expired(key) {
		return "", storeredis.ErrNil
	}
	v, ok := f.values[key]
	if !ok {
		return "", storeredis.ErrNil
	}
	return v, nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = toString(value)
	if expiration > 0 {
		f.expireAt[key] = f.now.Add(expiration)
	} else {
		delete(f.expireAt, key)
	}
	return nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values, k)
		delete(f.expireAt, k)
	}
	return nil
}

func (f *fakeRedis) Exists(_ context.Context, keys ...string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		if f.expired(k) {
			return false, nil
		}
		if _, ok := f.values[k]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (f *fakeRedis) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired(key)
	n := parseIntOrZero(f.values[key]) + 1
	f.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (f *fakeRedis) HGet(context.Context, string, string) (string, error) { return "", storeredis.ErrNil }
func (f *fakeRedis) HSet(context.Context, string, ...interface{}) error   { return nil }
func (f *fakeRedis) HGetAll(context.Context, string) (map[string]string, error) {
	return map[string]string{}, nil
}
func (f *fakeRedis) HDel(context.Context, string, ...string) error { return nil }

func (f *fakeRedis) Expire(_ context.Context, key string, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; !ok {
		return nil
	}
	f.expireAt[key] = f.now.Add(expiration)
	return nil
}

func (f *fakeRedis) TTL(_ context.Context, key string) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expired(key) {
		return -2 * time.Second, nil
	}
	if _, ok := f.values[key]; !ok {
		return -2 * time.Second, nil
	}
	deadline, ok := f.expireAt[key]
	if !ok {
		return -1 * time.Second, nil
	}
	return deadline.Sub(f.now), nil
}

// Eval runs the admission engine's probe-then-commit algorithm directly in
// Go. keys are live-counter keys; args alternate (limit, window) per key, in
// the same order admission.go builds them.
func (f *fakeRedis) Eval(_ context.Context, _ string, keys []string, args ...interface{}) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(keys)
	limits := make([]int64, n)
	windows := make([]int64, n)
	for i := 0; i < n; i++ {
		limits[i] = toI64(args[2*i])
		windows[i] = toI64(args[2*i+1])
	}

	for i, key := range keys {
		f.expired(key)
		count := parseIntOrZero(f.values[key])
		if count >= limits[i] {
			ttl := f.ttlLocked(key)
			return []interface{}{int64(0), int64(1), key, count, limits[i], ttl}, nil
		}
	}

	result := []interface{}{int64(1), int64(n)}
	for i, key := range keys {
		f.expired(key)
		count := parseIntOrZero(f.values[key]) + 1
		f.values[key] = strconv.FormatInt(count, 10)
		if count == 1 {
			f.expireAt[key] = f.now.Add(time.Duration(windows[i]) * time.Second)
		}
		ttl := f.ttlLocked(key)
		result = append(result, key, count, limits[i], ttl)
	}
	return result, nil
}

func (f *fakeRedis) ttlLocked(key string) int64 {
	deadline, ok := f.expireAt[key]
	if !ok {
		return -1
	}
	remaining := deadline.Sub(f.now)
	if remaining <= 0 {
		return -2
	}
	return int64(remaining.Seconds())
}

func (f *fakeRedis) EvalSha(context.Context, string, []string, ...interface{}) (interface{}, error) {
	return nil, storeredis.ErrNil
}
func (f *fakeRedis) ScriptLoad(context.Context, string) (string, error) { return "", nil }

func (f *fakeRedis) Pipeline() storeredis.Pipeline { return &fakePipeline{f: f} }
func (f *fakeRedis) Close() error                  { return nil }
func (f *fakeRedis) Ping(context.Context) error    { return nil }

// fakePipeline executes every queued command eagerly against the same
// fakeRedis, since the fake has no network round trip to batch away. Exec
// just collects the already-computed results.
type fakePipeline struct {
	f    *fakeRedis
	cmds []storeredis.Cmder
}

type fakeCmd struct {
	name string
	err  error
	str  string
	i64  int64
	b    bool
	m    map[string]string
	dur  time.Duration
}

func (c *fakeCmd) Name() string             { return c.name }
func (c *fakeCmd) Args() []interface{}      { return nil }
func (c *fakeCmd) Err() error               { return c.err }
func (c *fakeCmd) String() string           { return c.name }
func (c *fakeCmd) Result() (string, error)  { return c.str, c.err }

type fakeIntCmd struct{ fakeCmd }

func (c *fakeIntCmd) Result() (int64, error) { return c.i64, c.err }

type fakeBoolCmd struct{ fakeCmd }

func (c *fakeBoolCmd) Result() (bool, error) { return c.b, c.err }

type fakeMapCmd struct{ fakeCmd }

func (c *fakeMapCmd) Result() (map[string]string, error) { return c.m, c.err }

type fakeDurationCmd struct{ fakeCmd }

func (c *fakeDurationCmd) Result() (time.Duration, error) { return c.dur, c.err }

func (p *fakePipeline) Get(ctx context.Context, key string) storeredis.StringCmd {
	v, err := p.f.Get(ctx, key)
	cmd := &fakeCmd{name: "get", str: v, err: err}
	p.cmds = append(p.cmds, cmd)
	return cmd
}

func (p *fakePipeline) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) storeredis.StatusCmd {
	err := p.f.Set(ctx, key, value, expiration)
	cmd := &fakeCmd{name: "set", err: err}
	p.cmds = append(p.cmds, cmd)
	return cmd
}

func (p *fakePipeline) Del(ctx context.Context, keys ...string) storeredis.IntCmd {
	err := p.f.Del(ctx, keys...)
	cmd := &fakeIntCmd{fakeCmd{name: "del", err: err}}
	p.cmds = append(p.cmds, cmd)
	return cmd
}

func (p *fakePipeline) Exists(ctx context.Context, keys ...string) storeredis.IntCmd {
	ok, err := p.f.Exists(ctx, keys...)
	var n int64
	if ok {
		n = 1
	}
	cmd := &fakeIntCmd{fakeCmd{name: "exists", i64: n, err: err}}
	p.cmds = append(p.cmds, cmd)
	return cmd
}

func (p *fakePipeline) Incr(ctx context.Context, key string) storeredis.IntCmd {
	n, err := p.f.Incr(ctx, key)
	cmd := &fakeIntCmd{fakeCmd{name: "incr", i64: n, err: err}}
	p.cmds = append(p.cmds, cmd)
	return cmd
}

func (p *fakePipeline) HGet(ctx context.Context, key, field string) storeredis.StringCmd {
	v, err := p.f.HGet(ctx, key, field)
	cmd := &fakeCmd{name: "hget", str: v, err: err}
	p.cmds = append(p.cmds, cmd)
	return cmd
}

func (p *fakePipeline) HSet(ctx context.Context, key string, values ...interface{}) storeredis.IntCmd {
	err := p.f.HSet(ctx, key, values...)
	cmd := &fakeIntCmd{fakeCmd{name: "hset", err: err}}
	p.cmds = append(p.cmds, cmd)
	return cmd
}

func (p *fakePipeline) HGetAll(ctx context.Context, key string) storeredis.StringStringMapCmd {
	m, err := p.f.HGetAll(ctx, key)
	cmd := &fakeMapCmd{fakeCmd{name: "hgetall", err: err, m: m}}
	p.cmds = append(p.cmds, cmd)
	return cmd
}

func (p *fakePipeline) HDel(ctx context.Context, key string, fields ...string) storeredis.IntCmd {
	err := p.f.HDel(ctx, key, fields...)
	cmd := &fakeIntCmd{fakeCmd{name: "hdel", err: err}}
	p.cmds = append(p.cmds, cmd)
	return cmd
}

func (p *fakePipeline) Expire(ctx context.Context, key string, expiration time.Duration) storeredis.BoolCmd {
	err := p.f.Expire(ctx, key, expiration)
	cmd := &fakeBoolCmd{fakeCmd{name: "expire", b: err == nil, err: err}}
	p.cmds = append(p.cmds, cmd)
	return cmd
}

func (p *fakePipeline) TTL(ctx context.Context, key string) storeredis.DurationCmd {
	d, err := p.f.TTL(ctx, key)
	cmd := &fakeDurationCmd{fakeCmd{name: "ttl", dur: d, err: err}}
	p.cmds = append(p.cmds, cmd)
	return cmd
}

func (p *fakePipeline) Exec(context.Context) ([]storeredis.Cmder, error) {
	return p.cmds, nil
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

func toI64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	default:
		return 0
	}
}

func parseIntOrZero(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

var _ storeredis.Client = (*fakeRedis)(nil)
