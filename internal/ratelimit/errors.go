package ratelimit

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Check with errors.Is; diagnostic context is attached
// via %w wrapping, never by inventing a new type per call site.
var (
	// ErrHeaderMalformed means an upstream response header violated the
	// grammar HeaderParser expects. Always surfaced to the caller.
	ErrHeaderMalformed = errors.New("ratelimit: header malformed")

	// ErrPolicyNotFound means PolicyStore.Fetch was called before the policy
	// was bootstrapped. Hit never triggers this directly since it gates
	// Fetch behind Known; it surfaces only to callers that bypass that gate.
	ErrPolicyNotFound = errors.New("ratelimit: policy not found")

	// ErrTTLInvalid means a computed cooldown TTL was non-positive or
	// exceeded the configured cap. CooldownStore.MaybeSet returns it after
	// logging; RateLimit.Refresh swallows it, since a rejected cooldown is
	// benign.
	ErrTTLInvalid = errors.New("ratelimit: cooldown ttl invalid")

	// ErrStoreUnavailable wraps any transport-level failure talking to the
	// backing store, including a context deadline.
	ErrStoreUnavailable = errors.New("ratelimit: store unavailable")

	// ErrInvariantViolated means a LimitEntry constructor or updater
	// rejected its input. This is a programmer or protocol bug, never
	// recovered from inside the core.
	ErrInvariantViolated = errors.New("ratelimit: invariant violated")
)

func wrapf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{sentinel}, args...)...)
}
