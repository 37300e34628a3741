package ratelimit

// Routing identifies the upstream regional host a request targets (e.g.
// "euw1", "americas"). It namespaces every counter and policy key.
type Routing string

// LimitType identifies which of the three quota scopes a LimitEntry belongs
// to. Only application and method scopes carry a counter; service is only
// ever observed through a cooldown directive.
type LimitType string

const (
	LimitTypeApplication LimitType = "application"
	LimitTypeMethod      LimitType = "method"
	LimitTypeService     LimitType = "service"
)

// ParseLimitType validates a raw limit-type token from an upstream header or
// a decoded store key.
func ParseLimitType(s string) (LimitType, error) {
	switch LimitType(s) {
	case LimitTypeApplication, LimitTypeMethod, LimitTypeService:
		return LimitType(s), nil
	default:
		return "", wrapf(ErrHeaderMalformed, "unknown limit type %q", s)
	}
}

// Source records where a LimitEntry came from, which determines which of its
// fields are meaningful.
type Source string

const (
	SourceHeaders  Source = "headers"
	SourcePolicy   Source = "policy"
	SourceLive     Source = "live"
	SourceCooldown Source = "cooldown"
)

// KeyKind identifies which store-key template a LimitEntry maps to.
type KeyKind string

const (
	KindPolicyWindows        KeyKind = "policy_windows"
	KindPolicyLimit          KeyKind = "policy_limit"
	KindLiveCounter          KeyKind = "live_counter"
	KindAuthoritativeCounter KeyKind = "authoritative_counter"
	KindCooldown             KeyKind = "cooldown"
)

// Decision is the outcome of Hit or Refresh: whether the caller may proceed,
// plus the entries that informed the decision (useful for logging/metrics
// and for tests asserting on exact scenario values).
type Decision struct {
	Allow   bool
	Entries []LimitEntry
}
