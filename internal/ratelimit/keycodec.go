package ratelimit

import (
	"strconv"
	"strings"
)

// KeyCodec maps LimitEntry values to the flat string keys the store indexes
// on, and back. Encode/Decode must be exact inverses of each other for every
// (kind, entry) pair Encode accepts.
type KeyCodec struct {
	PolicyPrefix   string
	LivePrefix     string
	CooldownPrefix string
}

// NewKeyCodec builds a codec using the namespace roots from configuration,
// falling back to the defaults from the key grammar when a prefix is empty.
func NewKeyCodec(policyPrefix, livePrefix, cooldownPrefix string) *KeyCodec {
	if policyPrefix == "" {
		policyPrefix = "riot"
	}
	if livePrefix == "" {
		livePrefix = "lol_api"
	}
	if cooldownPrefix == "" {
		cooldownPrefix = "lol_api"
	}
	return &KeyCodec{PolicyPrefix: policyPrefix, LivePrefix: livePrefix, CooldownPrefix: cooldownPrefix}
}

const keyVersion = "v1"

// Encode renders entry as a store key of the given kind.
func (c *KeyCodec) Encode(kind KeyKind, e LimitEntry) (string, error) {
	switch kind {
	case KindPolicyWindows:
		return strings.Join([]string{c.PolicyPrefix, keyVersion, "policy", string(e.Routing), e.Endpoint, string(e.LimitType), "windows"}, ":"), nil
	case KindPolicyLimit:
		return strings.Join([]string{c.PolicyPrefix, keyVersion, "policy", string(e.Routing), e.Endpoint, string(e.LimitType), "window", strconv.Itoa(e.WindowSec), "limit"}, ":"), nil
	case KindLiveCounter:
		return strings.Join([]string{c.LivePrefix, keyVersion, "live", string(e.Routing), e.Endpoint, string(e.LimitType), "window", strconv.Itoa(e.WindowSec)}, ":"), nil
	case KindAuthoritativeCounter:
		return strings.Join([]string{c.PolicyPrefix, keyVersion, "authoritative", string(e.Routing), e.Endpoint, string(e.LimitType), "window", strconv.Itoa(e.WindowSec)}, ":"), nil
	case KindCooldown:
		segs := []string{c.CooldownPrefix, keyVersion, "cooldown", string(e.Routing)}
		if e.LimitType == LimitTypeMethod {
			segs = append(segs, e.Endpoint)
		}
		segs = append(segs, string(e.LimitType))
		return strings.Join(segs, ":"), nil
	default:
		return "", wrapf(ErrInvariantViolated, "unknown key kind %q", kind)
	}
}

// Decode parses a store key back into a LimitEntry plus the kind it matched.
// Cooldown templates are tried first: a cooldown key for application/service
// scope has fewer segments than a policy/live key, and trying the looser
// templates first would misparse it as a policy key with an empty window.
func (c *KeyCodec) Decode(key string) (LimitEntry, KeyKind, error) {
	parts := strings.Split(key, ":")
	if len(parts) < 4 {
		return LimitEntry{}, "", wrapf(ErrInvariantViolated, "key %q too short to decode", key)
	}
	prefix, version, mode := parts[0], parts[1], parts[2]
	if version != keyVersion {
		return LimitEntry{}, "", wrapf(ErrInvariantViolated, "key %q has unknown version %q", key, version)
	}

	if mode == "cooldown" {
		return c.decodeCooldown(prefix, parts[3:], key)
	}

	switch mode {
	case "policy":
		return c.decodePolicy(parts[3:], key)
	case "live":
		return c.decodeLive(parts[3:], key)
	case "authoritative":
		return c.decodeAuthoritative(parts[3:], key)
	default:
		return LimitEntry{}, "", wrapf(ErrInvariantViolated, "key %q has unknown mode %q", key, mode)
	}
}

func (c *KeyCodec) decodeCooldown(prefix string, rest []string, key string) (LimitEntry, KeyKind, error) {
	// rest is either [routing, limit_type] or [routing, endpoint, limit_type]
	var routing, endpoint, limitType string
	switch len(rest) {
	case 2:
		routing, limitType = rest[0], rest[1]
	case 3:
		routing, endpoint, limitType = rest[0], rest[1], rest[2]
	default:
		return LimitEntry{}, "", wrapf(ErrInvariantViolated, "cooldown key %q has unexpected shape", key)
	}
	lt, err := ParseLimitType(limitType)
	if err != nil {
		return LimitEntry{}, "", err
	}
	e, err := NewLimitEntry(LimitEntry{Routing: Routing(routing), Endpoint: endpoint, LimitType: lt, Source: SourceCooldown, TTL: absentTTL, AdjustedTTL: absentTTL})
	return e, KindCooldown, err
}

func (c *KeyCodec) decodePolicy(rest []string, key string) (LimitEntry, KeyKind, error) {
	if len(rest) == 4 && rest[3] == "windows" {
		lt, err := ParseLimitType(rest[2])
		if err != nil {
			return LimitEntry{}, "", err
		}
		e, err := NewLimitEntry(LimitEntry{Routing: Routing(rest[0]), Endpoint: rest[1], LimitType: lt, Source: SourceHeaders, TTL: absentTTL, AdjustedTTL: absentTTL})
		return e, KindPolicyWindows, err
	}
	if len(rest) == 6 && rest[3] == "window" && rest[5] == "limit" {
		lt, err := ParseLimitType(rest[2])
		if err != nil {
			return LimitEntry{}, "", err
		}
		window, werr := strconv.Atoi(rest[4])
		if werr != nil {
			return LimitEntry{}, "", wrapf(ErrInvariantViolated, "key %q has non-integer window: %v", key, werr)
		}
		e, err := NewLimitEntry(LimitEntry{Routing: Routing(rest[0]), Endpoint: rest[1], LimitType: lt, WindowSec: window, Source: SourceHeaders, TTL: absentTTL, AdjustedTTL: absentTTL})
		return e, KindPolicyLimit, err
	}
	return LimitEntry{}, "", wrapf(ErrInvariantViolated, "policy key %q has unexpected shape", key)
}

func (c *KeyCodec) decodeLive(rest []string, key string) (LimitEntry, KeyKind, error) {
	if len(rest) != 5 || rest[3] != "window" {
		return LimitEntry{}, "", wrapf(ErrInvariantViolated, "live key %q has unexpected shape", key)
	}
	lt, err := ParseLimitType(rest[2])
	if err != nil {
		return LimitEntry{}, "", err
	}
	window, werr := strconv.Atoi(rest[4])
	if werr != nil {
		return LimitEntry{}, "", wrapf(ErrInvariantViolated, "key %q has non-integer window: %v", key, werr)
	}
	e, err := NewLimitEntry(LimitEntry{Routing: Routing(rest[0]), Endpoint: rest[1], LimitType: lt, WindowSec: window, Source: SourceHeaders, TTL: absentTTL, AdjustedTTL: absentTTL})
	return e, KindLiveCounter, err
}

func (c *KeyCodec) decodeAuthoritative(rest []string, key string) (LimitEntry, KeyKind, error) {
	e, _, err := c.decodeLive(rest, key)
	return e, KindAuthoritativeCounter, err
}
