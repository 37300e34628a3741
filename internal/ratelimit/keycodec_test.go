package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec() *KeyCodec {
	return NewKeyCodec("riot", "lol_api", "lol_api")
}

func TestKeyCodec_DefaultsFillEmptyPrefixes(t *testing.T) {
	c := NewKeyCodec("", "", "")
	assert.Equal(t, "riot", c.PolicyPrefix)
	assert.Equal(t, "lol_api", c.LivePrefix)
	assert.Equal(t, "lol_api", c.CooldownPrefix)
}

func TestKeyCodec_PolicyWindowsRoundTrip(t *testing.T) {
	c := newTestCodec()
	e := LimitEntry{Routing: "euw1", Endpoint: "/lol/summoner", LimitType: LimitTypeApplication}

	key, err := c.Encode(KindPolicyWindows, e)
	require.NoError(t, err)
	assert.Equal(t, "riot:v1:policy:euw1:/lol/summoner:application:windows", key)

	decoded, kind, err := c.Decode(key)
	require.NoError(t, err)
	assert.Equal(t, KindPolicyWindows, kind)
	assert.Equal(t, e.Routing, decoded.Routing)
	assert.Equal(t, e.Endpoint, decoded.Endpoint)
	assert.Equal(t, e.LimitType, decoded.LimitType)
	assert.Equal(t, SourceHeaders, decoded.Source)
}

func TestKeyCodec_PolicyLimitRoundTrip(t *testing.T) {
	c := newTestCodec()
	e := LimitEntry{Routing: "euw1", Endpoint: "/lol/summoner", LimitType: LimitTypeApplication, WindowSec: 120}

	key, err := c.Encode(KindPolicyLimit, e)
	require.NoError(t, err)
	assert.Equal(t, "riot:v1:policy:euw1:/lol/summoner:application:window:120:limit", key)

	decoded, kind, err := c.Decode(key)
	require.NoError(t, err)
	assert.Equal(t, KindPolicyLimit, kind)
	assert.Equal(t, 120, decoded.WindowSec)
}

func TestKeyCodec_LiveCounterRoundTrip(t *testing.T) {
	c := newTestCodec()
	e := LimitEntry{Routing: "euw1", Endpoint: "/lol/summoner", LimitType: LimitTypeMethod, WindowSec: 10}

	key, err := c.Encode(KindLiveCounter, e)
	require.NoError(t, err)
	assert.Equal(t, "lol_api:v1:live:euw1:/lol/summoner:method:window:10", key)

	decoded, kind, err := c.Decode(key)
	require.NoError(t, err)
	assert.Equal(t, KindLiveCounter, kind)
	assert.Equal(t, 10, decoded.WindowSec)
	assert.Equal(t, LimitTypeMethod, decoded.LimitType)
}

func TestKeyCodec_AuthoritativeCounterRoundTrip(t *testing.T) {
	c := newTestCodec()
	e := LimitEntry{Routing: "euw1", Endpoint: "/lol/summoner", LimitType: LimitTypeApplication, WindowSec: 120}

	key, err := c.Encode(KindAuthoritativeCounter, e)
	require.NoError(t, err)
	assert.Equal(t, "riot:v1:authoritative:euw1:/lol/summoner:application:window:120", key)

	_, kind, err := c.Decode(key)
	require.NoError(t, err)
	assert.Equal(t, KindAuthoritativeCounter, kind)
}

func TestKeyCodec_CooldownApplicationScopeOmitsEndpoint(t *testing.T) {
	c := newTestCodec()
	e := LimitEntry{Routing: "euw1", LimitType: LimitTypeApplication}

	key, err := c.Encode(KindCooldown, e)
	require.NoError(t, err)
	assert.Equal(t, "lol_api:v1:cooldown:euw1:application", key)

	decoded, kind, err := c.Decode(key)
	require.NoError(t, err)
	assert.Equal(t, KindCooldown, kind)
	assert.Equal(t, LimitTypeApplication, decoded.LimitType)
	assert.Equal(t, "", decoded.Endpoint)
}

func TestKeyCodec_CooldownMethodScopeCarriesEndpoint(t *testing.T) {
	c := newTestCodec()
	e := LimitEntry{Routing: "euw1", Endpoint: "/lol/summoner", LimitType: LimitTypeMethod}

	key, err := c.Encode(KindCooldown, e)
	require.NoError(t, err)
	assert.Equal(t, "lol_api:v1:cooldown:euw1:/lol/summoner:method", key)

	decoded, kind, err := c.Decode(key)
	require.NoError(t, err)
	assert.Equal(t, KindCooldown, kind)
	assert.Equal(t, "/lol/summoner", decoded.Endpoint)
}

// A cooldown key for application/service scope has fewer segments than a
// policy/live key, so a naive "try policy template first" decoder would
// misparse it. This test is the disambiguation-order regression guard.
func TestKeyCodec_CooldownDecodedBeforePolicyTemplate(t *testing.T) {
	c := newTestCodec()
	key := "lol_api:v1:cooldown:euw1:service"

	decoded, kind, err := c.Decode(key)
	require.NoError(t, err)
	assert.Equal(t, KindCooldown, kind)
	assert.Equal(t, LimitTypeService, decoded.LimitType)
}

func TestKeyCodec_DecodeRejectsShortKey(t *testing.T) {
	c := newTestCodec()
	_, _, err := c.Decode("riot:v1:policy")
	assert.ErrorIs(t, err, ErrInvariantViolated)
}

func TestKeyCodec_DecodeRejectsUnknownVersion(t *testing.T) {
	c := newTestCodec()
	_, _, err := c.Decode("riot:v2:policy:euw1:/x:application:windows")
	assert.ErrorIs(t, err, ErrInvariantViolated)
}

func TestKeyCodec_DecodeRejectsUnknownMode(t *testing.T) {
	c := newTestCodec()
	_, _, err := c.Decode("riot:v1:bogus:euw1:/x:application:windows")
	assert.ErrorIs(t, err, ErrInvariantViolated)
}

func TestKeyCodec_EncodeRejectsUnknownKind(t *testing.T) {
	c := newTestCodec()
	_, err := c.Encode(KeyKind("bogus"), LimitEntry{Routing: "euw1"})
	assert.ErrorIs(t, err, ErrInvariantViolated)
}
