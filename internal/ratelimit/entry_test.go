package ratelimit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimitEntry_ValidPolicyEntry(t *testing.T) {
	e, err := NewLimitEntry(LimitEntry{
		Routing: "euw1", Endpoint: "/lol/summoner", LimitType: LimitTypeApplication,
		WindowSec: 120, CountLimit: 100, Source: SourcePolicy, TTL: absentTTL, AdjustedTTL: absentTTL,
	})
	require.NoError(t, err)
	assert.Equal(t, 120, e.WindowSec)
}

func TestNewLimitEntry_BlindPolicyEntryHasNoLimitType(t *testing.T) {
	e, err := NewLimitEntry(LimitEntry{Routing: "euw1", Source: SourcePolicy, TTL: absentTTL, AdjustedTTL: absentTTL})
	require.NoError(t, err)
	assert.Equal(t, LimitType(""), e.LimitType)
	assert.Equal(t, 0, e.Count)
}

func TestNewLimitEntry_PolicyEntryMissingWindowFailsWhenScoped(t *testing.T) {
	_, err := NewLimitEntry(LimitEntry{
		Routing: "euw1", LimitType: LimitTypeApplication, CountLimit: 100,
		Source: SourcePolicy, TTL: absentTTL, AdjustedTTL: absentTTL,
	})
	assert.ErrorIs(t, err, ErrInvariantViolated)
}

func TestNewLimitEntry_PolicyEntryCannotBeServiceScoped(t *testing.T) {
	_, err := NewLimitEntry(LimitEntry{
		Routing: "euw1", LimitType: LimitTypeService, WindowSec: 60, CountLimit: 10,
		Source: SourcePolicy, TTL: absentTTL, AdjustedTTL: absentTTL,
	})
	assert.ErrorIs(t, err, ErrInvariantViolated)
}

func TestNewLimitEntry_LiveEntryRequiresCountLimitAndTTL(t *testing.T) {
	_, err := NewLimitEntry(LimitEntry{
		Routing: "euw1", LimitType: LimitTypeApplication, WindowSec: 60,
		Source: SourceLive, TTL: absentTTL, AdjustedTTL: absentTTL,
	})
	assert.ErrorIs(t, err, ErrInvariantViolated)

	_, err = NewLimitEntry(LimitEntry{
		Routing: "euw1", LimitType: LimitTypeApplication, WindowSec: 60, CountLimit: 10, Count: 1,
		Source: SourceLive, TTL: 59, AdjustedTTL: absentTTL,
	})
	assert.NoError(t, err)
}

func TestNewLimitEntry_MethodCooldownRequiresEndpoint(t *testing.T) {
	_, err := NewLimitEntry(LimitEntry{
		Routing: "euw1", LimitType: LimitTypeMethod, Source: SourceCooldown, TTL: absentTTL, AdjustedTTL: absentTTL,
	})
	assert.ErrorIs(t, err, ErrInvariantViolated)

	_, err = NewLimitEntry(LimitEntry{
		Routing: "euw1", Endpoint: "/lol/summoner", LimitType: LimitTypeMethod,
		Source: SourceCooldown, TTL: absentTTL, AdjustedTTL: absentTTL,
	})
	assert.NoError(t, err)
}

func TestNewLimitEntry_ApplicationAndServiceCooldownOmitEndpoint(t *testing.T) {
	_, err := NewLimitEntry(LimitEntry{
		Routing: "euw1", LimitType: LimitTypeApplication, Source: SourceCooldown, TTL: absentTTL, AdjustedTTL: absentTTL,
	})
	assert.NoError(t, err)

	_, err = NewLimitEntry(LimitEntry{
		Routing: "euw1", LimitType: LimitTypeService, Source: SourceCooldown, TTL: absentTTL, AdjustedTTL: absentTTL,
	})
	assert.NoError(t, err)
}

func TestNewLimitEntry_RejectsUnknownLimitType(t *testing.T) {
	_, err := NewLimitEntry(LimitEntry{Routing: "euw1", LimitType: "bogus", TTL: absentTTL, AdjustedTTL: absentTTL})
	assert.True(t, errors.Is(err, ErrInvariantViolated))
}

func TestNewLimitEntry_RejectsNegativeFields(t *testing.T) {
	cases := []LimitEntry{
		{WindowSec: -1, TTL: absentTTL, AdjustedTTL: absentTTL},
		{CountLimit: -1, TTL: absentTTL, AdjustedTTL: absentTTL},
		{Count: -1, TTL: absentTTL, AdjustedTTL: absentTTL},
		{RetryAfter: -1, TTL: absentTTL, AdjustedTTL: absentTTL},
		{TTL: -2, AdjustedTTL: absentTTL},
		{TTL: absentTTL, AdjustedTTL: -2},
	}
	for _, c := range cases {
		_, err := NewLimitEntry(c)
		assert.ErrorIs(t, err, ErrInvariantViolated)
	}
}

func TestLimitEntry_WithCountAndWithTTL(t *testing.T) {
	base, err := NewLimitEntry(LimitEntry{
		Routing: "euw1", LimitType: LimitTypeApplication, WindowSec: 60, CountLimit: 10,
		Source: SourceLive, TTL: 30, AdjustedTTL: absentTTL,
	})
	require.NoError(t, err)

	updated, err := base.WithCount(5)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Count)

	updated, err = updated.WithTTL(10)
	require.NoError(t, err)
	assert.Equal(t, 10, updated.TTL)
}
