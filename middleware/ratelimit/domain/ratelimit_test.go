package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewKey_ComposesClientAndRoute(t *testing.T) {
	assert.Equal(t, Key("10.0.0.1:/api/auth/signup"), NewKey("10.0.0.1", "/api/auth/signup"))
}

func TestNewKey_EmptyClientFallsBackToUnknown(t *testing.T) {
	assert.Equal(t, Key("unknown:/api/newsletter"), NewKey("  ", "/api/newsletter"))
}

func TestPolicy_NormalizeAppliesDefaults(t *testing.T) {
	p := Policy{}.Normalize()
	assert.Equal(t, 60, p.Limit)
	assert.Equal(t, 60*time.Second, p.Window)

	p = Policy{Limit: 5, Window: -1}.Normalize()
	assert.Equal(t, 5, p.Limit)
	assert.Equal(t, DefaultWindow, p.Window)
}

func TestPolicyFromRPM(t *testing.T) {
	assert.Equal(t, Policy{Limit: 3, Window: time.Minute}, PolicyFromRPM(3))
	assert.Equal(t, DefaultPolicy(), PolicyFromRPM(0))
}

func TestDecision_RetryAfterSecondsRoundsUp(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want int
	}{
		{0, 0},
		{-time.Second, 0},
		{1 * time.Millisecond, 1},
		{60 * time.Second, 60},
		{59500 * time.Millisecond, 60},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Decision{RetryAfter: c.in}.RetryAfterSeconds(), "retry after %s", c.in)
	}
}

func TestEntry_ExpiredAtBoundary(t *testing.T) {
	reset := time.Unix(60, 0)
	e := Entry{Count: 1, WindowResetAt: reset}

	assert.False(t, e.Expired(reset.Add(-time.Millisecond)))
	assert.True(t, e.Expired(reset))
	assert.Equal(t, 2, e.Remaining(3))
	assert.Equal(t, 0, Entry{Count: 7}.Remaining(3))
}
