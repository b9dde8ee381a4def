package infra

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"saas-gateway/middleware/ratelimit/domain"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newFixedWindow(t *testing.T) (*FixedWindowStore, *fakeclock.FakeClock) {
	t.Helper()
	fc := fakeclock.NewFakeClock(epoch)
	return NewFixedWindowStore(WithClock(fc)), fc
}

func TestFixedWindow_AllowsUpToLimitWithinWindow(t *testing.T) {
	s, _ := newFixedWindow(t)
	p := domain.Policy{Limit: 5, Window: time.Minute}
	key := domain.NewKey("1.2.3.4", "/api/auth/signup")

	for i := 1; i <= p.Limit; i++ {
		dec := s.CheckAndRecord(key, p)
		require.True(t, dec.Allowed, "call %d", i)
		assert.Equal(t, p.Limit-i, dec.Remaining)
		assert.Equal(t, 5, dec.Limit)
	}
}

func TestFixedWindow_RejectsLimitPlusOne(t *testing.T) {
	s, _ := newFixedWindow(t)
	p := domain.Policy{Limit: 3, Window: 60 * time.Second}
	key := domain.NewKey("1.2.3.4", "/api/auth/forgot-password")

	got := make([]bool, 0, 4)
	var last domain.Decision
	for i := 0; i < 4; i++ {
		last = s.CheckAndRecord(key, p)
		got = append(got, last.Allowed)
	}

	assert.Equal(t, []bool{true, true, true, false}, got)
	assert.Equal(t, 60, last.RetryAfterSeconds())
	assert.Equal(t, 3, last.Limit)
	assert.Equal(t, 0, last.Remaining)
	assert.Equal(t, epoch.Add(time.Minute), last.ResetAt)
}

func TestFixedWindow_RetryAfterShrinksWithinWindow(t *testing.T) {
	s, fc := newFixedWindow(t)
	p := domain.Policy{Limit: 1, Window: 60 * time.Second}
	key := domain.Key("k")

	require.True(t, s.CheckAndRecord(key, p).Allowed)

	fc.Increment(45500 * time.Millisecond)
	dec := s.CheckAndRecord(key, p)
	require.False(t, dec.Allowed)
	assert.Equal(t, 15, dec.RetryAfterSeconds())
}

func TestFixedWindow_NewWindowAfterExpiry(t *testing.T) {
	s, fc := newFixedWindow(t)
	p := domain.Policy{Limit: 3, Window: 60 * time.Second}
	key := domain.NewKey("1.2.3.4", "/api/newsletter")

	for i := 0; i < 3; i++ {
		require.True(t, s.CheckAndRecord(key, p).Allowed)
	}

	fc.Increment(61 * time.Second)
	dec := s.CheckAndRecord(key, p)
	require.True(t, dec.Allowed)

	ent, ok := s.Snapshot(key)
	require.True(t, ok)
	assert.Equal(t, 1, ent.Count)
	assert.Equal(t, epoch.Add(121*time.Second), ent.WindowResetAt)
}

func TestFixedWindow_WindowEndsExactlyAtReset(t *testing.T) {
	s, fc := newFixedWindow(t)
	p := domain.Policy{Limit: 1, Window: time.Minute}

	require.True(t, s.CheckAndRecord("k", p).Allowed)
	fc.Increment(time.Minute)
	assert.True(t, s.CheckAndRecord("k", p).Allowed)
}

func TestFixedWindow_KeysAreIndependent(t *testing.T) {
	s, _ := newFixedWindow(t)
	p := domain.Policy{Limit: 1, Window: time.Minute}

	a := domain.NewKey("1.1.1.1", "/api/auth/signup")
	b := domain.NewKey("2.2.2.2", "/api/auth/signup")
	c := domain.NewKey("1.1.1.1", "/api/newsletter")

	require.True(t, s.CheckAndRecord(a, p).Allowed)
	require.False(t, s.CheckAndRecord(a, p).Allowed)

	assert.True(t, s.CheckAndRecord(b, p).Allowed)
	assert.True(t, s.CheckAndRecord(c, p).Allowed)

	ent, _ := s.Snapshot(a)
	assert.Equal(t, 2, ent.Count)
}

func TestFixedWindow_SweepDropsExpiredEntries(t *testing.T) {
	s, fc := newFixedWindow(t)
	p := domain.Policy{Limit: 10, Window: time.Minute}

	for i := 0; i < 100; i++ {
		s.CheckAndRecord(domain.NewKey(fmt.Sprintf("10.0.0.%d", i), "/"), p)
	}
	require.Equal(t, 100, s.Len())

	fc.Increment(2 * time.Minute)
	fresh := domain.NewKey("192.168.0.1", "/")
	dec := s.CheckAndRecord(fresh, p)

	assert.True(t, dec.Allowed)
	assert.Equal(t, 1, s.Len())
	_, ok := s.Snapshot(domain.NewKey("10.0.0.1", "/"))
	assert.False(t, ok, "expired entry must not come back")
}

func TestFixedWindow_SweepKeepsActiveEntries(t *testing.T) {
	s, fc := newFixedWindow(t)

	s.CheckAndRecord("short", domain.Policy{Limit: 1, Window: time.Second})
	s.CheckAndRecord("long", domain.Policy{Limit: 1, Window: time.Hour})

	fc.Increment(2 * time.Second)
	s.CheckAndRecord("other", domain.Policy{Limit: 1, Window: time.Hour})

	_, ok := s.Snapshot("short")
	assert.False(t, ok)
	_, ok = s.Snapshot("long")
	assert.True(t, ok)
}

func TestFixedWindow_ZeroPolicyUsesDefaults(t *testing.T) {
	s, _ := newFixedWindow(t)

	for i := 0; i < domain.DefaultLimit; i++ {
		require.True(t, s.CheckAndRecord("k", domain.Policy{}).Allowed)
	}
	dec := s.CheckAndRecord("k", domain.Policy{})
	assert.False(t, dec.Allowed)
	assert.Equal(t, 60, dec.RetryAfterSeconds())
}

func TestFixedWindow_ConcurrentCallsNeverExceedLimit(t *testing.T) {
	s, _ := newFixedWindow(t)
	p := domain.Policy{Limit: 50, Window: time.Minute}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.CheckAndRecord("shared", p).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}
