// AngelaMos | 2026
// ratelimit_test.go

package admission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acquisitions/api/internal/core"
)

func newFrozenLimiter(t *testing.T) *LocalLimiter {
	t.Helper()
	l := NewLocalLimiter()
	t.Cleanup(l.Close)
	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return frozen }
	return l
}

func TestLocalLimiterTiers(t *testing.T) {
	tests := []struct {
		role    string
		allowed int
	}{
		{core.RoleGuest, 5},
		{core.RoleUser, 10},
		{core.RoleAdmin, 20},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			l := newFrozenLimiter(t)
			tier := DefaultTiers.For(tt.role)
			key := RateKey(Request{Role: tt.role, UserID: 7, IP: "10.0.0.1"})

			for i := 1; i <= tt.allowed; i++ {
				d, err := l.Allow(context.Background(), key, tier)
				require.NoError(t, err)
				assert.True(t, d.Allowed, "request %d should pass", i)
				assert.Equal(t, tt.allowed, d.Limit)
			}

			d, err := l.Allow(context.Background(), key, tier)
			require.NoError(t, err)
			assert.False(t, d.Allowed)
			assert.Equal(t, ReasonRateLimit, d.Reason)
			assert.Positive(t, d.RetryAfter)
		})
	}
}

func TestLocalLimiterKeysAreIndependent(t *testing.T) {
	l := newFrozenLimiter(t)
	tier := DefaultTiers.For(core.RoleGuest)

	for range 5 {
		d, err := l.Allow(context.Background(), "ratelimit:guest:ip:1.1.1.1", tier)
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}

	d, err := l.Allow(context.Background(), "ratelimit:guest:ip:2.2.2.2", tier)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestLocalLimiterRejectsInvalidTier(t *testing.T) {
	l := newFrozenLimiter(t)

	_, err := l.Allow(context.Background(), "k", Tier{Name: "broken"})
	assert.Error(t, err)
}

func TestRateKey(t *testing.T) {
	assert.Equal(t,
		"ratelimit:admin:user:3",
		RateKey(Request{Role: core.RoleAdmin, UserID: 3, IP: "10.0.0.1"}),
	)
	assert.Equal(t,
		"ratelimit:guest:ip:10.0.0.1",
		RateKey(Request{Role: core.RoleGuest, IP: "10.0.0.1"}),
	)
}
