//go:build !integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pals-portal/internal/domain"
	"pals-portal/internal/domain/model"
)

func TestWizardStateRepo(t *testing.T) {
	ctx := context.Background()
	cli, mr := newTestClient(t)
	repo := NewWizardStateRepo(cli, 15*time.Minute)

	state := &model.WizardState{
		ID:        "01HZX",
		Flow:      model.FlowRegistration,
		Step:      model.StepOwnerInformation,
		RequestID: "req-1",
		VIN:       "1HGCM82633A004352",
		Vehicle:   &model.VehicleInfo{Make: "Toyota", Year: 2020},
	}
	require.NoError(t, repo.Save(ctx, state))

	got, err := repo.Get(ctx, "01HZX")
	require.NoError(t, err)
	assert.Equal(t, state.RequestID, got.RequestID)
	assert.Equal(t, 2020, got.Vehicle.Year)
	assert.Equal(t, 15*time.Minute, mr.TTL("wizard_state:01HZX"))

	mr.FastForward(16 * time.Minute)
	_, err = repo.Get(ctx, "01HZX")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.Get(ctx, "never")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPendingPaymentRepo(t *testing.T) {
	ctx := context.Background()
	cli, mr := newTestClient(t)
	repo := NewPendingPaymentRepo(cli, 2*time.Hour)

	p, err := model.NewPendingPayment(model.ServiceRenewal, "req-1", "R1", "a@b.ng", 12500, time.Now())
	require.NoError(t, err)

	t.Run("round trip under a single versioned key", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, "sess-1", p))
		assert.True(t, mr.Exists("pending_payment:sess-1"))

		got, err := repo.Get(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, "R1", got.Reference)
		assert.Equal(t, model.ServiceRenewal, got.ServiceType)
		assert.Equal(t, int64(12500), got.Amount)
	})

	t.Run("a second handoff overwrites the first", func(t *testing.T) {
		q := *p
		q.Reference = "R2"
		require.NoError(t, repo.Save(ctx, "sess-1", &q))
		got, err := repo.Get(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, "R2", got.Reference)
	})

	t.Run("unknown versions read as absent", func(t *testing.T) {
		require.NoError(t, mr.Set("pending_payment:sess-old", `{"version":0,"requestId":"r","serviceType":"renewal"}`))
		_, err := repo.Get(ctx, "sess-old")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, repo.Clear(ctx, "sess-1"))
		_, err := repo.Get(ctx, "sess-1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		// clearing twice is fine
		assert.NoError(t, repo.Clear(ctx, "sess-1"))
	})

	t.Run("invalid records are refused", func(t *testing.T) {
		err := repo.Save(ctx, "sess-2", &model.PendingPayment{Version: 1})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestPopupRepo(t *testing.T) {
	ctx := context.Background()
	cli, _ := newTestClient(t)
	repo := NewPopupRepo(cli, 15*time.Minute)

	closed, err := repo.IsClosed(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, closed)

	require.NoError(t, repo.MarkClosed(ctx, "s1"))
	closed, _ = repo.IsClosed(ctx, "s1")
	assert.True(t, closed)

	require.NoError(t, repo.ClearClosed(ctx, "s1"))
	closed, _ = repo.IsClosed(ctx, "s1")
	assert.False(t, closed)

	_, err = repo.GetOutcome(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	out := &model.PaymentOutcome{Resolution: &model.Resolution{Status: model.ResolutionSuccess}, CompletedAt: time.Now()}
	require.NoError(t, repo.SaveOutcome(ctx, "s1", out))
	got, err := repo.GetOutcome(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.ResolutionSuccess, got.Resolution.Status)
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	cli, mr := newTestClient(t)
	rl := NewRateLimiter(cli)

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "rate_limit:otp:req-1", 3, 10*time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}
	ok, err := rl.Allow(ctx, "rate_limit:otp:req-1", 3, 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(11 * time.Minute)
	ok, _ = rl.Allow(ctx, "rate_limit:otp:req-1", 3, 10*time.Minute)
	assert.True(t, ok, "window should reset")
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	cli, _ := newTestClient(t)
	l := NewLocker(cli)
	l.wait = time.Millisecond

	tok, err := l.TryLock(ctx, "lock:resolve:s1", time.Minute)
	require.NoError(t, err)

	_, err = l.TryLock(ctx, "lock:resolve:s1", time.Minute)
	assert.ErrorIs(t, err, domain.ErrResolveInProgress)

	// a stale token cannot release someone else's lock
	require.NoError(t, l.Unlock(ctx, "lock:resolve:s1", "other"))
	_, err = l.TryLock(ctx, "lock:resolve:s1", time.Minute)
	assert.ErrorIs(t, err, domain.ErrResolveInProgress)

	require.NoError(t, l.Unlock(ctx, "lock:resolve:s1", tok))
	_, err = l.TryLock(ctx, "lock:resolve:s1", time.Minute)
	assert.NoError(t, err)
}
