//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pals-portal/internal/domain"
	"pals-portal/internal/domain/model"
	"pals-portal/internal/usecase"
)

type mockGeo struct {
	stateCalls int
	lgaCalls   int
	err        error
}

func (m *mockGeo) States(ctx context.Context) ([]model.State, error) {
	m.stateCalls++
	return []model.State{{Code: "LA", Name: "Lagos"}}, m.err
}

func (m *mockGeo) LGAs(ctx context.Context, state string) ([]model.LGA, error) {
	m.lgaCalls++
	return []model.LGA{{Code: "IKJ", Name: "Ikeja"}}, m.err
}

// refreshingGeo stands in for the Redis geography cache.
type refreshingGeo struct {
	mockGeo
	stateRefreshes int
	lgaRefreshes   []string
}

func (r *refreshingGeo) RefreshStates(ctx context.Context) ([]model.State, error) {
	r.stateRefreshes++
	return []model.State{{Code: "LA", Name: "Lagos"}, {Code: "OG", Name: "Ogun"}}, nil
}

func (r *refreshingGeo) RefreshLGAs(ctx context.Context, state string) error {
	r.lgaRefreshes = append(r.lgaRefreshes, state)
	return nil
}

type slowTenants struct {
	delay time.Duration
	err   error
	calls atomic.Int32
}

func (s *slowTenants) CurrentTenant(ctx context.Context) (*model.Tenant, error) {
	s.calls.Add(1)
	time.Sleep(s.delay)
	return nil, s.err
}

type mockTenants struct {
	calls  int
	names  []string
	failAt int // 1-based call that fails; 0 never
}

func (m *mockTenants) CurrentTenant(ctx context.Context) (*model.Tenant, error) {
	m.calls++
	if m.calls == m.failAt {
		return nil, errors.New("tenant service down")
	}
	name := m.names[len(m.names)-1]
	if m.calls <= len(m.names) {
		name = m.names[m.calls-1]
	}
	return &model.Tenant{Code: "lasg", Name: name}, nil
}

func TestLookupUseCase(t *testing.T) {
	ctx := context.Background()

	t.Run("should reject an empty state without calling the backend", func(t *testing.T) {
		geo := &mockGeo{}
		uc := usecase.NewLookupUseCase(geo, &mockTenants{names: []string{"Lagos"}})

		_, err := uc.LGAs(ctx, "  ")

		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
		if geo.lgaCalls != 0 {
			t.Error("backend must not be called")
		}
	})

	t.Run("should fetch the tenant once", func(t *testing.T) {
		tenants := &mockTenants{names: []string{"Lagos PALS"}}
		uc := usecase.NewLookupUseCase(&mockGeo{}, tenants)

		for i := 0; i < 3; i++ {
			tn, err := uc.Tenant(ctx)
			if err != nil || tn.Name != "Lagos PALS" {
				t.Fatalf("unexpected tenant %v, %v", tn, err)
			}
		}
		if tenants.calls != 1 {
			t.Errorf("expected 1 backend call, got %d", tenants.calls)
		}
	})

	t.Run("should ask again for a failed tenant after the retry delay", func(t *testing.T) {
		tenants := &mockTenants{names: []string{"x", "Lagos PALS"}, failAt: 1}
		uc := usecase.NewLookupUseCase(&mockGeo{}, tenants).WithTenantRetry(20 * time.Millisecond)

		if _, err := uc.Tenant(ctx); err == nil {
			t.Fatal("expected the first fetch to fail")
		}
		if _, err := uc.Tenant(ctx); err == nil {
			t.Fatal("expected the failure to be served during the retry delay")
		}
		if tenants.calls != 1 {
			t.Fatalf("expected 1 backend call during the delay, got %d", tenants.calls)
		}
		time.Sleep(30 * time.Millisecond)
		tn, err := uc.Tenant(ctx)
		if err != nil || tn.Name != "Lagos PALS" {
			t.Fatalf("unexpected tenant %v, %v", tn, err)
		}
	})

	t.Run("should share one slow failing fetch between concurrent renders", func(t *testing.T) {
		// --- Arrange ---
		tenants := &slowTenants{delay: 100 * time.Millisecond, err: errors.New("tenant service down")}
		uc := usecase.NewLookupUseCase(&mockGeo{}, tenants)

		// --- Act ---
		start := time.Now()
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				uc.Tenant(ctx)
			}()
		}
		wg.Wait()

		// --- Assert ---
		if n := tenants.calls.Load(); n != 1 {
			t.Errorf("expected 1 backend call, got %d", n)
		}
		if took := time.Since(start); took > 500*time.Millisecond {
			t.Errorf("renders queued behind each other: %v", took)
		}
	})

	t.Run("should replace the tenant and warm states on refresh", func(t *testing.T) {
		// --- Arrange ---
		geo := &mockGeo{}
		tenants := &mockTenants{names: []string{"Old Name", "New Name"}}
		uc := usecase.NewLookupUseCase(geo, tenants)
		if _, err := uc.Tenant(ctx); err != nil {
			t.Fatal(err)
		}

		// --- Act ---
		err := uc.Refresh(ctx)

		// --- Assert ---
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tn, _ := uc.Tenant(ctx)
		if tn.Name != "New Name" {
			t.Errorf("expected refreshed tenant, got %q", tn.Name)
		}
		if geo.stateCalls != 1 {
			t.Errorf("expected states to be warmed once, got %d", geo.stateCalls)
		}
	})

	t.Run("should keep the previous tenant when refresh fails", func(t *testing.T) {
		tenants := &mockTenants{names: []string{"Lagos PALS"}, failAt: 2}
		uc := usecase.NewLookupUseCase(&mockGeo{}, tenants)
		if _, err := uc.Tenant(ctx); err != nil {
			t.Fatal(err)
		}

		err := uc.Refresh(ctx)

		if err == nil {
			t.Fatal("expected refresh to report the tenant failure")
		}
		tn, _ := uc.Tenant(ctx)
		if tn.Name != "Lagos PALS" {
			t.Errorf("expected the previous tenant, got %q", tn.Name)
		}
	})

	t.Run("should reload geography past the cache and queue each state's LGAs", func(t *testing.T) {
		// --- Arrange ---
		geo := &refreshingGeo{}
		tasks := &syncSubmitter{ctx: ctx}
		uc := usecase.NewLookupUseCase(geo, &mockTenants{names: []string{"Lagos PALS"}}).WithWarmer(tasks)

		// --- Act ---
		err := uc.Refresh(ctx)

		// --- Assert ---
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if geo.stateRefreshes != 1 || geo.stateCalls != 0 {
			t.Errorf("states: refreshed=%d cached reads=%d", geo.stateRefreshes, geo.stateCalls)
		}
		if len(geo.lgaRefreshes) != 2 || geo.lgaRefreshes[0] != "Lagos" || geo.lgaRefreshes[1] != "Ogun" {
			t.Errorf("lga refreshes: %v", geo.lgaRefreshes)
		}
		if tasks.tasks != 2 {
			t.Errorf("expected 2 tasks, got %d", tasks.tasks)
		}
	})
}
