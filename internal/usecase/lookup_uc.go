package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"pals-portal/internal/domain"
	"pals-portal/internal/domain/model"
	"pals-portal/internal/domain/ports/adapter"
)

// Compile-time check
var _ LookupUseCase = (*lookupUC)(nil)

// LookupUseCase serves the reference data pages need: geography for the
// owner forms and the tenant's branding.
type LookupUseCase interface {
	States(ctx context.Context) ([]model.State, error)
	LGAs(ctx context.Context, state string) ([]model.LGA, error)
	Tenant(ctx context.Context) (*model.Tenant, error)
}

// TaskSubmitter runs short background work; the worker pool satisfies it.
type TaskSubmitter interface {
	Submit(task func(ctx context.Context) error) error
}

// GeographyRefresher reloads cached geography from the backend, skipping
// the cache on the way in. The Redis geography cache implements it.
type GeographyRefresher interface {
	RefreshStates(ctx context.Context) ([]model.State, error)
	RefreshLGAs(ctx context.Context, state string) error
}

const defaultTenantRetry = 10 * time.Second

type lookupUC struct {
	geo     adapter.GeographyBackend
	tenants adapter.TenantBackend
	tasks   TaskSubmitter
	retry   time.Duration
	now     func() time.Time

	group    singleflight.Group
	mu       sync.RWMutex
	tenant   *model.Tenant
	lastErr  error
	failedAt time.Time
}

func NewLookupUseCase(geo adapter.GeographyBackend, tenants adapter.TenantBackend) *lookupUC {
	return &lookupUC{geo: geo, tenants: tenants, retry: defaultTenantRetry, now: time.Now}
}

// WithTenantRetry sets how long a failed tenant fetch is served from memory
// before the backend is asked again. Zero asks on every call.
func (l *lookupUC) WithTenantRetry(d time.Duration) *lookupUC {
	l.retry = d
	return l
}

// WithWarmer lets Refresh reload every state's LGAs through tasks.
func (l *lookupUC) WithWarmer(tasks TaskSubmitter) *lookupUC {
	l.tasks = tasks
	return l
}

func (l *lookupUC) States(ctx context.Context) ([]model.State, error) {
	return l.geo.States(ctx)
}

func (l *lookupUC) LGAs(ctx context.Context, state string) ([]model.LGA, error) {
	state = strings.TrimSpace(state)
	if state == "" {
		return nil, domain.ErrInvalidArgument
	}
	return l.geo.LGAs(ctx, state)
}

// Tenant is fetched once. Concurrent callers share a single backend call,
// and a failure is returned as is until the retry delay has passed.
func (l *lookupUC) Tenant(ctx context.Context) (*model.Tenant, error) {
	l.mu.RLock()
	t, lastErr, failedAt := l.tenant, l.lastErr, l.failedAt
	l.mu.RUnlock()
	if t != nil {
		return t, nil
	}
	if lastErr != nil && l.now().Sub(failedAt) < l.retry {
		return nil, lastErr
	}

	v, err, _ := l.group.Do("tenant", func() (any, error) {
		// shared by every waiting caller, so no single request may cancel it
		t, err := l.tenants.CurrentTenant(context.WithoutCancel(ctx))
		l.mu.Lock()
		defer l.mu.Unlock()
		if err != nil {
			l.lastErr, l.failedAt = err, l.now()
			return nil, err
		}
		l.tenant, l.lastErr = t, nil
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Tenant), nil
}

// Refresh reloads the tenant branding and the geography lists. A failed
// tenant fetch keeps the previous value.
func (l *lookupUC) Refresh(ctx context.Context) error {
	var tenantErr error
	if t, err := l.tenants.CurrentTenant(ctx); err != nil {
		tenantErr = err
	} else {
		l.mu.Lock()
		l.tenant, l.lastErr = t, nil
		l.mu.Unlock()
	}
	return errors.Join(tenantErr, l.refreshGeography(ctx))
}

// refreshGeography reloads the states list and queues one LGA reload per
// state. A full queue leaves the remaining states to expire normally.
func (l *lookupUC) refreshGeography(ctx context.Context) error {
	r, ok := l.geo.(GeographyRefresher)
	if !ok {
		_, err := l.geo.States(ctx)
		return err
	}
	states, err := r.RefreshStates(ctx)
	if err != nil || l.tasks == nil {
		return err
	}
	for _, st := range states {
		name := st.Name
		if err := l.tasks.Submit(func(ctx context.Context) error {
			return r.RefreshLGAs(ctx, name)
		}); err != nil {
			return err
		}
	}
	return nil
}
