// File: internal/usecase/popup_watcher.go
package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"pals-portal/internal/domain"
	"pals-portal/internal/domain/model"
	"pals-portal/internal/domain/ports/repository"
)

var _ PopupScheduler = (*PopupWatcher)(nil)

// PopupWatcher polls for the popup payment window being reported closed and
// then resolves the payment once. It gives up after the timeout. Each watch
// runs on its own goroutine; at most maxWatches run at once.
type PopupWatcher struct {
	resolver CallbackUseCase
	popups   repository.PopupRepository
	interval time.Duration
	timeout  time.Duration
	log      *zerolog.Logger
	now      func() time.Time
	onExit   func(result string)

	slots  *semaphore.Weighted
	base   context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	active map[string]context.CancelFunc
}

func NewPopupWatcher(
	resolver CallbackUseCase,
	popups repository.PopupRepository,
	maxWatches int,
	interval, timeout time.Duration,
	logger *zerolog.Logger,
) *PopupWatcher {
	if interval <= 0 {
		interval = time.Second
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	if maxWatches <= 0 {
		maxWatches = 256
	}
	return &PopupWatcher{
		resolver: resolver,
		popups:   popups,
		interval: interval,
		timeout:  timeout,
		log:      logger,
		now:      time.Now,
		slots:    semaphore.NewWeighted(int64(maxWatches)),
		base:     context.Background(),
		active:   make(map[string]context.CancelFunc),
	}
}

// OnExit registers fn to be told how each watch ended:
// closed, resolved, timeout or cancelled.
func (w *PopupWatcher) OnExit(fn func(result string)) *PopupWatcher {
	w.onExit = fn
	return w
}

// Start sets the context scheduled watches run under.
func (w *PopupWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	w.base, w.stop = context.WithCancel(ctx)
	w.mu.Unlock()
}

// Stop cancels running watches and waits for them to return.
func (w *PopupWatcher) Stop() {
	w.mu.Lock()
	if w.stop != nil {
		w.stop()
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *PopupWatcher) exit(result string) {
	if w.onExit != nil {
		w.onExit(result)
	}
}

// Schedule starts a watch for sessionID in the background. The request
// context is not carried over. A newer payment attempt for the same session
// replaces the running watch. When every slot is taken it returns
// domain.ErrWatchersBusy and the popup page's manual check remains.
func (w *PopupWatcher) Schedule(_ context.Context, sessionID string) error {
	if !w.slots.TryAcquire(1) {
		return domain.ErrWatchersBusy
	}

	w.mu.Lock()
	if cancel, ok := w.active[sessionID]; ok {
		cancel()
	}
	ctx, cancel := context.WithCancel(w.base)
	w.active[sessionID] = cancel
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		defer w.slots.Release(1)
		defer w.release(ctx, sessionID)
		if err := w.Watch(ctx, sessionID); err != nil && !errors.Is(err, context.Canceled) {
			w.log.Warn().Err(err).Msg("popup watch")
		}
	}()
	return nil
}

// release forgets the watch unless a newer one has taken its place.
func (w *PopupWatcher) release(ctx context.Context, sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cancel, ok := w.active[sessionID]; ok && ctx.Err() == nil {
		cancel()
		delete(w.active, sessionID)
	}
}

// Watch blocks until the window is reported closed, the payment is settled
// by the gateway callback, the timeout elapses or ctx is cancelled. Resolve
// is called at most once.
func (w *PopupWatcher) Watch(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				w.exit("cancelled")
				return ctx.Err()
			}
			w.exit("timeout")
			store := context.WithoutCancel(ctx)
			if w.settled(store, sessionID) {
				return nil
			}
			out := &model.PaymentOutcome{TimedOut: true, CompletedAt: w.now()}
			if err := w.popups.SaveOutcome(store, sessionID, out); err != nil {
				w.log.Warn().Err(err).Msg("save popup timeout")
			}
			w.log.Info().Msg("popup watch timed out")
			return nil

		case <-ticker.C:
			if w.settled(ctx, sessionID) {
				w.exit("resolved")
				w.clearClosed(context.WithoutCancel(ctx), sessionID)
				return nil
			}
			closed, err := w.popups.IsClosed(ctx, sessionID)
			if err != nil {
				w.log.Warn().Err(err).Msg("popup window check")
				continue
			}
			if !closed {
				continue
			}
			w.exit("closed")
			return w.finish(ctx, sessionID)
		}
	}
}

// settled reports whether an outcome with a resolution is already stored,
// as the gateway callback leaves one when it lands in the popup window.
func (w *PopupWatcher) settled(ctx context.Context, sessionID string) bool {
	o, err := w.popups.GetOutcome(ctx, sessionID)
	return err == nil && o != nil && o.Resolution != nil
}

func (w *PopupWatcher) finish(ctx context.Context, sessionID string) error {
	res, err := w.resolver.Resolve(ctx, sessionID, model.CallbackParams{})
	if err != nil {
		w.log.Error().Err(err).Msg("popup resolve")
		res = &model.Resolution{Status: model.ResolutionPending}
	}
	store := context.WithoutCancel(ctx)
	defer w.clearClosed(store, sessionID)
	if res.Status == model.ResolutionMissing && w.settled(store, sessionID) {
		return err
	}
	out := &model.PaymentOutcome{Resolution: res, CompletedAt: w.now()}
	if serr := w.popups.SaveOutcome(store, sessionID, out); serr != nil {
		w.log.Warn().Err(serr).Msg("save popup outcome")
	}
	return err
}

func (w *PopupWatcher) clearClosed(ctx context.Context, sessionID string) {
	if err := w.popups.ClearClosed(ctx, sessionID); err != nil {
		w.log.Warn().Err(err).Msg("clear popup flag")
	}
}
