//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"pals-portal/internal/domain"
	"pals-portal/internal/domain/model"
	"pals-portal/internal/domain/ports/adapter"
	"pals-portal/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- Wizard state (in-memory) ----

var _ repository.WizardStateRepository = (*memStateRepo)(nil)

type memStateRepo struct {
	mu    sync.Mutex
	store map[string]model.WizardState
	saves int
}

func newMemStateRepo() *memStateRepo {
	return &memStateRepo{store: map[string]model.WizardState{}}
}

func (m *memStateRepo) Save(ctx context.Context, s *model.WizardState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[s.ID] = *s
	m.saves++
	return nil
}

func (m *memStateRepo) Get(ctx context.Context, id string) (*model.WizardState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *memStateRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, id)
	return nil
}

// ---- Pending payments (in-memory) ----

var _ repository.PendingPaymentRepository = (*memPendingRepo)(nil)

type memPendingRepo struct {
	mu     sync.Mutex
	store  map[string]model.PendingPayment
	clears int
}

func newMemPendingRepo() *memPendingRepo {
	return &memPendingRepo{store: map[string]model.PendingPayment{}}
}

func (m *memPendingRepo) Save(ctx context.Context, sessionID string, p *model.PendingPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[sessionID] = *p
	return nil
}

func (m *memPendingRepo) Get(ctx context.Context, sessionID string) (*model.PendingPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *memPendingRepo) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, sessionID)
	m.clears++
	return nil
}

func (m *memPendingRepo) has(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.store[sessionID]
	return ok
}

// ---- Popup signals (in-memory) ----

var _ repository.PopupRepository = (*memPopupRepo)(nil)

type memPopupRepo struct {
	mu       sync.Mutex
	closed   map[string]bool
	outcomes map[string]model.PaymentOutcome
}

func newMemPopupRepo() *memPopupRepo {
	return &memPopupRepo{closed: map[string]bool{}, outcomes: map[string]model.PaymentOutcome{}}
}

func (m *memPopupRepo) MarkClosed(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed[sessionID] = true
	return nil
}

func (m *memPopupRepo) IsClosed(ctx context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed[sessionID], nil
}

func (m *memPopupRepo) ClearClosed(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.closed, sessionID)
	return nil
}

func (m *memPopupRepo) SaveOutcome(ctx context.Context, sessionID string, o *model.PaymentOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[sessionID] = *o
	return nil
}

func (m *memPopupRepo) GetOutcome(ctx context.Context, sessionID string) (*model.PaymentOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.outcomes[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &o, nil
}

func (m *memPopupRepo) ClearOutcome(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.outcomes, sessionID)
	return nil
}

// ---- In-memory Locker ----

type MockLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func NewMockLocker() *MockLocker { return &MockLocker{held: map[string]string{}} }

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", domain.ErrResolveInProgress
	}
	l.held[key] = "tok-" + key
	return l.held[key], nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// ---- Fixed-window limiter ----

type memLimiter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newMemLimiter() *memLimiter { return &memLimiter{counts: map[string]int{}} }

func (l *memLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[key]++
	return l.counts[key] <= limit, nil
}

// ---- Service backend ----

var _ adapter.ServiceBackend = (*MockServiceBackend)(nil)

type MockServiceBackend struct {
	VerifyVINFunc         func(ctx context.Context, flow model.Flow, vin string) (*model.VINVerification, error)
	SubmitOwnerFunc       func(ctx context.Context, flow model.Flow, requestID string, owner model.OwnerInfo) error
	UploadDocumentFunc    func(ctx context.Context, flow model.Flow, requestID string, doc model.DocumentUpload) (*model.UploadedDocument, error)
	VerifyOTPFunc         func(ctx context.Context, flow model.Flow, requestID, otp string) error
	SendOTPFunc           func(ctx context.Context, flow model.Flow, requestID string) error
	QuoteFunc             func(ctx context.Context, flow model.Flow, requestID string) (int64, error)
	EstimateValuationFunc func(ctx context.Context, vin string, d model.VehicleDetails) (*model.Valuation, error)

	calls atomic.Int32
}

func (m *MockServiceBackend) Calls() int { return int(m.calls.Load()) }

func (m *MockServiceBackend) VerifyVIN(ctx context.Context, flow model.Flow, vin string) (*model.VINVerification, error) {
	m.calls.Add(1)
	if m.VerifyVINFunc != nil {
		return m.VerifyVINFunc(ctx, flow, vin)
	}
	return &model.VINVerification{RequestID: "req-1", Vehicle: model.VehicleInfo{Make: "Toyota"}}, nil
}

func (m *MockServiceBackend) SubmitOwner(ctx context.Context, flow model.Flow, requestID string, owner model.OwnerInfo) error {
	m.calls.Add(1)
	if m.SubmitOwnerFunc != nil {
		return m.SubmitOwnerFunc(ctx, flow, requestID, owner)
	}
	return nil
}

func (m *MockServiceBackend) SubmitNextOwner(ctx context.Context, flow model.Flow, requestID string, owner model.OwnerInfo) error {
	m.calls.Add(1)
	return nil
}

func (m *MockServiceBackend) SubmitVehicleDetails(ctx context.Context, flow model.Flow, requestID string, d model.VehicleDetails) error {
	m.calls.Add(1)
	return nil
}

func (m *MockServiceBackend) UploadDocument(ctx context.Context, flow model.Flow, requestID string, doc model.DocumentUpload) (*model.UploadedDocument, error) {
	m.calls.Add(1)
	if m.UploadDocumentFunc != nil {
		return m.UploadDocumentFunc(ctx, flow, requestID, doc)
	}
	return &model.UploadedDocument{ID: "doc-" + string(doc.Kind), Kind: doc.Kind, FileName: doc.FileName}, nil
}

func (m *MockServiceBackend) SubmitAdditionalInfo(ctx context.Context, flow model.Flow, requestID string, info model.AdditionalInfo) error {
	m.calls.Add(1)
	return nil
}

func (m *MockServiceBackend) SendOTP(ctx context.Context, flow model.Flow, requestID string) error {
	m.calls.Add(1)
	if m.SendOTPFunc != nil {
		return m.SendOTPFunc(ctx, flow, requestID)
	}
	return nil
}

func (m *MockServiceBackend) VerifyOTP(ctx context.Context, flow model.Flow, requestID, otp string) error {
	m.calls.Add(1)
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, flow, requestID, otp)
	}
	return nil
}

func (m *MockServiceBackend) Quote(ctx context.Context, flow model.Flow, requestID string) (int64, error) {
	m.calls.Add(1)
	if m.QuoteFunc != nil {
		return m.QuoteFunc(ctx, flow, requestID)
	}
	return 12500, nil
}

func (m *MockServiceBackend) EstimateValuation(ctx context.Context, vin string, d model.VehicleDetails) (*model.Valuation, error) {
	m.calls.Add(1)
	if m.EstimateValuationFunc != nil {
		return m.EstimateValuationFunc(ctx, vin, d)
	}
	return &model.Valuation{Low: 4_000_000, High: 6_000_000, Estimate: 5_000_000, Currency: "NGN"}, nil
}

// ---- Payment backend ----

var _ adapter.PaymentBackend = (*MockPaymentBackend)(nil)

type MockPaymentBackend struct {
	InitiateFunc func(ctx context.Context, svc model.ServiceType, requestID string, amount int64, email, callbackURL string) (*adapter.PaymentSession, error)
	VerifyFunc   func(ctx context.Context, svc model.ServiceType, requestID, reference string) (*model.VerificationResult, error)

	verifyCalls atomic.Int32
}

func (m *MockPaymentBackend) VerifyCalls() int { return int(m.verifyCalls.Load()) }

func (m *MockPaymentBackend) InitiatePayment(ctx context.Context, svc model.ServiceType, requestID string, amount int64, email, callbackURL string) (*adapter.PaymentSession, error) {
	if m.InitiateFunc != nil {
		return m.InitiateFunc(ctx, svc, requestID, amount, email, callbackURL)
	}
	return &adapter.PaymentSession{AuthorizationURL: "https://gateway.test/pay/abc", Reference: "ref-abc"}, nil
}

func (m *MockPaymentBackend) VerifyPayment(ctx context.Context, svc model.ServiceType, requestID, reference string) (*model.VerificationResult, error) {
	m.verifyCalls.Add(1)
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, svc, requestID, reference)
	}
	return &model.VerificationResult{Status: model.VerificationSuccess}, nil
}

// ---- Background tasks ----

// syncSubmitter runs submitted tasks on the caller's goroutine.
type syncSubmitter struct {
	ctx   context.Context
	tasks int
}

func (s *syncSubmitter) Submit(task func(ctx context.Context) error) error {
	s.tasks++
	return task(s.ctx)
}

// ---- Fixtures ----

func flowOf(kind string) model.Flow {
	f, ok := model.LookupFlow(kind)
	if !ok {
		panic("unknown flow " + kind)
	}
	return f
}

func validOwner() model.OwnerInfo {
	return model.OwnerInfo{
		FullName: "Ada Obi",
		Email:    "ada@example.com",
		Phone:    "08031234567",
		NIN:      "12345678901",
		Address:  "1 Marina, Lagos",
		State:    "LA",
		LGA:      "Ikeja",
	}
}

// seedReview stores a renewal run that has reached review with the given amount.
func seedReview(repo *memStateRepo, id string, amount int64) *model.WizardState {
	s := &model.WizardState{
		ID:        id,
		Flow:      model.FlowRenewal,
		Step:      model.StepReview,
		RequestID: "req-9",
		VIN:       "1HGCM82633A004352",
		Vehicle:   &model.VehicleInfo{Make: "Toyota"},
		Owner:     &model.OwnerInfo{Email: "ada@example.com"},
		Amount:    amount,
	}
	repo.Save(context.Background(), s)
	return s
}
