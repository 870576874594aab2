//go:build !integration

package web

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"pals-portal/internal/domain"
	"pals-portal/internal/domain/model"
	"pals-portal/internal/domain/ports/adapter"
	"pals-portal/internal/infra/i18n"
	"pals-portal/internal/infra/redis"
	"pals-portal/internal/infra/security"
	"pals-portal/internal/usecase"
)

const testVIN = "1HGCM82633A004352"

// ---- Backend (hand mock) ----

var (
	_ adapter.ServiceBackend   = (*fakeBackend)(nil)
	_ adapter.PaymentBackend   = (*fakeBackend)(nil)
	_ adapter.GeographyBackend = (*fakeBackend)(nil)
	_ adapter.TenantBackend    = (*fakeBackend)(nil)
	_ adapter.AdminBackend     = (*fakeBackend)(nil)
)

type initiateCall struct {
	Service   model.ServiceType
	RequestID string
	Amount    int64
	Email     string
}

type fakeBackend struct {
	mu sync.Mutex

	verifyVINCalls int
	vehicleCalls   int
	verifyOTPCalls int
	sendOTPCalls   int
	initiateCalls  []initiateCall
	verifyCalls    int

	quote      int64
	session    *adapter.PaymentSession
	initErr    error
	verifyRes  *model.VerificationResult
	verifyErr  error
	adminToken string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		quote:      12500,
		session:    &adapter.PaymentSession{AuthorizationURL: "https://checkout.test/pay/abc", Reference: "ref-1"},
		verifyRes:  &model.VerificationResult{Status: model.VerificationSuccess, Message: "Payment verified"},
		adminToken: "backend-token",
	}
}

func (f *fakeBackend) VerifyVIN(ctx context.Context, flow model.Flow, vin string) (*model.VINVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyVINCalls++
	return &model.VINVerification{
		RequestID:  "REQ-1",
		Vehicle:    model.VehicleInfo{Make: "Toyota", Model: "Corolla", Year: 2015, Color: "Blue"},
		OwnerPhone: "0803****567",
	}, nil
}

func (f *fakeBackend) SubmitOwner(ctx context.Context, flow model.Flow, requestID string, owner model.OwnerInfo) error {
	return nil
}

func (f *fakeBackend) SubmitNextOwner(ctx context.Context, flow model.Flow, requestID string, owner model.OwnerInfo) error {
	return nil
}

func (f *fakeBackend) SubmitVehicleDetails(ctx context.Context, flow model.Flow, requestID string, d model.VehicleDetails) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vehicleCalls++
	return nil
}

func (f *fakeBackend) UploadDocument(ctx context.Context, flow model.Flow, requestID string, doc model.DocumentUpload) (*model.UploadedDocument, error) {
	return &model.UploadedDocument{ID: "doc-" + string(doc.Kind), Kind: doc.Kind, FileName: doc.FileName}, nil
}

func (f *fakeBackend) SubmitAdditionalInfo(ctx context.Context, flow model.Flow, requestID string, info model.AdditionalInfo) error {
	return nil
}

func (f *fakeBackend) SendOTP(ctx context.Context, flow model.Flow, requestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendOTPCalls++
	return nil
}

func (f *fakeBackend) VerifyOTP(ctx context.Context, flow model.Flow, requestID, otp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyOTPCalls++
	return nil
}

func (f *fakeBackend) Quote(ctx context.Context, flow model.Flow, requestID string) (int64, error) {
	return f.quote, nil
}

func (f *fakeBackend) EstimateValuation(ctx context.Context, vin string, d model.VehicleDetails) (*model.Valuation, error) {
	return &model.Valuation{Low: 4000000, High: 5000000, Estimate: 4500000, Currency: "NGN"}, nil
}

func (f *fakeBackend) InitiatePayment(ctx context.Context, svc model.ServiceType, requestID string, amount int64, email, callbackURL string) (*adapter.PaymentSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initiateCalls = append(f.initiateCalls, initiateCall{Service: svc, RequestID: requestID, Amount: amount, Email: email})
	if f.initErr != nil {
		return nil, f.initErr
	}
	return f.session, nil
}

func (f *fakeBackend) VerifyPayment(ctx context.Context, svc model.ServiceType, requestID, reference string) (*model.VerificationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	return f.verifyRes, f.verifyErr
}

func (f *fakeBackend) States(ctx context.Context) ([]model.State, error) {
	return []model.State{{Code: "LA", Name: "Lagos"}, {Code: "OG", Name: "Ogun"}}, nil
}

func (f *fakeBackend) LGAs(ctx context.Context, state string) ([]model.LGA, error) {
	if state == "" {
		return nil, domain.ErrInvalidArgument
	}
	return []model.LGA{{Code: "IKJ", Name: "Ikeja"}}, nil
}

func (f *fakeBackend) CurrentTenant(ctx context.Context) (*model.Tenant, error) {
	return &model.Tenant{Code: "lasg", Name: "Lagos PALS", SupportEmail: "help@pals.test"}, nil
}

func (f *fakeBackend) Login(ctx context.Context, email, password string) (*model.AdminSession, error) {
	if password != "secret" {
		return nil, domain.ErrUnauthorized
	}
	return &model.AdminSession{Token: f.adminToken, Name: "Ada", Email: email, Role: "admin"}, nil
}

func (f *fakeBackend) Dashboard(ctx context.Context, token string) (*model.DashboardStats, error) {
	if token != f.adminToken {
		return nil, domain.ErrUnauthorized
	}
	return &model.DashboardStats{Registrations: 42, Renewals: 7, Revenue: 1500000}, nil
}

// ---- Harness ----

type harness struct {
	t       *testing.T
	srv     *httptest.Server
	client  *http.Client
	backend *fakeBackend
	popups  *redis.PopupRepo
	pending *redis.PendingPaymentRepo
}

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// newHarness wires the real use cases over miniredis and a fake backend.
func newHarness(t *testing.T, modes map[model.ServiceType]model.PaymentMode) *harness {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	cli := redis.NewFromRedis(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cli.Close() })

	logger := newTestLogger()
	be := newFakeBackend()
	states := redis.NewWizardStateRepo(cli, 15*time.Minute)
	pending := redis.NewPendingPaymentRepo(cli, time.Hour)
	popups := redis.NewPopupRepo(cli, 10*time.Minute)

	wizard := usecase.NewWizardUseCase(states, be, redis.NewRateLimiter(cli), usecase.OTPPolicy{Limit: 2, Window: time.Minute}, logger)
	payments := usecase.NewPaymentUseCase(wizard, be, pending, popups, nil,
		usecase.PaymentConfig{CallbackURL: "http://portal.test/payment/callback", Modes: modes}, logger)
	callbacks := usecase.NewCallbackUseCase(pending, be, redis.NewLocker(cli), logger).RecordOutcomes(popups)

	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	require.NoError(t, err)
	tc, err := security.NewTokenCipher("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	s, err := NewServer(Deps{
		Wizard:     wizard,
		Payments:   payments,
		Callbacks:  callbacks,
		Admin:      usecase.NewAdminUseCase(be, logger),
		Lookups:    usecase.NewLookupUseCase(be, be),
		Popups:     popups,
		Auth:       NewAuthManager("test-secret", tc, false, "", time.Hour),
		Translator: tr,
	}, Options{SuccessDelay: 3 * time.Second}, logger)
	require.NoError(t, err)

	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &harness{t: t, srv: srv, client: client, backend: be, popups: popups, pending: pending}
}

type response struct {
	Status   int
	Location string
	Body     string
}

func (h *harness) do(req *http.Request) response {
	h.t.Helper()
	res, err := h.client.Do(req)
	require.NoError(h.t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(h.t, err)
	return response{Status: res.StatusCode, Location: res.Header.Get("Location"), Body: string(body)}
}

func (h *harness) get(path string) response {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.srv.URL+path, nil)
	require.NoError(h.t, err)
	return h.do(req)
}

func (h *harness) post(path string, form url.Values) response {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(req)
}

// sessionID returns the browser session the jar carries.
func (h *harness) sessionID() string {
	h.t.Helper()
	u, err := url.Parse(h.srv.URL + "/")
	require.NoError(h.t, err)
	for _, c := range h.client.Jar.Cookies(u) {
		if c.Name == sessionCookie {
			return c.Value
		}
	}
	h.t.Fatal("no session cookie")
	return ""
}

func ownerForm() url.Values {
	return url.Values{
		"fullName": {"Ada Obi"},
		"email":    {"ada@example.com"},
		"phone":    {"08031234567"},
		"nin":      {"12345678901"},
		"address":  {"1 Marina Road"},
		"state":    {"Lagos"},
		"lga":      {"Ikeja"},
	}
}

// reachRenewalReview walks the renewal flow up to its review page.
func (h *harness) reachRenewalReview() {
	h.t.Helper()
	res := h.post("/services/renewal/enter-vin", url.Values{"vin": {testVIN}})
	require.Equal(h.t, http.StatusSeeOther, res.Status, res.Body)
	res = h.post("/services/renewal/owner-information", ownerForm())
	require.Equal(h.t, http.StatusSeeOther, res.Status, res.Body)
	require.Equal(h.t, "/services/renewal/review", res.Location)
}
