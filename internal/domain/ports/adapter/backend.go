package adapter

import (
	"context"
	"fmt"

	"pals-portal/internal/domain/model"
)

// BackendError is a non-2xx answer from the REST backend. Message is the
// backend's own "message" field and may be shown to the citizen verbatim.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: status %d", e.Status)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}

// PaymentSession is a normalized initiate-payment answer.
type PaymentSession struct {
	AuthorizationURL string
	Reference        string
}

// ServiceBackend covers the per-service wizard mutations. Every call is
// scoped by the flow's backend collection and the request id issued by
// VerifyVIN.
type ServiceBackend interface {
	VerifyVIN(ctx context.Context, flow model.Flow, vin string) (*model.VINVerification, error)
	SubmitOwner(ctx context.Context, flow model.Flow, requestID string, owner model.OwnerInfo) error
	SubmitNextOwner(ctx context.Context, flow model.Flow, requestID string, owner model.OwnerInfo) error
	SubmitVehicleDetails(ctx context.Context, flow model.Flow, requestID string, d model.VehicleDetails) error
	UploadDocument(ctx context.Context, flow model.Flow, requestID string, doc model.DocumentUpload) (*model.UploadedDocument, error)
	SubmitAdditionalInfo(ctx context.Context, flow model.Flow, requestID string, info model.AdditionalInfo) error
	SendOTP(ctx context.Context, flow model.Flow, requestID string) error
	VerifyOTP(ctx context.Context, flow model.Flow, requestID, otp string) error
	// Quote returns the amount due in whole naira.
	Quote(ctx context.Context, flow model.Flow, requestID string) (int64, error)
	EstimateValuation(ctx context.Context, vin string, d model.VehicleDetails) (*model.Valuation, error)
}

// PaymentBackend starts and verifies gateway payments through the backend.
type PaymentBackend interface {
	InitiatePayment(ctx context.Context, svc model.ServiceType, requestID string, amount int64, email, callbackURL string) (*PaymentSession, error)
	VerifyPayment(ctx context.Context, svc model.ServiceType, requestID, reference string) (*model.VerificationResult, error)
}

type GeographyBackend interface {
	States(ctx context.Context) ([]model.State, error)
	LGAs(ctx context.Context, state string) ([]model.LGA, error)
}

type TenantBackend interface {
	CurrentTenant(ctx context.Context) (*model.Tenant, error)
}

type AdminBackend interface {
	Login(ctx context.Context, email, password string) (*model.AdminSession, error)
	Dashboard(ctx context.Context, token string) (*model.DashboardStats, error)
}
