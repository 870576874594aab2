package model

import (
	"strings"

	"pals-portal/internal/domain"
)

// ServiceType identifies which business flow a payment belongs to.
type ServiceType string

const (
	ServiceRegistration ServiceType = "registration"
	ServiceMigration    ServiceType = "migration"
	ServiceTransfer     ServiceType = "transfer"
	ServiceRenewal      ServiceType = "renewal"
)

// backend collection names, also used in backend-issued redirect urls
var serviceSegments = map[ServiceType]string{
	ServiceRegistration: "registrations",
	ServiceMigration:    "migrations",
	ServiceTransfer:     "transfers",
	ServiceRenewal:      "renewals",
}

func (s ServiceType) Valid() bool {
	_, ok := serviceSegments[s]
	return ok
}

// PathSegment returns the backend collection name, e.g. "registrations".
func (s ServiceType) PathSegment() string { return serviceSegments[s] }

// Flow returns the wizard flow that collects payment for this service.
func (s ServiceType) Flow() FlowKind { return FlowKind(s) }

// ParseServiceType accepts the canonical service name.
func ParseServiceType(v string) (ServiceType, error) {
	s := ServiceType(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", domain.ErrUnknownService
	}
	return s, nil
}

// ServiceFromSegment infers the service type from a url path segment
// (registrations|transfers|renewals|migrations).
func ServiceFromSegment(seg string) (ServiceType, error) {
	seg = strings.ToLower(strings.TrimSpace(seg))
	for s, p := range serviceSegments {
		if p == seg {
			return s, nil
		}
	}
	return "", domain.ErrUnknownService
}

// PaymentMode is the handoff policy used to reach the gateway.
type PaymentMode string

const (
	PaymentModeInline PaymentMode = "inline" // full-page redirect
	PaymentModePopup  PaymentMode = "popup"  // secondary window, watched until closed
)

func ParsePaymentMode(v string) (PaymentMode, bool) {
	switch PaymentMode(strings.ToLower(strings.TrimSpace(v))) {
	case PaymentModeInline:
		return PaymentModeInline, true
	case PaymentModePopup:
		return PaymentModePopup, true
	}
	return "", false
}
