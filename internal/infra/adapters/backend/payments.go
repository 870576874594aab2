package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"pals-portal/internal/domain"
	"pals-portal/internal/domain/model"
	"pals-portal/internal/domain/ports/adapter"
)

var _ adapter.PaymentBackend = (*Client)(nil)

// SuccessPredicate decides whether an initiate-payment answer is a success.
// Services disagree on the field: some send status:"success", others
// success:true.
type SuccessPredicate string

const (
	PredicateStatus SuccessPredicate = "status" // status == "success" (or true)
	PredicateFlag   SuccessPredicate = "flag"   // success == true
	PredicateURL    SuccessPredicate = "url"    // an authorization url is present
)

var defaultPredicates = map[model.ServiceType]SuccessPredicate{
	model.ServiceRegistration: PredicateStatus,
	model.ServiceTransfer:     PredicateStatus,
	model.ServiceMigration:    PredicateFlag,
	model.ServiceRenewal:      PredicateFlag,
}

func parsePredicates(in map[string]string) (map[model.ServiceType]SuccessPredicate, error) {
	out := make(map[model.ServiceType]SuccessPredicate, len(defaultPredicates))
	for k, v := range defaultPredicates {
		out[k] = v
	}
	for svc, p := range in {
		s, err := model.ParseServiceType(svc)
		if err != nil {
			return nil, fmt.Errorf("success predicate: %w: %s", err, svc)
		}
		switch pred := SuccessPredicate(strings.ToLower(p)); pred {
		case PredicateStatus, PredicateFlag, PredicateURL:
			out[s] = pred
		default:
			return nil, fmt.Errorf("success predicate %q for %s", p, svc)
		}
	}
	return out, nil
}

// initiateResponse covers both shapes the services answer with:
// flat {paymentUrl, reference} and nested {data:{authorization_url, reference}}.
type initiateResponse struct {
	Status     json.RawMessage `json:"status"`
	Success    *bool           `json:"success"`
	Message    string          `json:"message"`
	PaymentURL string          `json:"paymentUrl"`
	Reference  string          `json:"reference"`
	Data       *struct {
		AuthorizationURL string `json:"authorization_url"`
		PaymentURL       string `json:"paymentUrl"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

func (r *initiateResponse) url() string {
	if r.PaymentURL != "" {
		return r.PaymentURL
	}
	if r.Data != nil {
		if r.Data.AuthorizationURL != "" {
			return r.Data.AuthorizationURL
		}
		return r.Data.PaymentURL
	}
	return ""
}

func (r *initiateResponse) reference() string {
	if r.Reference != "" {
		return r.Reference
	}
	if r.Data != nil {
		return r.Data.Reference
	}
	return ""
}

// succeeded applies the service's predicate. A response without the
// predicate's field is judged by the presence of a url.
func (r *initiateResponse) succeeded(p SuccessPredicate) bool {
	switch p {
	case PredicateStatus:
		if len(r.Status) > 0 {
			return statusIsSuccess(r.Status)
		}
	case PredicateFlag:
		if r.Success != nil {
			return *r.Success
		}
	}
	return r.url() != ""
}

func statusIsSuccess(raw json.RawMessage) bool {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.EqualFold(s, "success")
	}
	var b bool
	return json.Unmarshal(raw, &b) == nil && b
}

// normalizeInitiate turns a decoded answer into a session, or
// domain.ErrPaymentInitiation when it carries no usable url and reference.
func normalizeInitiate(r *initiateResponse, p SuccessPredicate) (*adapter.PaymentSession, error) {
	if !r.succeeded(p) {
		if r.Message != "" {
			return nil, errors.Join(domain.ErrPaymentInitiation, &adapter.BackendError{Status: http.StatusOK, Message: r.Message})
		}
		return nil, domain.ErrPaymentInitiation
	}
	u, ref := r.url(), r.reference()
	if u == "" || ref == "" {
		return nil, domain.ErrPaymentInitiation
	}
	return &adapter.PaymentSession{AuthorizationURL: u, Reference: ref}, nil
}

func (c *Client) InitiatePayment(ctx context.Context, svc model.ServiceType, requestID string, amount int64, email, callbackURL string) (*adapter.PaymentSession, error) {
	body := map[string]any{
		"requestId":   requestID,
		"amount":      amount,
		"email":       email,
		"callbackUrl": callbackURL,
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint(svc.PathSegment(), requestID, "initiate-payment"), jsonBody(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	// decoded at the root: the nested shape is part of the contract here
	var raw json.RawMessage
	if err := c.send(req, "initiate_payment", "", &raw); err != nil {
		return nil, err
	}
	var resp initiateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, domain.ErrPaymentInitiation
	}
	return normalizeInitiate(&resp, c.predicates[svc])
}

type verifyResponse struct {
	Status  json.RawMessage `json:"status"`
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    map[string]any  `json:"data"`
}

var (
	successWords = map[string]bool{"success": true, "successful": true, "paid": true, "completed": true, "approved": true}
	failedWords  = map[string]bool{"failed": true, "failure": true, "abandoned": true, "reversed": true, "declined": true, "cancelled": true}
)

func classify(s string) (model.VerificationStatus, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case successWords[s]:
		return model.VerificationSuccess, true
	case failedWords[s]:
		return model.VerificationFailed, true
	case s != "":
		return model.VerificationPending, true
	}
	return "", false
}

// normalizeVerify reads the payment status from data.status, then the root
// status, then the success flag. Anything else is pending.
func normalizeVerify(r *verifyResponse) *model.VerificationResult {
	out := &model.VerificationResult{Status: model.VerificationPending, Message: r.Message}
	status, found := "", false
	if s, ok := r.Data["status"].(string); ok {
		status, found = s, true
	} else if len(r.Status) > 0 {
		var s string
		if json.Unmarshal(r.Status, &s) == nil {
			status, found = s, true
		}
	}
	if found {
		if st, ok := classify(status); ok {
			out.Status = st
		}
	} else if r.Success != nil {
		if *r.Success {
			out.Status = model.VerificationSuccess
		} else {
			out.Status = model.VerificationFailed
		}
	}

	for k, v := range r.Data {
		if k == "status" {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case float64, bool:
			s = fmt.Sprint(t)
		default:
			continue
		}
		if out.Detail == nil {
			out.Detail = map[string]string{}
		}
		out.Detail[k] = s
	}
	return out
}

func (c *Client) VerifyPayment(ctx context.Context, svc model.ServiceType, requestID, reference string) (*model.VerificationResult, error) {
	body := map[string]string{"requestId": requestID, "reference": reference}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint(svc.PathSegment(), requestID, "verify-payment"), jsonBody(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var raw json.RawMessage
	if err := c.send(req, "verify_payment", "", &raw); err != nil {
		return nil, err
	}
	var resp verifyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("verify_payment: %w: %v", errMalformed, err)
	}
	return normalizeVerify(&resp), nil
}
