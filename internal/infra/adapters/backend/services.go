package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/shopspring/decimal"

	"pals-portal/internal/domain/model"
	"pals-portal/internal/domain/ports/adapter"
)

var _ adapter.ServiceBackend = (*Client)(nil)

func (c *Client) VerifyVIN(ctx context.Context, flow model.Flow, vin string) (*model.VINVerification, error) {
	var out model.VINVerification
	err := c.call(ctx, "verify_vin", http.MethodPost, c.endpoint(flow.Segment, "verify-vin"), "",
		map[string]string{"vin": vin}, &out)
	if err != nil {
		return nil, err
	}
	if out.RequestID == "" {
		return nil, fmt.Errorf("verify_vin: %w: no requestId", errMalformed)
	}
	return &out, nil
}

func (c *Client) SubmitOwner(ctx context.Context, flow model.Flow, requestID string, owner model.OwnerInfo) error {
	return c.call(ctx, "owner_information", http.MethodPost,
		c.endpoint(flow.Segment, requestID, "owner-information"), "", owner, nil)
}

func (c *Client) SubmitNextOwner(ctx context.Context, flow model.Flow, requestID string, owner model.OwnerInfo) error {
	return c.call(ctx, "next_owner", http.MethodPost,
		c.endpoint(flow.Segment, requestID, "next-owner"), "", owner, nil)
}

func (c *Client) SubmitVehicleDetails(ctx context.Context, flow model.Flow, requestID string, d model.VehicleDetails) error {
	return c.call(ctx, "vehicle_details", http.MethodPost,
		c.endpoint(flow.Segment, requestID, "vehicle-details"), "", d, nil)
}

func (c *Client) SubmitAdditionalInfo(ctx context.Context, flow model.Flow, requestID string, info model.AdditionalInfo) error {
	return c.call(ctx, "additional_information", http.MethodPost,
		c.endpoint(flow.Segment, requestID, "additional-information"), "", info, nil)
}

func (c *Client) SendOTP(ctx context.Context, flow model.Flow, requestID string) error {
	return c.call(ctx, "send_otp", http.MethodPost,
		c.endpoint(flow.Segment, requestID, "send-otp"), "", struct{}{}, nil)
}

func (c *Client) VerifyOTP(ctx context.Context, flow model.Flow, requestID, otp string) error {
	var out struct {
		Verified *bool  `json:"verified"`
		Message  string `json:"message"`
	}
	err := c.call(ctx, "verify_otp", http.MethodPost,
		c.endpoint(flow.Segment, requestID, "verify-otp"), "", map[string]string{"otp": otp}, &out)
	if err != nil {
		return err
	}
	if out.Verified != nil && !*out.Verified {
		return &adapter.BackendError{Status: http.StatusUnprocessableEntity, Message: out.Message}
	}
	return nil
}

// Quote returns the amount due in whole naira. The backend may send the
// amount as a number or a string.
func (c *Client) Quote(ctx context.Context, flow model.Flow, requestID string) (int64, error) {
	var out struct {
		Amount decimal.NullDecimal `json:"amount"`
	}
	err := c.call(ctx, "quote", http.MethodGet, c.endpoint(flow.Segment, requestID, "quote"), "", nil, &out)
	if err != nil {
		return 0, err
	}
	if !out.Amount.Valid {
		return 0, fmt.Errorf("quote: %w: no amount", errMalformed)
	}
	return out.Amount.Decimal.Round(0).IntPart(), nil
}

func (c *Client) EstimateValuation(ctx context.Context, vin string, d model.VehicleDetails) (*model.Valuation, error) {
	req := map[string]any{"vin": vin, "mileage": d.Mileage, "condition": d.Condition}
	var out struct {
		Low      decimal.Decimal `json:"low"`
		High     decimal.Decimal `json:"high"`
		Estimate decimal.Decimal `json:"estimate"`
		Currency string          `json:"currency"`
	}
	if err := c.call(ctx, "valuation", http.MethodPost, c.endpoint("valuation", "estimate"), "", req, &out); err != nil {
		return nil, err
	}
	if out.Estimate.IsZero() {
		return nil, fmt.Errorf("valuation: %w: no estimate", errMalformed)
	}
	if out.Currency == "" {
		out.Currency = "NGN"
	}
	return &model.Valuation{
		Low:      out.Low.Round(0).IntPart(),
		High:     out.High.Round(0).IntPart(),
		Estimate: out.Estimate.Round(0).IntPart(),
		Currency: out.Currency,
	}, nil
}

// UploadDocument forwards one file as multipart/form-data with the
// document kind in the "documentType" field.
func (c *Client) UploadDocument(ctx context.Context, flow model.Flow, requestID string, doc model.DocumentUpload) (*model.UploadedDocument, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("documentType", string(doc.Kind)); err != nil {
		return nil, err
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, doc.FileName))
	h.Set("Content-Type", doc.ContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(flow.Segment, requestID, "documents"), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		ID       flexString `json:"id"`
		URL      string     `json:"url"`
		FileName string     `json:"fileName"`
	}
	if err := c.send(req, "upload_document", "", &out); err != nil {
		return nil, err
	}
	fileName := out.FileName
	if fileName == "" {
		fileName = doc.FileName
	}
	return &model.UploadedDocument{ID: string(out.ID), Kind: doc.Kind, FileName: fileName, URL: out.URL}, nil
}
