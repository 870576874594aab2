// File: internal/infra/adapters/backend/client.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pals-portal/internal/config"
	"pals-portal/internal/domain/model"
	"pals-portal/internal/domain/ports/adapter"
	"pals-portal/internal/infra/metrics"
)

const maxBody = 1 << 20

// errMalformed marks a 2xx answer that lacks a field the portal relies on.
var errMalformed = errors.New("backend: malformed response")

// Client talks to the PALS REST backend. Every request carries the tenant
// header; admin calls add a bearer token. Mutations are never retried.
type Client struct {
	base       *url.URL
	tenant     string
	http       *http.Client
	log        *zerolog.Logger
	predicates map[model.ServiceType]SuccessPredicate
}

func NewClient(cfg config.BackendConfig, predicates map[string]string, httpClient *http.Client, logger *zerolog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", cfg.BaseURL)
	}
	if cfg.Tenant == "" {
		return nil, errors.New("backend tenant empty")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	preds, err := parsePredicates(predicates)
	if err != nil {
		return nil, err
	}
	return &Client{base: base, tenant: cfg.Tenant, http: httpClient, log: logger, predicates: preds}, nil
}

func (c *Client) endpoint(parts ...string) string {
	esc := make([]string, len(parts))
	for i, p := range parts {
		esc[i] = url.PathEscape(p)
	}
	return c.base.String() + "/" + strings.Join(esc, "/")
}

func jsonBody(v any) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

// call is one JSON round trip. body and out may be nil.
func (c *Client) call(ctx context.Context, op, method, endpoint, token string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, op, token, out)
}

func (c *Client) send(req *http.Request, op, token string, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-tenant-id", c.tenant)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveBackend(op, 0, time.Since(start))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	metrics.ObserveBackend(op, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		be := &adapter.BackendError{Status: resp.StatusCode, Message: errorMessage(raw)}
		c.log.Debug().Str("op", op).Int("status", resp.StatusCode).Str("message", be.Message).Msg("backend error")
		return be
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if rm, ok := out.(*json.RawMessage); ok {
		*rm = append((*rm)[:0], raw...)
		return nil
	}
	if err := unwrap(raw, out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, errMalformed, err)
	}
	return nil
}

// errorMessage extracts {"message": "..."} from an error body. Some
// endpoints send a list of messages instead.
func errorMessage(raw []byte) string {
	var body struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	var s string
	if json.Unmarshal(body.Message, &s) == nil && s != "" {
		return s
	}
	var list []string
	if json.Unmarshal(body.Message, &list) == nil && len(list) > 0 {
		return strings.Join(list, "; ")
	}
	return body.Error
}

// unwrap decodes the payload of a success body, which may or may not be
// wrapped in {"data": ...}.
func unwrap(raw []byte, out any) error {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if json.Unmarshal(raw, &env) == nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, out); err == nil {
			return nil
		}
	}
	return json.Unmarshal(raw, out)
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
