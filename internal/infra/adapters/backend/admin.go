package backend

import (
	"context"
	"fmt"
	"net/http"

	"pals-portal/internal/domain/model"
	"pals-portal/internal/domain/ports/adapter"
)

var _ adapter.AdminBackend = (*Client)(nil)

func (c *Client) Login(ctx context.Context, email, password string) (*model.AdminSession, error) {
	var out struct {
		Token       string `json:"token"`
		AccessToken string `json:"accessToken"`
		User        *struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.call(ctx, "auth_login", http.MethodPost, c.endpoint("auth", "login"), "", body, &out); err != nil {
		return nil, err
	}
	sess := &model.AdminSession{Token: out.Token, Email: email}
	if sess.Token == "" {
		sess.Token = out.AccessToken
	}
	if sess.Token == "" {
		return nil, fmt.Errorf("auth_login: %w: no token", errMalformed)
	}
	if out.User != nil {
		sess.Name, sess.Role = out.User.Name, out.User.Role
		if out.User.Email != "" {
			sess.Email = out.User.Email
		}
	}
	return sess, nil
}

func (c *Client) Dashboard(ctx context.Context, token string) (*model.DashboardStats, error) {
	var out model.DashboardStats
	if err := c.call(ctx, "admin_dashboard", http.MethodGet, c.endpoint("admin", "dashboard"), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
