package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"allinconnect/backoffice/internal/domain"
	"allinconnect/backoffice/internal/gateway"
)

// Gateways returns the full remote gateway set over a single client.
func Gateways(c *Client) gateway.Set {
	return gateway.Set{
		Auth:          &AuthGateway{c},
		Users:         &UsersGateway{c},
		Offers:        &OffersGateway{c},
		Subscriptions: &SubscriptionsGateway{c},
		Wallet:        &WalletGateway{c},
		Statistics:    &StatisticsGateway{c},
	}
}

type AuthGateway struct {
	c *Client
}

func (g *AuthGateway) Login(ctx context.Context, email, password string) (domain.Identity, error) {
	body := map[string]string{"email": email, "password": password}
	var out struct {
		Token     string `json:"token"`
		Email     string `json:"email"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		UserID    int64  `json:"userId"`
	}
	if err := g.c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, &out); err != nil {
		return domain.Identity{}, err
	}
	name := out.FirstName
	if out.LastName != "" {
		if name != "" {
			name += " "
		}
		name += out.LastName
	}
	return domain.Identity{Token: out.Token, Email: out.Email, Name: name, UserID: out.UserID}, nil
}

type UsersGateway struct {
	c *Client
}

func (g *UsersGateway) List(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	if err := g.c.do(ctx, http.MethodGet, "/api/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *UsersGateway) UpdateProfile(ctx context.Context, id int64, patch domain.FieldPatch) error {
	return g.c.do(ctx, http.MethodPut, fmt.Sprintf("/api/users/%d/profile", id), patch, nil)
}

type OffersGateway struct {
	c *Client
}

func (g *OffersGateway) List(ctx context.Context) ([]domain.Offer, error) {
	var out []domain.Offer
	if err := g.c.do(ctx, http.MethodGet, "/api/offers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *OffersGateway) Update(ctx context.Context, id int64, patch domain.FieldPatch) error {
	return g.c.do(ctx, http.MethodPut, fmt.Sprintf("/api/offers/%d", id), patch, nil)
}

type SubscriptionsGateway struct {
	c *Client
}

func (g *SubscriptionsGateway) ListPlans(ctx context.Context) ([]domain.SubscriptionPlan, error) {
	var out []domain.SubscriptionPlan
	if err := g.c.do(ctx, http.MethodGet, "/api/subscriptions/plans", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *SubscriptionsGateway) CreatePlan(ctx context.Context, patch domain.FieldPatch) error {
	return g.c.do(ctx, http.MethodPost, "/api/subscriptions/plans", patch, nil)
}

func (g *SubscriptionsGateway) UpdatePlan(ctx context.Context, id int64, patch domain.FieldPatch) error {
	return g.c.do(ctx, http.MethodPut, fmt.Sprintf("/api/subscriptions/plans/%d", id), patch, nil)
}

func (g *SubscriptionsGateway) DeletePlan(ctx context.Context, id int64) error {
	return g.c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/subscriptions/plans/%d", id), nil, nil)
}

func (g *SubscriptionsGateway) ListMyPayments(ctx context.Context) ([]domain.Payment, error) {
	var out []domain.Payment
	if err := g.c.do(ctx, http.MethodGet, "/api/subscriptions/payments/my", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *SubscriptionsGateway) UpdatePayment(ctx context.Context, id int64, patch domain.FieldPatch) error {
	return g.c.do(ctx, http.MethodPut, fmt.Sprintf("/api/subscriptions/payments/%d", id), patch, nil)
}

type WalletGateway struct {
	c *Client
}

func (g *WalletGateway) AdminHistory(ctx context.Context) ([]domain.WalletTransaction, error) {
	var out []domain.WalletTransaction
	if err := g.c.do(ctx, http.MethodGet, "/api/wallet/admin/history", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *WalletGateway) AdminRequests(ctx context.Context) ([]domain.WalletRequest, error) {
	var out []domain.WalletRequest
	if err := g.c.do(ctx, http.MethodGet, "/api/wallet/admin/requests", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *WalletGateway) UpdateRequestStatus(ctx context.Context, id int64, status domain.RequestStatus) error {
	body := map[string]domain.RequestStatus{"status": status}
	return g.c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/wallet/admin/requests/%d/status", id), body, nil)
}

type StatisticsGateway struct {
	c *Client
}

func (g *StatisticsGateway) DashboardSummary(ctx context.Context) (domain.DashboardSummary, error) {
	var out domain.DashboardSummary
	if err := g.c.do(ctx, http.MethodGet, "/api/v1/statistics/dashboard", nil, &out); err != nil {
		return domain.DashboardSummary{}, err
	}
	return out, nil
}

func (g *StatisticsGateway) DashboardFull(ctx context.Context) (domain.DashboardStats, error) {
	var out domain.DashboardStats
	err := g.c.do(ctx, http.MethodGet, "/api/v1/statistics/dashboard/full", nil, &out)
	if err != nil {
		// Older deployments do not serve the full endpoint.
		var apiErr *APIError
		if errors.Is(err, gateway.ErrNotFound) {
			return domain.DashboardStats{}, fmt.Errorf("%w: full dashboard statistics", gateway.ErrUnavailable)
		}
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotImplemented {
			return domain.DashboardStats{}, fmt.Errorf("%w: full dashboard statistics", gateway.ErrUnavailable)
		}
		return domain.DashboardStats{}, err
	}
	return out, nil
}

func (g *StatisticsGateway) Detailed(ctx context.Context) (domain.DetailedStatistics, error) {
	var out domain.DetailedStatistics
	if err := g.c.do(ctx, http.MethodGet, "/api/v1/statistics/detailed", nil, &out); err != nil {
		return domain.DetailedStatistics{}, err
	}
	return out, nil
}
