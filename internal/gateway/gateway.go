// Package gateway defines the collaborator interfaces the console uses to
// reach the AllinConnect service, one interface per resource domain.
package gateway

import (
	"context"
	"errors"

	"allinconnect/backoffice/internal/domain"
)

var (
	// ErrNotFound reports that the addressed record does not exist upstream.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable reports that an optional endpoint is not served by this
	// deployment of the remote service.
	ErrUnavailable = errors.New("endpoint unavailable")
)

type Auth interface {
	Login(ctx context.Context, email, password string) (domain.Identity, error)
}

type Users interface {
	List(ctx context.Context) ([]domain.User, error)
	UpdateProfile(ctx context.Context, id int64, patch domain.FieldPatch) error
}

type Offers interface {
	List(ctx context.Context) ([]domain.Offer, error)
	Update(ctx context.Context, id int64, patch domain.FieldPatch) error
}

type Subscriptions interface {
	ListPlans(ctx context.Context) ([]domain.SubscriptionPlan, error)
	CreatePlan(ctx context.Context, patch domain.FieldPatch) error
	UpdatePlan(ctx context.Context, id int64, patch domain.FieldPatch) error
	DeletePlan(ctx context.Context, id int64) error
	ListMyPayments(ctx context.Context) ([]domain.Payment, error)
	UpdatePayment(ctx context.Context, id int64, patch domain.FieldPatch) error
}

type Wallet interface {
	AdminHistory(ctx context.Context) ([]domain.WalletTransaction, error)
	AdminRequests(ctx context.Context) ([]domain.WalletRequest, error)
	UpdateRequestStatus(ctx context.Context, id int64, status domain.RequestStatus) error
}

type Statistics interface {
	DashboardSummary(ctx context.Context) (domain.DashboardSummary, error)
	// DashboardFull returns the month-by-month statistics. Deployments that
	// do not serve it fail with ErrUnavailable.
	DashboardFull(ctx context.Context) (domain.DashboardStats, error)
	Detailed(ctx context.Context) (domain.DetailedStatistics, error)
}

// Set bundles one implementation of every gateway.
type Set struct {
	Auth          Auth
	Users         Users
	Offers        Offers
	Subscriptions Subscriptions
	Wallet        Wallet
	Statistics    Statistics
}
