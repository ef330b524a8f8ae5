package dashboard

import (
	"context"
	"errors"
	"testing"

	"allinconnect/backoffice/internal/domain"
	"allinconnect/backoffice/internal/gateway"
)

type stubUsers struct {
	listCalls int
	listErr   error
	users     []domain.User
	updateErr error
	updated   []domain.FieldPatch
	updatedID int64
}

func (s *stubUsers) List(context.Context) ([]domain.User, error) {
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.User, len(s.users))
	copy(out, s.users)
	return out, nil
}

func (s *stubUsers) UpdateProfile(_ context.Context, id int64, patch domain.FieldPatch) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updatedID = id
	s.updated = append(s.updated, patch.Clone())
	return nil
}

type stubOffers struct {
	listCalls int
	listErr   error
	offers    []domain.Offer
	updateErr error
	updated   []domain.FieldPatch
}

func (s *stubOffers) List(context.Context) ([]domain.Offer, error) {
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.Offer, len(s.offers))
	copy(out, s.offers)
	return out, nil
}

func (s *stubOffers) Update(_ context.Context, id int64, patch domain.FieldPatch) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = append(s.updated, patch.Clone())
	return nil
}

type stubSubscriptions struct {
	planCalls    int
	paymentCalls int
	plansErr     error
	paymentsErr  error
	plans        []domain.SubscriptionPlan
	payments     []domain.Payment
	created      []domain.FieldPatch
	createErr    error
	updateErr    error
	deleteErr    error
	deletedIDs   []int64
}

func (s *stubSubscriptions) ListPlans(context.Context) ([]domain.SubscriptionPlan, error) {
	s.planCalls++
	if s.plansErr != nil {
		return nil, s.plansErr
	}
	out := make([]domain.SubscriptionPlan, len(s.plans))
	copy(out, s.plans)
	return out, nil
}

func (s *stubSubscriptions) CreatePlan(_ context.Context, patch domain.FieldPatch) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, patch.Clone())
	return nil
}

func (s *stubSubscriptions) UpdatePlan(_ context.Context, id int64, patch domain.FieldPatch) error {
	return s.updateErr
}

func (s *stubSubscriptions) DeletePlan(_ context.Context, id int64) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedIDs = append(s.deletedIDs, id)
	return nil
}

func (s *stubSubscriptions) ListMyPayments(context.Context) ([]domain.Payment, error) {
	s.paymentCalls++
	if s.paymentsErr != nil {
		return nil, s.paymentsErr
	}
	out := make([]domain.Payment, len(s.payments))
	copy(out, s.payments)
	return out, nil
}

func (s *stubSubscriptions) UpdatePayment(_ context.Context, id int64, patch domain.FieldPatch) error {
	return s.updateErr
}

type stubWallet struct {
	historyCalls  int
	requestCalls  int
	historyErr    error
	requestsErr   error
	history       []domain.WalletTransaction
	requests      []domain.WalletRequest
	statusErr     error
	statusUpdates []domain.RequestStatus
}

func (s *stubWallet) AdminHistory(context.Context) ([]domain.WalletTransaction, error) {
	s.historyCalls++
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	out := make([]domain.WalletTransaction, len(s.history))
	copy(out, s.history)
	return out, nil
}

func (s *stubWallet) AdminRequests(context.Context) ([]domain.WalletRequest, error) {
	s.requestCalls++
	if s.requestsErr != nil {
		return nil, s.requestsErr
	}
	out := make([]domain.WalletRequest, len(s.requests))
	copy(out, s.requests)
	return out, nil
}

func (s *stubWallet) UpdateRequestStatus(_ context.Context, id int64, status domain.RequestStatus) error {
	if s.statusErr != nil {
		return s.statusErr
	}
	s.statusUpdates = append(s.statusUpdates, status)
	for i := range s.requests {
		if s.requests[i].ID == id {
			s.requests[i].Status = status
		}
	}
	return nil
}

type stubStatistics struct {
	summary       domain.DashboardSummary
	summaryErr    error
	full          domain.DashboardStats
	fullErr       error
	detailed      domain.DetailedStatistics
	detailedErr   error
	detailedCalls int
}

func (s *stubStatistics) DashboardSummary(context.Context) (domain.DashboardSummary, error) {
	if s.summaryErr != nil {
		return domain.DashboardSummary{}, s.summaryErr
	}
	return s.summary, nil
}

func (s *stubStatistics) DashboardFull(context.Context) (domain.DashboardStats, error) {
	if s.fullErr != nil {
		return domain.DashboardStats{}, s.fullErr
	}
	return s.full, nil
}

func (s *stubStatistics) Detailed(context.Context) (domain.DetailedStatistics, error) {
	s.detailedCalls++
	if s.detailedErr != nil {
		return domain.DetailedStatistics{}, s.detailedErr
	}
	return s.detailed, nil
}

type stubBackend struct {
	users         *stubUsers
	offers        *stubOffers
	subscriptions *stubSubscriptions
	wallet        *stubWallet
	statistics    *stubStatistics
}

func newStubBackend() *stubBackend {
	establishment := "Salon Lumière"
	offerID := int64(10)
	return &stubBackend{
		users: &stubUsers{users: []domain.User{
			{ID: 1, Email: "ana.dupont@example.com", FirstName: "Ana", LastName: "Dupont",
				City: "Paris", UserType: domain.UserTypeClient, SubscriptionType: domain.SubscriptionPremium},
			{ID: 2, Email: "bo.martin@example.com", FirstName: "Bo", LastName: "Martin",
				City: "Lyon", UserType: domain.UserTypeProfessional, SubscriptionType: domain.SubscriptionFree,
				EstablishmentName: &establishment},
		}},
		offers: &stubOffers{offers: []domain.Offer{
			{ID: &offerID, Title: "Massage découverte", Description: "Une heure de massage suédois",
				Price: 45, Type: domain.OfferTypeOffre, Status: domain.OfferStatusActive},
		}},
		subscriptions: &stubSubscriptions{
			plans:    []domain.SubscriptionPlan{{ID: 1, Title: "Essentiel", Price: 9.9}},
			payments: []domain.Payment{{ID: 1, Amount: 9.9, Status: domain.PaymentStatusSucceeded}},
		},
		wallet: &stubWallet{
			history: []domain.WalletTransaction{{ID: 1, Amount: 120}},
			requests: []domain.WalletRequest{
				{ID: 1, TotalAmount: 240.5, Status: domain.RequestStatusPending},
				{ID: 2, TotalAmount: 80, Status: domain.RequestStatusApproved},
			},
		},
		statistics: &stubStatistics{
			summary: domain.DashboardSummary{TotalUsers: 2, ActiveUsers: 1},
		},
	}
}

func (b *stubBackend) set() gateway.Set {
	return gateway.Set{
		Users:         b.users,
		Offers:        b.offers,
		Subscriptions: b.subscriptions,
		Wallet:        b.wallet,
		Statistics:    b.statistics,
	}
}

func newTestController() (*Controller, *stubBackend) {
	backend := newStubBackend()
	return New(backend.set(), nil), backend
}

func TestActivateTabLoadsOnce(t *testing.T) {
	ctrl, backend := newTestController()
	ctx := context.Background()

	if err := ctrl.ActivateTab(ctx, TabUsers); err != nil {
		t.Fatalf("activate users: %v", err)
	}
	if err := ctrl.ActivateTab(ctx, TabUsers); err != nil {
		t.Fatalf("second activate users: %v", err)
	}
	if backend.users.listCalls != 1 {
		t.Fatalf("expected 1 list call, got %d", backend.users.listCalls)
	}
	if got := len(ctrl.Users()); got != 2 {
		t.Fatalf("expected 2 users loaded, got %d", got)
	}
}

func TestActivatePricingLoadsPlansAndPayments(t *testing.T) {
	ctrl, backend := newTestController()

	if err := ctrl.ActivateTab(context.Background(), TabPricing); err != nil {
		t.Fatalf("activate pricing: %v", err)
	}
	if backend.subscriptions.planCalls != 1 || backend.subscriptions.paymentCalls != 1 {
		t.Fatalf("expected one plans and one payments call, got %d and %d",
			backend.subscriptions.planCalls, backend.subscriptions.paymentCalls)
	}
	if len(ctrl.Plans()) != 1 || len(ctrl.Payments()) != 1 {
		t.Fatalf("expected plans and payments populated")
	}
}

func TestRefreshReloadsAndClearsError(t *testing.T) {
	ctrl, backend := newTestController()
	ctx := context.Background()

	backend.users.listErr = errors.New("upstream down")
	if err := ctrl.ActivateTab(ctx, TabUsers); err == nil {
		t.Fatalf("expected activation to fail")
	}
	if _, loadErr := ctrl.Status(TabUsers); loadErr == nil {
		t.Fatalf("expected error slot to be filled")
	}

	backend.users.listErr = nil
	if err := ctrl.Refresh(ctx, TabUsers); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	loading, loadErr := ctrl.Status(TabUsers)
	if loading || loadErr != nil {
		t.Fatalf("expected clean status after refresh, got loading=%t err=%v", loading, loadErr)
	}
	if backend.users.listCalls != 2 {
		t.Fatalf("expected 2 list calls, got %d", backend.users.listCalls)
	}
}

func TestLoadFailureIsScopedToTab(t *testing.T) {
	ctrl, backend := newTestController()
	ctx := context.Background()

	backend.offers.listErr = errors.New("offers down")
	if err := ctrl.ActivateTab(ctx, TabOffers); err == nil {
		t.Fatalf("expected offers activation to fail")
	}
	if err := ctrl.ActivateTab(ctx, TabUsers); err != nil {
		t.Fatalf("users activation should not be affected: %v", err)
	}

	if _, err := ctrl.Status(TabOffers); err == nil {
		t.Fatalf("expected offers error slot filled")
	}
	if _, err := ctrl.Status(TabUsers); err != nil {
		t.Fatalf("users error slot should be empty, got %v", err)
	}
}

func TestLoadFailureKeepsStaleData(t *testing.T) {
	ctrl, backend := newTestController()
	ctx := context.Background()

	if err := ctrl.ActivateTab(ctx, TabUsers); err != nil {
		t.Fatalf("activate users: %v", err)
	}

	backend.users.listErr = errors.New("upstream down")
	if err := ctrl.Refresh(ctx, TabUsers); err == nil {
		t.Fatalf("expected refresh to fail")
	}
	if got := len(ctrl.Users()); got != 2 {
		t.Fatalf("expected stale users kept, got %d", got)
	}
	if _, loadErr := ctrl.Status(TabUsers); loadErr == nil {
		t.Fatalf("expected error slot filled alongside stale data")
	}
}

func TestBootstrapDegradesWithoutFullStatistics(t *testing.T) {
	ctrl, backend := newTestController()
	backend.statistics.fullErr = gateway.ErrUnavailable

	if err := ctrl.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap should swallow the full statistics failure: %v", err)
	}
	if ctrl.Summary() == nil {
		t.Fatalf("expected summary populated")
	}
	if ctrl.FullStats() != nil {
		t.Fatalf("expected full statistics absent")
	}
}

func TestBootstrapFailsWithoutSummary(t *testing.T) {
	ctrl, backend := newTestController()
	backend.statistics.summaryErr = errors.New("statistics down")

	if err := ctrl.Bootstrap(context.Background()); err == nil {
		t.Fatalf("expected bootstrap to fail when the summary is unavailable")
	}
	if ctrl.Summary() != nil {
		t.Fatalf("expected no summary after failed bootstrap")
	}
}

func TestStatisticsTabLoadsDetailed(t *testing.T) {
	ctrl, backend := newTestController()
	backend.statistics.detailed = domain.DetailedStatistics{
		Offers: domain.OfferStatistics{Total: 3, Active: 2},
	}

	if err := ctrl.ActivateTab(context.Background(), TabStatistics); err != nil {
		t.Fatalf("activate statistics: %v", err)
	}
	if backend.statistics.detailedCalls != 1 {
		t.Fatalf("expected one detailed call, got %d", backend.statistics.detailedCalls)
	}
	detailed := ctrl.Detailed()
	if detailed == nil || detailed.Offers.Total != 3 {
		t.Fatalf("expected detailed statistics stored, got %+v", detailed)
	}
}

func TestFilterUsersByTypeAndTerm(t *testing.T) {
	establishment := "Salon Lumière"
	users := []domain.User{
		{ID: 1, Email: "ana.dupont@example.com", FirstName: "Ana", LastName: "Dupont",
			City: "Paris", UserType: domain.UserTypeClient},
		{ID: 2, Email: "bo.martin@example.com", FirstName: "Bo", LastName: "Martin",
			City: "Lyon", UserType: domain.UserTypeProfessional, EstablishmentName: &establishment},
	}

	got := FilterUsers(users, "ALL", "")
	if len(got) != 2 {
		t.Fatalf("ALL with empty term should pass everything, got %d", len(got))
	}

	got = FilterUsers(users, "CLIENT", "")
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("CLIENT filter should keep Ana only, got %+v", got)
	}

	got = FilterUsers(users, "", "dupont")
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("name term should match Ana, got %+v", got)
	}

	got = FilterUsers(users, "", "LUMIÈRE")
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("establishment term should match Bo case-insensitively, got %+v", got)
	}

	got = FilterUsers(users, "", "lyon")
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("city term should match Bo, got %+v", got)
	}

	got = FilterUsers(users, "CLIENT", "martin")
	if len(got) != 0 {
		t.Fatalf("type and term are conjunctive, got %+v", got)
	}
}

func TestFilterOffersMatchesTitleOrDescriptionOnly(t *testing.T) {
	id1, id2 := int64(1), int64(2)
	offers := []domain.Offer{
		{ID: &id1, Title: "Massage découverte", Description: "Une heure de détente", StartDate: "2026-01-01"},
		{ID: &id2, Title: "Soirée dégustation", Description: "Vins régionaux"},
	}

	got := FilterOffers(offers, "massage")
	if len(got) != 1 || *got[0].ID != id1 {
		t.Fatalf("title match expected, got %+v", got)
	}

	got = FilterOffers(offers, "vins")
	if len(got) != 1 || *got[0].ID != id2 {
		t.Fatalf("description match expected, got %+v", got)
	}

	// Dates and other fields never participate in the match.
	got = FilterOffers(offers, "2026")
	if len(got) != 0 {
		t.Fatalf("non-text fields must not match, got %+v", got)
	}

	got = FilterOffers(offers, "")
	if len(got) != 2 {
		t.Fatalf("empty term passes everything, got %d", len(got))
	}
}

func TestUnknownTabRejected(t *testing.T) {
	ctrl, _ := newTestController()
	if err := ctrl.ActivateTab(context.Background(), Tab("billing")); !errors.Is(err, ErrUnknownTab) {
		t.Fatalf("expected ErrUnknownTab, got %v", err)
	}
	if _, err := ParseTab("billing"); !errors.Is(err, ErrUnknownTab) {
		t.Fatalf("expected ErrUnknownTab from ParseTab, got %v", err)
	}
}
