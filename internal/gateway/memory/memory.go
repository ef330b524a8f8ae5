// Package memory provides seeded in-memory gateways. They back the console
// when no remote service is configured and every orchestration test.
package memory

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"allinconnect/backoffice/internal/domain"
	"allinconnect/backoffice/internal/gateway"
)

// Service is a mutable in-memory stand-in for the remote service. Writes
// apply to the seeded data, so a reload after a commit observes the change.
type Service struct {
	mu sync.Mutex

	operatorEmail string
	operatorHash  []byte
	operatorName  string

	users    []domain.User
	offers   []domain.Offer
	plans    []domain.SubscriptionPlan
	payments []domain.Payment
	history  []domain.WalletTransaction
	requests []domain.WalletRequest

	nextPlanID int64
}

func NewSeeded(operatorEmail, operatorPassword string) (*Service, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(operatorPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash operator password: %w", err)
	}
	s := &Service{
		operatorEmail: operatorEmail,
		operatorHash:  hash,
		operatorName:  "Console Operator",
		nextPlanID:    100,
	}
	s.seed()
	return s, nil
}

func (s *Service) seed() {
	coach := "Coach sportif"
	salon := "Salon Lumière"
	str := func(v string) *string { return &v }
	f := func(v float64) *float64 { return &v }

	s.users = []domain.User{
		{ID: 1, Email: "ana.dupont@example.com", FirstName: "Ana", LastName: "Dupont",
			City: "Paris", UserType: domain.UserTypeClient, SubscriptionType: domain.SubscriptionPremium},
		{ID: 2, Email: "bo.martin@example.com", FirstName: "Bo", LastName: "Martin",
			City: "Lyon", UserType: domain.UserTypeProfessional, SubscriptionType: domain.SubscriptionFree,
			Profession: &coach, EstablishmentName: &salon, WalletBalance: f(240.5)},
		{ID: 3, Email: "chris.petit@example.com", FirstName: "Chris", LastName: "Petit",
			City: "Marseille", UserType: domain.UserTypeClient, SubscriptionType: domain.SubscriptionFree,
			Category: str("BEAUTE")},
	}
	offerID := func(v int64) *int64 { return &v }
	s.offers = []domain.Offer{
		{ID: offerID(10), Title: "Massage découverte", Description: "Une heure de massage suédois",
			Price: 45, StartDate: "2026-01-01", EndDate: "2026-12-31",
			Type: domain.OfferTypeOffre, Status: domain.OfferStatusActive, IsFeatured: true},
		{ID: offerID(11), Title: "Soirée dégustation", Description: "Vins et fromages régionaux",
			Price: 25, StartDate: "2026-03-01", EndDate: "2026-03-02",
			Type: domain.OfferTypeEvenement, Status: domain.OfferStatusDraft},
	}
	s.plans = []domain.SubscriptionPlan{
		{ID: 1, Title: "Essentiel", Description: "Accès individuel", Price: 9.9,
			Category: domain.PlanCategoryIndividual, Duration: domain.PlanDurationMonthly, ReferralReward: 2},
		{ID: 2, Title: "Famille annuel", Description: "Jusqu'à cinq comptes", Price: 199,
			Category: domain.PlanCategoryFamily, Duration: domain.PlanDurationAnnual, ReferralReward: 15},
	}
	intent := "pi_3QYseed001"
	s.payments = []domain.Payment{
		{ID: 1, Amount: 9.9, PaymentDate: "2026-07-01", Status: domain.PaymentStatusSucceeded, StripePaymentIntentID: &intent},
		{ID: 2, Amount: 199, PaymentDate: "2026-07-15", Status: domain.PaymentStatusPending},
	}
	s.history = []domain.WalletTransaction{
		{ID: 1, User: &domain.UserRef{ID: 2, Email: "bo.martin@example.com"},
			Amount: 120, Description: "Commission juillet", Date: "2026-07-31"},
	}
	s.requests = []domain.WalletRequest{
		{ID: 1, User: &domain.UserRef{ID: 2, Email: "bo.martin@example.com"},
			TotalAmount: 240.5, Professionals: "Salon Lumière", Status: domain.RequestStatusPending, CreatedAt: "2026-08-02"},
		{ID: 2, User: &domain.UserRef{ID: 2, Email: "bo.martin@example.com"},
			TotalAmount: 80, Professionals: "Salon Lumière", Status: domain.RequestStatusApproved, CreatedAt: "2026-07-20"},
	}
}

// Set returns the gateway set, all backed by this service.
func (s *Service) Set() gateway.Set {
	return gateway.Set{
		Auth:          s,
		Users:         (*usersGateway)(s),
		Offers:        (*offersGateway)(s),
		Subscriptions: (*subscriptionsGateway)(s),
		Wallet:        (*walletGateway)(s),
		Statistics:    (*statisticsGateway)(s),
	}
}

func (s *Service) Login(ctx context.Context, email, password string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if email != s.operatorEmail {
		return domain.Identity{}, fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(s.operatorHash, []byte(password)); err != nil {
		return domain.Identity{}, fmt.Errorf("invalid credentials")
	}
	return domain.Identity{
		Token:  "memory-session-token",
		Email:  s.operatorEmail,
		Name:   s.operatorName,
		UserID: 0,
	}, nil
}

type usersGateway Service

func (g *usersGateway) List(ctx context.Context) ([]domain.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.User, len(g.users))
	copy(out, g.users)
	return out, nil
}

func (g *usersGateway) UpdateProfile(ctx context.Context, id int64, patch domain.FieldPatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.users {
		if g.users[i].ID != id {
			continue
		}
		applyUserPatch(&g.users[i], patch)
		return nil
	}
	return fmt.Errorf("user %d: %w", id, gateway.ErrNotFound)
}

func applyUserPatch(u *domain.User, patch domain.FieldPatch) {
	for key, value := range patch {
		switch key {
		case "email":
			u.Email = asString(value)
		case "firstName":
			u.FirstName = asString(value)
		case "lastName":
			u.LastName = asString(value)
		case "address":
			u.Address = asString(value)
		case "city":
			u.City = asString(value)
		case "birthDate":
			u.BirthDate = stringPtr(value)
		case "subscriptionType":
			u.SubscriptionType = domain.SubscriptionType(asString(value))
		case "subscriptionDate":
			u.SubscriptionDate = stringPtr(value)
		case "renewalDate":
			u.RenewalDate = stringPtr(value)
		case "subscriptionAmount":
			u.SubscriptionAmount = floatPtr(value)
		case "profession":
			u.Profession = stringPtr(value)
		case "category":
			u.Category = stringPtr(value)
		case "establishmentName":
			u.EstablishmentName = stringPtr(value)
		case "establishmentDescription":
			u.EstablishmentDescription = stringPtr(value)
		case "phoneNumber":
			u.PhoneNumber = stringPtr(value)
		case "website":
			u.Website = stringPtr(value)
		case "instagram":
			u.Instagram = stringPtr(value)
		case "openingHours":
			u.OpeningHours = stringPtr(value)
		}
	}
}

type offersGateway Service

func (g *offersGateway) List(ctx context.Context) ([]domain.Offer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.Offer, len(g.offers))
	copy(out, g.offers)
	return out, nil
}

func (g *offersGateway) Update(ctx context.Context, id int64, patch domain.FieldPatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.offers {
		if g.offers[i].ID == nil || *g.offers[i].ID != id {
			continue
		}
		o := &g.offers[i]
		for key, value := range patch {
			switch key {
			case "title":
				o.Title = asString(value)
			case "description":
				o.Description = asString(value)
			case "price":
				o.Price = asFloat(value)
			case "startDate":
				o.StartDate = asString(value)
			case "endDate":
				o.EndDate = asString(value)
			case "imageUrl":
				o.ImageURL = stringPtr(value)
			case "type":
				o.Type = domain.OfferType(asString(value))
			case "status":
				o.Status = domain.OfferStatus(asString(value))
			case "isFeatured":
				o.IsFeatured = asBool(value)
			}
		}
		return nil
	}
	return fmt.Errorf("offer %d: %w", id, gateway.ErrNotFound)
}

type subscriptionsGateway Service

func (g *subscriptionsGateway) ListPlans(ctx context.Context) ([]domain.SubscriptionPlan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.SubscriptionPlan, len(g.plans))
	copy(out, g.plans)
	return out, nil
}

func (g *subscriptionsGateway) CreatePlan(ctx context.Context, patch domain.FieldPatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	plan := domain.SubscriptionPlan{ID: g.nextPlanID}
	g.nextPlanID++
	applyPlanPatch(&plan, patch)
	g.plans = append(g.plans, plan)
	return nil
}

func (g *subscriptionsGateway) UpdatePlan(ctx context.Context, id int64, patch domain.FieldPatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.plans {
		if g.plans[i].ID != id {
			continue
		}
		applyPlanPatch(&g.plans[i], patch)
		return nil
	}
	return fmt.Errorf("plan %d: %w", id, gateway.ErrNotFound)
}

func (g *subscriptionsGateway) DeletePlan(ctx context.Context, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.plans {
		if g.plans[i].ID != id {
			continue
		}
		g.plans = append(g.plans[:i], g.plans[i+1:]...)
		return nil
	}
	return fmt.Errorf("plan %d: %w", id, gateway.ErrNotFound)
}

func applyPlanPatch(p *domain.SubscriptionPlan, patch domain.FieldPatch) {
	for key, value := range patch {
		switch key {
		case "title":
			p.Title = asString(value)
		case "description":
			p.Description = asString(value)
		case "price":
			p.Price = asFloat(value)
		case "category":
			p.Category = domain.PlanCategory(asString(value))
		case "duration":
			p.Duration = domain.PlanDuration(asString(value))
		case "referralReward":
			p.ReferralReward = asFloat(value)
		}
	}
}

func (g *subscriptionsGateway) ListMyPayments(ctx context.Context) ([]domain.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.Payment, len(g.payments))
	copy(out, g.payments)
	return out, nil
}

func (g *subscriptionsGateway) UpdatePayment(ctx context.Context, id int64, patch domain.FieldPatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.payments {
		if g.payments[i].ID != id {
			continue
		}
		p := &g.payments[i]
		for key, value := range patch {
			switch key {
			case "amount":
				p.Amount = asFloat(value)
			case "paymentDate":
				p.PaymentDate = asString(value)
			case "status":
				p.Status = domain.PaymentStatus(asString(value))
			}
		}
		return nil
	}
	return fmt.Errorf("payment %d: %w", id, gateway.ErrNotFound)
}

type walletGateway Service

func (g *walletGateway) AdminHistory(ctx context.Context) ([]domain.WalletTransaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.WalletTransaction, len(g.history))
	copy(out, g.history)
	return out, nil
}

func (g *walletGateway) AdminRequests(ctx context.Context) ([]domain.WalletRequest, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.WalletRequest, len(g.requests))
	copy(out, g.requests)
	return out, nil
}

func (g *walletGateway) UpdateRequestStatus(ctx context.Context, id int64, status domain.RequestStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.requests {
		if g.requests[i].ID != id {
			continue
		}
		g.requests[i].Status = status
		return nil
	}
	return fmt.Errorf("wallet request %d: %w", id, gateway.ErrNotFound)
}

type statisticsGateway Service

func (g *statisticsGateway) DashboardSummary(ctx context.Context) (domain.DashboardSummary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	summary := domain.DashboardSummary{
		TotalUsers:              len(g.users),
		ProfessionalsByCategory: map[string]int{},
		UsersBySubscriptionType: map[domain.SubscriptionType]int{},
		TotalOffers:             len(g.offers),
	}
	for _, u := range g.users {
		summary.UsersBySubscriptionType[u.SubscriptionType]++
		if u.SubscriptionType == domain.SubscriptionPremium {
			summary.ActiveUsers++
		}
		if u.UserType == domain.UserTypeProfessional {
			summary.TotalProfessionals++
			if u.Profession != nil {
				summary.ProfessionalsByCategory[*u.Profession]++
			}
		}
	}
	for _, p := range g.payments {
		if p.Status == domain.PaymentStatusSucceeded {
			summary.CurrentMonthRevenue += p.Amount
		}
	}
	return summary, nil
}

func (g *statisticsGateway) DashboardFull(ctx context.Context) (domain.DashboardStats, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	active := 0
	for _, u := range g.users {
		if u.SubscriptionType == domain.SubscriptionPremium {
			active++
		}
	}
	total := len(g.users)
	current := domain.MonthlyStatistic{
		Year: 2026, Month: 8, Revenue: 9.9,
		Users: domain.MonthlyUserCounts{ActiveUsers: &active, TotalUsers: &total},
	}
	prevActive, prevTotal := 1, 2
	return domain.DashboardStats{
		Current: &current,
		History: []domain.MonthlyStatistic{
			{Year: 2026, Month: 7, Revenue: 208.9, Frozen: true,
				Users: domain.MonthlyUserCounts{Active: &prevActive, Total: &prevTotal}},
		},
	}, nil
}

func (g *statisticsGateway) Detailed(ctx context.Context) (domain.DetailedStatistics, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	stats := domain.DetailedStatistics{
		Subscriptions: domain.SubscriptionStatistics{
			ByType:     map[domain.SubscriptionType]int{},
			ByCategory: map[string]int{},
		},
		Offers: domain.OfferStatistics{
			Total:  len(g.offers),
			ByType: map[domain.OfferType]int{},
		},
	}
	for _, u := range g.users {
		stats.Subscriptions.ByType[u.SubscriptionType]++
		if u.SubscriptionType == domain.SubscriptionPremium {
			stats.Subscriptions.TotalActive++
		}
		if u.Category != nil {
			stats.Subscriptions.ByCategory[*u.Category]++
		}
	}
	for _, o := range g.offers {
		stats.Offers.ByType[o.Type]++
		switch o.Status {
		case domain.OfferStatusActive:
			stats.Offers.Active++
		case domain.OfferStatusInactive:
			stats.Offers.Inactive++
		}
	}
	for _, p := range g.payments {
		if p.Status == domain.PaymentStatusSucceeded {
			stats.Revenue.Total += p.Amount
		}
	}
	stats.Revenue.Monthly = stats.Revenue.Total
	for _, u := range g.users {
		if u.WalletBalance != nil {
			stats.Wallet.TotalBalance += *u.WalletBalance
		}
	}
	stats.Wallet.TotalTransactions = len(g.history)
	for _, r := range g.requests {
		if r.Status == domain.RequestStatusPending {
			stats.Wallet.PendingRequests++
		}
	}
	return stats, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func stringPtr(v any) *string {
	if v == nil {
		return nil
	}
	s := asString(v)
	return &s
}

func floatPtr(v any) *float64 {
	if v == nil {
		return nil
	}
	f := asFloat(v)
	return &f
}
