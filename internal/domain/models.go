package domain

import (
	"fmt"
	"strconv"
)

type UserType string

const (
	UserTypeClient       UserType = "CLIENT"
	UserTypeProfessional UserType = "PROFESSIONAL"
	UserTypeMegaAdmin    UserType = "MEGA_ADMIN"
)

type SubscriptionType string

const (
	SubscriptionFree    SubscriptionType = "FREE"
	SubscriptionPremium SubscriptionType = "PREMIUM"
)

type PlanCategory string

const (
	PlanCategoryIndividual   PlanCategory = "INDIVIDUAL"
	PlanCategoryFamily       PlanCategory = "FAMILY"
	PlanCategoryProfessional PlanCategory = "PROFESSIONAL"
)

type PlanDuration string

const (
	PlanDurationMonthly PlanDuration = "MONTHLY"
	PlanDurationAnnual  PlanDuration = "ANNUAL"
)

type OfferType string

const (
	OfferTypeOffre     OfferType = "OFFRE"
	OfferTypeEvenement OfferType = "EVENEMENT"
)

type OfferStatus string

const (
	OfferStatusActive   OfferStatus = "ACTIVE"
	OfferStatusInactive OfferStatus = "INACTIVE"
	OfferStatusDraft    OfferStatus = "DRAFT"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusApproved  RequestStatus = "APPROVED"
	RequestStatusRejected  RequestStatus = "REJECTED"
	RequestStatusCompleted RequestStatus = "COMPLETED"
)

type User struct {
	ID                       int64            `json:"id"`
	Email                    string           `json:"email"`
	FirstName                string           `json:"firstName"`
	LastName                 string           `json:"lastName"`
	Address                  string           `json:"address,omitempty"`
	City                     string           `json:"city,omitempty"`
	Latitude                 *float64         `json:"latitude,omitempty"`
	Longitude                *float64         `json:"longitude,omitempty"`
	BirthDate                *string          `json:"birthDate,omitempty"`
	UserType                 UserType         `json:"userType"`
	SubscriptionType         SubscriptionType `json:"subscriptionType"`
	SubscriptionDate         *string          `json:"subscriptionDate,omitempty"`
	RenewalDate              *string          `json:"renewalDate,omitempty"`
	SubscriptionAmount       *float64         `json:"subscriptionAmount,omitempty"`
	Profession               *string          `json:"profession,omitempty"`
	Category                 *string          `json:"category,omitempty"`
	EstablishmentName        *string          `json:"establishmentName,omitempty"`
	EstablishmentDescription *string          `json:"establishmentDescription,omitempty"`
	PhoneNumber              *string          `json:"phoneNumber,omitempty"`
	Website                  *string          `json:"website,omitempty"`
	Instagram                *string          `json:"instagram,omitempty"`
	OpeningHours             *string          `json:"openingHours,omitempty"`
	ReferralCode             *string          `json:"referralCode,omitempty"`
	WalletBalance            *float64         `json:"walletBalance,omitempty"`
	HasConnectedBefore       *bool            `json:"hasConnectedBefore,omitempty"`
}

// FullName is the display name used by user search.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type Offer struct {
	ID          *int64      `json:"id,omitempty"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Price       float64     `json:"price"`
	StartDate   string      `json:"startDate"`
	EndDate     string      `json:"endDate"`
	ImageURL    *string     `json:"imageUrl,omitempty"`
	Type        OfferType   `json:"type"`
	Status      OfferStatus `json:"status"`
	IsFeatured  bool        `json:"isFeatured"`
}

type SubscriptionPlan struct {
	ID             int64        `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Price          float64      `json:"price"`
	Category       PlanCategory `json:"category"`
	Duration       PlanDuration `json:"duration"`
	ReferralReward float64      `json:"referralReward"`
}

type Payment struct {
	ID                    int64         `json:"id"`
	Amount                float64       `json:"amount"`
	PaymentDate           string        `json:"paymentDate"`
	Status                PaymentStatus `json:"status"`
	StripePaymentIntentID *string       `json:"stripePaymentIntentId,omitempty"`
}

type UserRef struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type WalletTransaction struct {
	ID          int64    `json:"id"`
	User        *UserRef `json:"user,omitempty"`
	Amount      float64  `json:"amount"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
}

type WalletRequest struct {
	ID            int64         `json:"id"`
	User          *UserRef      `json:"user,omitempty"`
	TotalAmount   float64       `json:"totalAmount"`
	Professionals string        `json:"professionals,omitempty"`
	Status        RequestStatus `json:"status"`
	CreatedAt     string        `json:"createdAt"`
}

type DashboardSummary struct {
	TotalUsers              int                      `json:"totalUsers"`
	ActiveUsers             int                      `json:"activeUsers"`
	TotalProfessionals      int                      `json:"totalProfessionals"`
	ProfessionalsByCategory map[string]int           `json:"professionalsByCategory,omitempty"`
	TotalOffers             int                      `json:"totalOffers"`
	CurrentMonthRevenue     float64                  `json:"currentMonthRevenue"`
	UsersBySubscriptionType map[SubscriptionType]int `json:"usersBySubscriptionType,omitempty"`
}

type SubscriptionStatistics struct {
	ByType      map[SubscriptionType]int `json:"byType,omitempty"`
	ByCategory  map[string]int           `json:"byCategory,omitempty"`
	TotalActive int                      `json:"totalActive"`
}

type OfferStatistics struct {
	Total    int               `json:"total"`
	Active   int               `json:"active"`
	Inactive int               `json:"inactive"`
	ByType   map[OfferType]int `json:"byType,omitempty"`
}

type RevenueStatistics struct {
	Total             float64 `json:"total"`
	Monthly           float64 `json:"monthly"`
	FromProfessionals float64 `json:"fromProfessionals"`
}

type WalletStatistics struct {
	TotalBalance      float64 `json:"totalBalance"`
	TotalTransactions int     `json:"totalTransactions"`
	PendingRequests   int     `json:"pendingRequests"`
}

type DetailedStatistics struct {
	Subscriptions SubscriptionStatistics `json:"subscriptions"`
	Offers        OfferStatistics        `json:"offers"`
	Revenue       RevenueStatistics      `json:"revenue"`
	Wallet        WalletStatistics       `json:"wallet"`
}

// MonthlyUserCounts carries both count spellings the statistics service has
// emitted over time. Normalization into a single shape happens at merge time.
type MonthlyUserCounts struct {
	Active      *int `json:"active,omitempty"`
	Total       *int `json:"total,omitempty"`
	ActiveUsers *int `json:"activeUsers,omitempty"`
	TotalUsers  *int `json:"totalUsers,omitempty"`
}

type MonthlyStatistic struct {
	Year    int               `json:"year"`
	Month   int               `json:"month"`
	Revenue float64           `json:"revenue"`
	Users   MonthlyUserCounts `json:"users"`
	Frozen  bool              `json:"frozen"`
}

type DashboardStats struct {
	Current *MonthlyStatistic  `json:"current,omitempty"`
	History []MonthlyStatistic `json:"history,omitempty"`
}

// FieldPatch is a partial record keyed by field name. Values carry whatever
// the caller staged; numeric and date setters treat the empty string as
// "unset this field" rather than zero or epoch.
type FieldPatch map[string]any

func (p FieldPatch) Set(key string, value any) {
	p[key] = value
}

func (p FieldPatch) SetNumber(key, raw string) error {
	if raw == "" {
		delete(p, key)
		return nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("field %s: invalid number %q", key, raw)
	}
	p[key] = n
	return nil
}

func (p FieldPatch) SetDate(key, raw string) {
	if raw == "" {
		delete(p, key)
		return
	}
	p[key] = raw
}

func (p FieldPatch) Clone() FieldPatch {
	out := make(FieldPatch, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Identity is what the remote service hands back on a successful login.
type Identity struct {
	Token  string `json:"token"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	UserID int64  `json:"userId"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor identifies the operator behind a mutating call, for the audit journal.
type Actor struct {
	Email string
	Name  string
}
