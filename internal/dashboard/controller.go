// Package dashboard orchestrates the operator console: lazy per-tab loads,
// per-record edit buffers, the wallet approval state machine and the
// statistics merge.
package dashboard

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"allinconnect/backoffice/internal/audit"
	"allinconnect/backoffice/internal/domain"
	"allinconnect/backoffice/internal/gateway"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Tab string

const (
	TabStatistics Tab = "statistics"
	TabUsers      Tab = "users"
	TabOffers     Tab = "offers"
	TabPricing    Tab = "pricing"
	TabWallet     Tab = "wallet"
)

func ParseTab(raw string) (Tab, error) {
	switch Tab(raw) {
	case TabStatistics, TabUsers, TabOffers, TabPricing, TabWallet:
		return Tab(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTab, raw)
}

// tabState tracks one tab's load lifecycle. Each tab fails and recovers on
// its own; an error here never touches another tab's slots.
type tabState struct {
	loading bool
	loaded  bool
	err     error
}

type Controller struct {
	mu sync.Mutex

	gw      gateway.Set
	journal audit.Recorder

	states map[Tab]*tabState

	users          []domain.User
	offers         []domain.Offer
	plans          []domain.SubscriptionPlan
	payments       []domain.Payment
	walletHistory  []domain.WalletTransaction
	walletRequests []domain.WalletRequest
	detailed       *domain.DetailedStatistics

	summary *domain.DashboardSummary
	full    *domain.DashboardStats

	saving bool
	edits  map[RecordKind]*EditBuffer
}

func New(gw gateway.Set, journal audit.Recorder) *Controller {
	states := make(map[Tab]*tabState, 5)
	for _, tab := range []Tab{TabStatistics, TabUsers, TabOffers, TabPricing, TabWallet} {
		states[tab] = &tabState{}
	}
	return &Controller{
		gw:      gw,
		journal: journal,
		states:  states,
		edits:   make(map[RecordKind]*EditBuffer),
	}
}

// Bootstrap performs the initial statistics pull: the fast summary is
// required, the full month-by-month set is optional and its failure is
// logged and swallowed.
func (c *Controller) Bootstrap(ctx context.Context) error {
	summary, err := c.gw.Statistics.DashboardSummary(ctx)
	if err != nil {
		return fmt.Errorf("load dashboard summary: %w", err)
	}

	full, fullErr := c.gw.Statistics.DashboardFull(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary = &summary
	if fullErr != nil {
		log.Printf("[dashboard] WARN: full dashboard statistics unavailable: %v", fullErr)
		return nil
	}
	c.full = &full
	return nil
}

// EnsureOverview bootstraps once; subsequent calls are no-ops while a
// summary is held.
func (c *Controller) EnsureOverview(ctx context.Context) error {
	c.mu.Lock()
	have := c.summary != nil
	c.mu.Unlock()
	if have {
		return nil
	}
	return c.Bootstrap(ctx)
}

// ActivateTab loads a tab's data the first time it is selected. Already
// loaded or currently loading tabs are left alone; Refresh forces a reload.
func (c *Controller) ActivateTab(ctx context.Context, tab Tab) error {
	c.mu.Lock()
	state, ok := c.states[tab]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownTab, tab)
	}
	if state.loaded || state.loading {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.loadTab(ctx, tab)
}

// Refresh reloads a tab unconditionally, clearing its error slot first.
func (c *Controller) Refresh(ctx context.Context, tab Tab) error {
	if _, ok := c.states[tab]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTab, tab)
	}
	return c.loadTab(ctx, tab)
}

// loadTab drives one tab load. The mutex is released across the gateway
// calls, so overlapping loads of the same tab can race; whichever response
// lands last wins the data slot. The console accepts that: the operator's
// refresh always converges on a subsequent load.
func (c *Controller) loadTab(ctx context.Context, tab Tab) error {
	c.mu.Lock()
	state := c.states[tab]
	state.loading = true
	state.err = nil
	c.mu.Unlock()

	var (
		users    []domain.User
		offers   []domain.Offer
		plans    []domain.SubscriptionPlan
		payments []domain.Payment
		history  []domain.WalletTransaction
		requests []domain.WalletRequest
		detailed domain.DetailedStatistics
		err      error
	)

	switch tab {
	case TabUsers:
		users, err = c.gw.Users.List(ctx)
	case TabOffers:
		offers, err = c.gw.Offers.List(ctx)
	case TabPricing:
		plans, err = c.gw.Subscriptions.ListPlans(ctx)
		if err == nil {
			payments, err = c.gw.Subscriptions.ListMyPayments(ctx)
		}
	case TabWallet:
		history, err = c.gw.Wallet.AdminHistory(ctx)
		if err == nil {
			requests, err = c.gw.Wallet.AdminRequests(ctx)
		}
	case TabStatistics:
		detailed, err = c.gw.Statistics.Detailed(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	state.loading = false
	if err != nil {
		// Stale data stays in place; only the error slot changes.
		state.err = err
		return err
	}

	switch tab {
	case TabUsers:
		c.users = users
	case TabOffers:
		c.offers = offers
	case TabPricing:
		c.plans = plans
		c.payments = payments
	case TabWallet:
		c.walletHistory = history
		c.walletRequests = requests
	case TabStatistics:
		c.detailed = &detailed
	}
	state.loaded = true
	state.err = nil
	return nil
}

// Status reports a tab's loading flag and last error.
func (c *Controller) Status(tab Tab) (loading bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.states[tab]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownTab, tab)
	}
	return state.loading, state.err
}

func (c *Controller) Users() []domain.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.User, len(c.users))
	copy(out, c.users)
	return out
}

func (c *Controller) Offers() []domain.Offer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Offer, len(c.offers))
	copy(out, c.offers)
	return out
}

func (c *Controller) Plans() []domain.SubscriptionPlan {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.SubscriptionPlan, len(c.plans))
	copy(out, c.plans)
	return out
}

func (c *Controller) Payments() []domain.Payment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Payment, len(c.payments))
	copy(out, c.payments)
	return out
}

func (c *Controller) WalletHistory() []domain.WalletTransaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.WalletTransaction, len(c.walletHistory))
	copy(out, c.walletHistory)
	return out
}

func (c *Controller) WalletRequests() []domain.WalletRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.WalletRequest, len(c.walletRequests))
	copy(out, c.walletRequests)
	return out
}

func (c *Controller) Detailed() *domain.DetailedStatistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detailed == nil {
		return nil
	}
	stats := *c.detailed
	return &stats
}

func (c *Controller) Summary() *domain.DashboardSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.summary == nil {
		return nil
	}
	summary := *c.summary
	return &summary
}

func (c *Controller) FullStats() *domain.DashboardStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full == nil {
		return nil
	}
	full := *c.full
	return &full
}

// Overview returns the merged statistics view from whatever tiers are held.
func (c *Controller) Overview() Overview {
	c.mu.Lock()
	defer c.mu.Unlock()
	return MergeOverview(c.summary, c.full, c.detailed)
}

// beginSave takes the console-wide saving flag. One mutating call at a time
// across edit commits, plan deletes and wallet transitions.
func (c *Controller) beginSave() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saving {
		return ErrSaveInFlight
	}
	c.saving = true
	return nil
}

func (c *Controller) endSave() {
	c.mu.Lock()
	c.saving = false
	c.mu.Unlock()
}

func (c *Controller) Saving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saving
}

func (c *Controller) logAudit(ctx context.Context, action, entityKind, entityID, detail string) {
	if c.journal == nil {
		return
	}
	entry := audit.Entry{
		Action:     action,
		EntityKind: entityKind,
		EntityID:   entityID,
		Detail:     detail,
	}
	if actor, ok := ActorFromContext(ctx); ok {
		entry.ActorEmail = actor.Email
		entry.ActorName = actor.Name
	}
	if err := c.journal.Record(ctx, entry); err != nil {
		log.Printf("[dashboard] WARN: audit record failed action=%s: %v", action, err)
	}
}

// FilterUsers narrows a user list by exact type, then by a case-insensitive
// substring over full name, email, city and establishment name. "ALL" (or
// empty) passes every type through. Pure; the input is never mutated.
func FilterUsers(users []domain.User, typeFilter string, term string) []domain.User {
	term = strings.ToLower(strings.TrimSpace(term))
	byType := typeFilter != "" && typeFilter != "ALL"

	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		if byType && string(u.UserType) != typeFilter {
			continue
		}
		if term != "" && !userMatches(u, term) {
			continue
		}
		out = append(out, u)
	}
	return out
}

func userMatches(u domain.User, term string) bool {
	if strings.Contains(strings.ToLower(u.FullName()), term) {
		return true
	}
	if strings.Contains(strings.ToLower(u.Email), term) {
		return true
	}
	if strings.Contains(strings.ToLower(u.City), term) {
		return true
	}
	if u.EstablishmentName != nil && strings.Contains(strings.ToLower(*u.EstablishmentName), term) {
		return true
	}
	return false
}

// FilterOffers narrows an offer list by a case-insensitive substring over
// title or description. No other field participates.
func FilterOffers(offers []domain.Offer, term string) []domain.Offer {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		out := make([]domain.Offer, len(offers))
		copy(out, offers)
		return out
	}

	out := make([]domain.Offer, 0, len(offers))
	for _, o := range offers {
		if strings.Contains(strings.ToLower(o.Title), term) ||
			strings.Contains(strings.ToLower(o.Description), term) {
			out = append(out, o)
		}
	}
	return out
}
