package dashboard

import (
	"context"
	"fmt"
	"log"

	"allinconnect/backoffice/internal/domain"
	"allinconnect/backoffice/internal/gateway"
)

// walletTransitions is the full set of legal payout-request edges. Anything
// not listed is rejected before a network call is made; in particular a
// pending request cannot jump straight to completed.
var walletTransitions = map[domain.RequestStatus][]domain.RequestStatus{
	domain.RequestStatusPending:  {domain.RequestStatusApproved, domain.RequestStatusRejected},
	domain.RequestStatusApproved: {domain.RequestStatusCompleted},
}

func CanTransition(from, to domain.RequestStatus) bool {
	for _, next := range walletTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionRequest moves a payout request along the approval machine:
// validate the edge against the loaded request, ship one status update, then
// reload both wallet lists.
func (c *Controller) TransitionRequest(ctx context.Context, id int64, target domain.RequestStatus) error {
	c.mu.Lock()
	var current *domain.WalletRequest
	for i := range c.walletRequests {
		if c.walletRequests[i].ID == id {
			current = &c.walletRequests[i]
			break
		}
	}
	if current == nil {
		c.mu.Unlock()
		return fmt.Errorf("wallet request %d: %w", id, gateway.ErrNotFound)
	}
	from := current.Status
	if !CanTransition(from, target) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, target)
	}
	if c.saving {
		c.mu.Unlock()
		return ErrSaveInFlight
	}
	c.saving = true
	c.mu.Unlock()
	defer c.endSave()

	if err := c.gw.Wallet.UpdateRequestStatus(ctx, id, target); err != nil {
		return err
	}

	if loadErr := c.loadTab(ctx, TabWallet); loadErr != nil {
		log.Printf("[dashboard] WARN: reload after wallet transition failed: %v", loadErr)
	}
	c.logAudit(ctx, "wallet_request_transition", "wallet_request", fmt.Sprintf("%d", id), fmt.Sprintf("%s->%s", from, target))
	return nil
}
