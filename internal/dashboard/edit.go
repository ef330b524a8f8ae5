package dashboard

import (
	"context"
	"fmt"
	"log"

	"allinconnect/backoffice/internal/domain"
	"allinconnect/backoffice/internal/gateway"
)

type RecordKind string

const (
	KindUser    RecordKind = "user"
	KindOffer   RecordKind = "offer"
	KindPlan    RecordKind = "plan"
	KindPayment RecordKind = "payment"
)

func ParseRecordKind(raw string) (RecordKind, error) {
	switch RecordKind(raw) {
	case KindUser, KindOffer, KindPlan, KindPayment:
		return RecordKind(raw), nil
	}
	return "", fmt.Errorf("unknown record kind %q", raw)
}

type EditMode string

const (
	ModeEditing  EditMode = "editing"
	ModeCreating EditMode = "creating"
)

// EditBuffer is the staged form state for one record. At most one buffer
// exists per kind; beginning a new edit of the same kind replaces it.
type EditBuffer struct {
	Kind     RecordKind        `json:"kind"`
	Mode     EditMode          `json:"mode"`
	TargetID int64             `json:"targetId,omitempty"`
	Fields   domain.FieldPatch `json:"fields"`
}

func kindTab(kind RecordKind) Tab {
	switch kind {
	case KindUser:
		return TabUsers
	case KindOffer:
		return TabOffers
	default:
		return TabPricing
	}
}

// BeginEdit opens an edit buffer seeded from the loaded record's current
// fields. The record must be present in the owning tab's loaded data.
func (c *Controller) BeginEdit(kind RecordKind, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var fields domain.FieldPatch
	switch kind {
	case KindUser:
		for _, u := range c.users {
			if u.ID == id {
				fields = userEditFields(u)
				break
			}
		}
	case KindOffer:
		for _, o := range c.offers {
			if o.ID != nil && *o.ID == id {
				fields = offerEditFields(o)
				break
			}
		}
	case KindPlan:
		for _, p := range c.plans {
			if p.ID == id {
				fields = planEditFields(p)
				break
			}
		}
	case KindPayment:
		for _, p := range c.payments {
			if p.ID == id {
				fields = paymentEditFields(p)
				break
			}
		}
	default:
		return fmt.Errorf("unknown record kind %q", kind)
	}
	if fields == nil {
		return fmt.Errorf("%s %d: %w", kind, id, gateway.ErrNotFound)
	}

	c.edits[kind] = &EditBuffer{Kind: kind, Mode: ModeEditing, TargetID: id, Fields: fields}
	return nil
}

// BeginCreate opens a creating-mode buffer. Only plans are created from the
// console; every other kind is edited in place.
func (c *Controller) BeginCreate(kind RecordKind, defaults domain.FieldPatch) error {
	if kind != KindPlan {
		return fmt.Errorf("record kind %q cannot be created from the console", kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fields := domain.FieldPatch{}
	if defaults != nil {
		fields = defaults.Clone()
	}
	c.edits[kind] = &EditBuffer{Kind: kind, Mode: ModeCreating, Fields: fields}
	return nil
}

func (c *Controller) SetEditField(kind RecordKind, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := c.edits[kind]
	if buf == nil {
		return ErrNoActiveEdit
	}
	buf.Fields.Set(key, value)
	return nil
}

func (c *Controller) SetEditNumberField(kind RecordKind, key, raw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := c.edits[kind]
	if buf == nil {
		return ErrNoActiveEdit
	}
	return buf.Fields.SetNumber(key, raw)
}

func (c *Controller) SetEditDateField(kind RecordKind, key, raw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := c.edits[kind]
	if buf == nil {
		return ErrNoActiveEdit
	}
	buf.Fields.SetDate(key, raw)
	return nil
}

// EditState returns a copy of the open buffer for a kind, if any.
func (c *Controller) EditState(kind RecordKind) (EditBuffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := c.edits[kind]
	if buf == nil {
		return EditBuffer{}, false
	}
	out := *buf
	out.Fields = buf.Fields.Clone()
	return out, true
}

// CancelEdit discards the buffer for a kind. Cancelling with no buffer open
// is a no-op.
func (c *Controller) CancelEdit(kind RecordKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.edits, kind)
}

// CommitEdit ships the buffered fields in exactly one gateway write, reloads
// the owning tab and clears the buffer. On failure the buffer stays open with
// its staged fields intact so the operator can retry.
func (c *Controller) CommitEdit(ctx context.Context, kind RecordKind) error {
	c.mu.Lock()
	buf := c.edits[kind]
	if buf == nil {
		c.mu.Unlock()
		return ErrNoActiveEdit
	}
	if c.saving {
		c.mu.Unlock()
		return ErrSaveInFlight
	}
	c.saving = true
	mode := buf.Mode
	target := buf.TargetID
	fields := buf.Fields.Clone()
	c.mu.Unlock()

	err := c.writeEdit(ctx, kind, mode, target, fields)
	if err != nil {
		c.endSave()
		return err
	}

	if loadErr := c.loadTab(ctx, kindTab(kind)); loadErr != nil {
		log.Printf("[dashboard] WARN: reload after %s commit failed: %v", kind, loadErr)
	}

	c.mu.Lock()
	delete(c.edits, kind)
	c.saving = false
	c.mu.Unlock()

	action := fmt.Sprintf("%s_update", kind)
	if mode == ModeCreating {
		action = fmt.Sprintf("%s_create", kind)
	}
	c.logAudit(ctx, action, string(kind), fmt.Sprintf("%d", target), fmt.Sprintf("fields=%d", len(fields)))
	return nil
}

func (c *Controller) writeEdit(ctx context.Context, kind RecordKind, mode EditMode, target int64, fields domain.FieldPatch) error {
	switch kind {
	case KindUser:
		return c.gw.Users.UpdateProfile(ctx, target, fields)
	case KindOffer:
		return c.gw.Offers.Update(ctx, target, fields)
	case KindPlan:
		if mode == ModeCreating {
			return c.gw.Subscriptions.CreatePlan(ctx, fields)
		}
		return c.gw.Subscriptions.UpdatePlan(ctx, target, fields)
	case KindPayment:
		return c.gw.Subscriptions.UpdatePayment(ctx, target, fields)
	}
	return fmt.Errorf("unknown record kind %q", kind)
}

// DeletePlan removes a pricing plan and reloads the pricing tab.
func (c *Controller) DeletePlan(ctx context.Context, id int64) error {
	if err := c.beginSave(); err != nil {
		return err
	}
	defer c.endSave()

	if err := c.gw.Subscriptions.DeletePlan(ctx, id); err != nil {
		return err
	}
	if loadErr := c.loadTab(ctx, TabPricing); loadErr != nil {
		log.Printf("[dashboard] WARN: reload after plan delete failed: %v", loadErr)
	}
	c.logAudit(ctx, "plan_delete", "plan", fmt.Sprintf("%d", id), "")
	return nil
}

func userEditFields(u domain.User) domain.FieldPatch {
	fields := domain.FieldPatch{
		"email":     u.Email,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"address":   u.Address,
		"city":      u.City,
	}
	if u.BirthDate != nil {
		fields["birthDate"] = *u.BirthDate
	}
	fields["subscriptionType"] = string(u.SubscriptionType)
	if u.SubscriptionDate != nil {
		fields["subscriptionDate"] = *u.SubscriptionDate
	}
	if u.RenewalDate != nil {
		fields["renewalDate"] = *u.RenewalDate
	}
	if u.SubscriptionAmount != nil {
		fields["subscriptionAmount"] = *u.SubscriptionAmount
	}
	if u.Profession != nil {
		fields["profession"] = *u.Profession
	}
	if u.Category != nil {
		fields["category"] = *u.Category
	}
	if u.EstablishmentName != nil {
		fields["establishmentName"] = *u.EstablishmentName
	}
	if u.EstablishmentDescription != nil {
		fields["establishmentDescription"] = *u.EstablishmentDescription
	}
	if u.PhoneNumber != nil {
		fields["phoneNumber"] = *u.PhoneNumber
	}
	if u.Website != nil {
		fields["website"] = *u.Website
	}
	if u.Instagram != nil {
		fields["instagram"] = *u.Instagram
	}
	if u.OpeningHours != nil {
		fields["openingHours"] = *u.OpeningHours
	}
	return fields
}

func offerEditFields(o domain.Offer) domain.FieldPatch {
	fields := domain.FieldPatch{
		"title":       o.Title,
		"description": o.Description,
		"price":       o.Price,
		"startDate":   o.StartDate,
		"endDate":     o.EndDate,
		"type":        string(o.Type),
		"status":      string(o.Status),
		"isFeatured":  o.IsFeatured,
	}
	if o.ImageURL != nil {
		fields["imageUrl"] = *o.ImageURL
	}
	return fields
}

func planEditFields(p domain.SubscriptionPlan) domain.FieldPatch {
	return domain.FieldPatch{
		"title":          p.Title,
		"description":    p.Description,
		"price":          p.Price,
		"category":       string(p.Category),
		"duration":       string(p.Duration),
		"referralReward": p.ReferralReward,
	}
}

func paymentEditFields(p domain.Payment) domain.FieldPatch {
	return domain.FieldPatch{
		"amount":      p.Amount,
		"paymentDate": p.PaymentDate,
		"status":      string(p.Status),
	}
}
