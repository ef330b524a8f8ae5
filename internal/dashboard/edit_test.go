package dashboard

import (
	"context"
	"errors"
	"testing"

	"allinconnect/backoffice/internal/domain"
)

func TestBeginEditSnapshotsLoadedRecord(t *testing.T) {
	ctrl, _ := newTestController()
	ctx := context.Background()

	if err := ctrl.ActivateTab(ctx, TabUsers); err != nil {
		t.Fatalf("activate users: %v", err)
	}
	if err := ctrl.BeginEdit(KindUser, 2); err != nil {
		t.Fatalf("begin edit: %v", err)
	}

	buf, ok := ctrl.EditState(KindUser)
	if !ok {
		t.Fatalf("expected an open buffer")
	}
	if buf.Mode != ModeEditing || buf.TargetID != 2 {
		t.Fatalf("unexpected buffer: %+v", buf)
	}
	if buf.Fields["email"] != "bo.martin@example.com" {
		t.Fatalf("expected snapshotted email, got %v", buf.Fields["email"])
	}
	if buf.Fields["establishmentName"] != "Salon Lumière" {
		t.Fatalf("expected establishment snapshotted, got %v", buf.Fields["establishmentName"])
	}
	if _, present := buf.Fields["profession"]; present {
		t.Fatalf("absent optional fields must not be snapshotted")
	}
}

func TestBeginEditUnknownRecord(t *testing.T) {
	ctrl, _ := newTestController()
	if err := ctrl.ActivateTab(context.Background(), TabUsers); err != nil {
		t.Fatalf("activate users: %v", err)
	}
	if err := ctrl.BeginEdit(KindUser, 999); err == nil {
		t.Fatalf("expected begin edit to fail for an unloaded record")
	}
}

func TestCommitFailureKeepsBuffer(t *testing.T) {
	ctrl, backend := newTestController()
	ctx := context.Background()

	if err := ctrl.ActivateTab(ctx, TabUsers); err != nil {
		t.Fatalf("activate users: %v", err)
	}
	if err := ctrl.BeginEdit(KindUser, 1); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	if err := ctrl.SetEditField(KindUser, "email", "new@example.com"); err != nil {
		t.Fatalf("set field: %v", err)
	}

	backend.users.updateErr = errors.New("write rejected")
	if err := ctrl.CommitEdit(ctx, KindUser); err == nil {
		t.Fatalf("expected commit to fail")
	}

	buf, ok := ctrl.EditState(KindUser)
	if !ok {
		t.Fatalf("buffer must survive a failed commit")
	}
	if buf.Fields["email"] != "new@example.com" {
		t.Fatalf("staged field lost after failed commit: %v", buf.Fields["email"])
	}
	if ctrl.Saving() {
		t.Fatalf("saving flag must be released after a failed commit")
	}
}

func TestCommitReloadsTabAndClearsBuffer(t *testing.T) {
	ctrl, backend := newTestController()
	ctx := context.Background()

	if err := ctrl.ActivateTab(ctx, TabUsers); err != nil {
		t.Fatalf("activate users: %v", err)
	}
	if err := ctrl.BeginEdit(KindUser, 1); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	if err := ctrl.SetEditField(KindUser, "city", "Nice"); err != nil {
		t.Fatalf("set field: %v", err)
	}

	if err := ctrl.CommitEdit(ctx, KindUser); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if backend.users.updatedID != 1 {
		t.Fatalf("expected update against user 1, got %d", backend.users.updatedID)
	}
	if len(backend.users.updated) != 1 {
		t.Fatalf("expected exactly one write, got %d", len(backend.users.updated))
	}
	if backend.users.listCalls != 2 {
		t.Fatalf("expected reload after commit, got %d list calls", backend.users.listCalls)
	}
	if _, ok := ctrl.EditState(KindUser); ok {
		t.Fatalf("buffer must be cleared after a successful commit")
	}
	if ctrl.Saving() {
		t.Fatalf("saving flag must be released after commit")
	}
}

func TestCommitWithoutBuffer(t *testing.T) {
	ctrl, _ := newTestController()
	if err := ctrl.CommitEdit(context.Background(), KindOffer); !errors.Is(err, ErrNoActiveEdit) {
		t.Fatalf("expected ErrNoActiveEdit, got %v", err)
	}
}

func TestCancelIdleIsNoOp(t *testing.T) {
	ctrl, _ := newTestController()
	ctrl.CancelEdit(KindPlan)
	if _, ok := ctrl.EditState(KindPlan); ok {
		t.Fatalf("cancel on an idle kind must leave no buffer")
	}
}

func TestSetNumberFieldEmptyUnsets(t *testing.T) {
	ctrl, _ := newTestController()
	ctx := context.Background()

	if err := ctrl.ActivateTab(ctx, TabOffers); err != nil {
		t.Fatalf("activate offers: %v", err)
	}
	if err := ctrl.BeginEdit(KindOffer, 10); err != nil {
		t.Fatalf("begin edit: %v", err)
	}

	if err := ctrl.SetEditNumberField(KindOffer, "price", "52.5"); err != nil {
		t.Fatalf("set number: %v", err)
	}
	buf, _ := ctrl.EditState(KindOffer)
	if buf.Fields["price"] != 52.5 {
		t.Fatalf("expected parsed price, got %v", buf.Fields["price"])
	}

	if err := ctrl.SetEditNumberField(KindOffer, "price", ""); err != nil {
		t.Fatalf("unset number: %v", err)
	}
	buf, _ = ctrl.EditState(KindOffer)
	if _, present := buf.Fields["price"]; present {
		t.Fatalf("empty number input must unset the field, not zero it")
	}

	if err := ctrl.SetEditNumberField(KindOffer, "price", "abc"); err == nil {
		t.Fatalf("expected malformed number to be rejected")
	}
}

func TestSetDateFieldEmptyUnsets(t *testing.T) {
	ctrl, _ := newTestController()
	ctx := context.Background()

	if err := ctrl.ActivateTab(ctx, TabOffers); err != nil {
		t.Fatalf("activate offers: %v", err)
	}
	if err := ctrl.BeginEdit(KindOffer, 10); err != nil {
		t.Fatalf("begin edit: %v", err)
	}

	if err := ctrl.SetEditDateField(KindOffer, "endDate", ""); err != nil {
		t.Fatalf("unset date: %v", err)
	}
	buf, _ := ctrl.EditState(KindOffer)
	if _, present := buf.Fields["endDate"]; present {
		t.Fatalf("empty date input must unset the field, not default it")
	}
}

func TestBeginEditReplacesSameKindBuffer(t *testing.T) {
	ctrl, _ := newTestController()
	ctx := context.Background()

	if err := ctrl.ActivateTab(ctx, TabUsers); err != nil {
		t.Fatalf("activate users: %v", err)
	}
	if err := ctrl.BeginEdit(KindUser, 1); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	if err := ctrl.SetEditField(KindUser, "city", "Nice"); err != nil {
		t.Fatalf("set field: %v", err)
	}

	if err := ctrl.BeginEdit(KindUser, 2); err != nil {
		t.Fatalf("second begin edit: %v", err)
	}
	buf, _ := ctrl.EditState(KindUser)
	if buf.TargetID != 2 {
		t.Fatalf("expected buffer retargeted to user 2, got %d", buf.TargetID)
	}
	if buf.Fields["city"] == "Nice" {
		t.Fatalf("staged fields of the replaced buffer must not leak")
	}
}

func TestIndependentBuffersPerKind(t *testing.T) {
	ctrl, _ := newTestController()
	ctx := context.Background()

	if err := ctrl.ActivateTab(ctx, TabUsers); err != nil {
		t.Fatalf("activate users: %v", err)
	}
	if err := ctrl.ActivateTab(ctx, TabOffers); err != nil {
		t.Fatalf("activate offers: %v", err)
	}

	if err := ctrl.BeginEdit(KindUser, 1); err != nil {
		t.Fatalf("begin user edit: %v", err)
	}
	if err := ctrl.BeginEdit(KindOffer, 10); err != nil {
		t.Fatalf("begin offer edit: %v", err)
	}

	ctrl.CancelEdit(KindUser)
	if _, ok := ctrl.EditState(KindOffer); !ok {
		t.Fatalf("cancelling one kind must not touch another")
	}
}

func TestCreatePlanCommit(t *testing.T) {
	ctrl, backend := newTestController()
	ctx := context.Background()

	if err := ctrl.BeginCreate(KindPlan, domain.FieldPatch{"duration": "MONTHLY"}); err != nil {
		t.Fatalf("begin create: %v", err)
	}
	if err := ctrl.SetEditField(KindPlan, "title", "Pro annuel"); err != nil {
		t.Fatalf("set field: %v", err)
	}
	if err := ctrl.SetEditNumberField(KindPlan, "price", "299"); err != nil {
		t.Fatalf("set price: %v", err)
	}

	if err := ctrl.CommitEdit(ctx, KindPlan); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(backend.subscriptions.created) != 1 {
		t.Fatalf("expected one create call, got %d", len(backend.subscriptions.created))
	}
	created := backend.subscriptions.created[0]
	if created["title"] != "Pro annuel" || created["price"] != float64(299) || created["duration"] != "MONTHLY" {
		t.Fatalf("unexpected create payload: %+v", created)
	}
	if _, ok := ctrl.EditState(KindPlan); ok {
		t.Fatalf("buffer must be cleared after create commit")
	}
}

func TestBeginCreateOnlyForPlans(t *testing.T) {
	ctrl, _ := newTestController()
	if err := ctrl.BeginCreate(KindUser, nil); err == nil {
		t.Fatalf("expected user creation to be rejected")
	}
}

func TestDeletePlanReloadsPricing(t *testing.T) {
	ctrl, backend := newTestController()
	ctx := context.Background()

	if err := ctrl.DeletePlan(ctx, 1); err != nil {
		t.Fatalf("delete plan: %v", err)
	}
	if len(backend.subscriptions.deletedIDs) != 1 || backend.subscriptions.deletedIDs[0] != 1 {
		t.Fatalf("expected plan 1 deleted, got %+v", backend.subscriptions.deletedIDs)
	}
	if backend.subscriptions.planCalls != 1 {
		t.Fatalf("expected pricing reload after delete, got %d plan calls", backend.subscriptions.planCalls)
	}
}
