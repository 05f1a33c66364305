package app

import (
	"testing"

	"fridgeshare/pkg/domain"
)

func TestHandoffLifecycle(t *testing.T) {
	a := newTestApp(t)
	owner := registerUser(t, a, "alice")
	recipient := registerUser(t, a, "bob")
	stranger := registerUser(t, a, "carol")
	item := listItem(t, a, owner, "leftover lasagna", 0)

	if _, err := a.InitiateHandoff(recipient, item.ID, "bob", ""); err != ErrNotOwner {
		t.Fatalf("non-owner initiate err = %v, want ErrNotOwner", err)
	}
	if _, err := a.InitiateHandoff(owner, item.ID, "nobody", ""); err != ErrRecipientNotFound {
		t.Fatalf("unknown recipient err = %v, want ErrRecipientNotFound", err)
	}
	if _, err := a.InitiateHandoff(owner, item.ID, "alice", ""); err != ErrOwnItem {
		t.Fatalf("self handoff err = %v, want ErrOwnItem", err)
	}

	pending, err := a.InitiateHandoff(owner, item.ID, "bob", "leave it at the front desk")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if pending.HandoffState != domain.HandoffPending {
		t.Fatalf("state = %q, want pending", pending.HandoffState)
	}
	if pending.HandoffTo != recipient.ID {
		t.Fatalf("handoffTo = %q, want %q", pending.HandoffTo, recipient.ID)
	}
	if pending.Status != domain.ItemHandedOff {
		t.Fatalf("item status = %q, want handed_off while pending", pending.Status)
	}
	if _, err := a.CreateOffer(stranger, item.ID, 1, ""); err != ErrItemNotActive {
		t.Fatalf("offer on handed_off item err = %v, want ErrItemNotActive", err)
	}

	if _, err := a.CompleteHandoff(stranger, item.ID); err != ErrHandoffRecipient {
		t.Fatalf("stranger complete err = %v, want ErrHandoffRecipient", err)
	}
	done, err := a.CompleteHandoff(recipient, item.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.HandoffState != domain.HandoffCompleted {
		t.Fatalf("state = %q, want completed", done.HandoffState)
	}
	if done.Status != domain.ItemSold {
		t.Fatalf("item status = %q, want sold", done.Status)
	}
	if done.HandoffAt == nil {
		t.Fatalf("handoffAt not stamped")
	}

	// Second complete fails: the sub-status is no longer pending.
	if _, err := a.CompleteHandoff(recipient, item.ID); err != ErrNoHandoffPending {
		t.Fatalf("re-complete err = %v, want ErrNoHandoffPending", err)
	}
}

func TestOwnerMayCompleteHandoff(t *testing.T) {
	a := newTestApp(t)
	owner := registerUser(t, a, "alice")
	registerUser(t, a, "bob")
	item := listItem(t, a, owner, "bagels", 0)

	if _, err := a.InitiateHandoff(owner, item.ID, "bob", "front desk"); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	done, err := a.CompleteHandoff(owner, item.ID)
	if err != nil {
		t.Fatalf("owner complete: %v", err)
	}
	if done.Status != domain.ItemSold || done.HandoffState != domain.HandoffCompleted {
		t.Fatalf("item = %+v, want sold/completed", done)
	}
}

func TestCancelHandoffReopensListing(t *testing.T) {
	a := newTestApp(t)
	owner := registerUser(t, a, "alice")
	registerUser(t, a, "bob")
	item := listItem(t, a, owner, "bread", 0)

	if _, err := a.CancelHandoff(owner, item.ID); err != ErrNoHandoffPending {
		t.Fatalf("cancel without pending err = %v, want ErrNoHandoffPending", err)
	}
	if _, err := a.InitiateHandoff(owner, item.ID, "bob", ""); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	cleared, err := a.CancelHandoff(owner, item.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cleared.HandoffState != domain.HandoffNone || cleared.HandoffTo != "" {
		t.Fatalf("handoff not cleared: %+v", cleared)
	}
	if cleared.Status != domain.ItemActive {
		t.Fatalf("status = %q, want active", cleared.Status)
	}

	// A cancelled handoff can be re-initiated to someone else.
	registerUser(t, a, "carol")
	if _, err := a.InitiateHandoff(owner, item.ID, "carol", ""); err != nil {
		t.Fatalf("re-initiate: %v", err)
	}
}

func TestHandoffBlockedOnInactiveItem(t *testing.T) {
	a := newTestApp(t)
	owner := registerUser(t, a, "alice")
	buyer := registerUser(t, a, "bob")
	item := listItem(t, a, owner, "apples", 2)

	offer, err := a.CreateOffer(buyer, item.ID, 2, "")
	if err != nil {
		t.Fatalf("offer: %v", err)
	}
	if _, err := a.RespondToOffer(owner, offer.ID, RespondAccept, 0); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := a.InitiateHandoff(owner, item.ID, "bob", ""); err != ErrItemNotActive {
		t.Fatalf("handoff on sold item err = %v, want ErrItemNotActive", err)
	}
}
