package app

import (
	"context"
	"testing"
	"time"

	"fridgeshare/pkg/domain"
)

func settleSale(t *testing.T, a *App) (seller, buyer domain.User, offer domain.Offer) {
	t.Helper()
	seller = registerUser(t, a, "seller")
	buyer = registerUser(t, a, "buyer")
	item := listItem(t, a, seller, "apples", 2)
	offer, err := a.CreateOffer(buyer, item.ID, 2, "")
	if err != nil {
		t.Fatalf("offer: %v", err)
	}
	offer, err = a.RespondToOffer(seller, offer.ID, RespondAccept, 0)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	return seller, buyer, offer
}

func TestStartTransactionCreatesRoomAndCode(t *testing.T) {
	a := newTestApp(t)
	_, buyer, offer := settleSale(t, a)

	tx, err := a.StartTransaction(buyer, offer.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if tx.Status != domain.TransactionPending {
		t.Fatalf("status = %q, want pending", tx.Status)
	}
	if len(tx.VerificationCode) != 8 {
		t.Fatalf("verification code %q, want 8 chars", tx.VerificationCode)
	}
	if tx.RoomID == "" {
		t.Fatalf("no room bound to transaction")
	}
	room, err := a.RoomForTransaction(buyer, tx.ID)
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	if len(room.Participants) != 2 {
		t.Fatalf("participants = %d, want 2", len(room.Participants))
	}
}

func TestStartTransactionGuards(t *testing.T) {
	a := newTestApp(t)
	seller := registerUser(t, a, "seller")
	buyer := registerUser(t, a, "buyer")
	stranger := registerUser(t, a, "stranger")
	item := listItem(t, a, seller, "apples", 2)
	offer, err := a.CreateOffer(buyer, item.ID, 2, "")
	if err != nil {
		t.Fatalf("offer: %v", err)
	}

	if _, err := a.StartTransaction(buyer, offer.ID); err != ErrOfferNotAccepted {
		t.Fatalf("start on pending offer err = %v, want ErrOfferNotAccepted", err)
	}
	if _, err := a.RespondToOffer(seller, offer.ID, RespondAccept, 0); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := a.StartTransaction(stranger, offer.ID); err != ErrNotOfferParty {
		t.Fatalf("stranger start err = %v, want ErrNotOfferParty", err)
	}
}

func TestTransactionStatusFlow(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	seller, buyer, offer := settleSale(t, a)
	tx, err := a.StartTransaction(buyer, offer.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := a.UpdateTransactionStatus(ctx, buyer, tx.ID, domain.TransactionCompleted, tx.VerificationCode); err != ErrBadStatusChange {
		t.Fatalf("skip to completed err = %v, want ErrBadStatusChange", err)
	}
	if _, err := a.UpdateTransactionStatus(ctx, seller, tx.ID, domain.TransactionConfirmed, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := a.UpdateTransactionStatus(ctx, buyer, tx.ID, domain.TransactionInProgress, ""); err != nil {
		t.Fatalf("in progress: %v", err)
	}
	if _, err := a.UpdateTransactionStatus(ctx, buyer, tx.ID, domain.TransactionCompleted, "WRONG"); err != ErrWrongCode {
		t.Fatalf("wrong code err = %v, want ErrWrongCode", err)
	}
	done, err := a.UpdateTransactionStatus(ctx, buyer, tx.ID, domain.TransactionCompleted, tx.VerificationCode)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != domain.TransactionCompleted {
		t.Fatalf("status = %q, want completed", done.Status)
	}
	if _, err := a.UpdateTransactionStatus(ctx, buyer, tx.ID, domain.TransactionCancelled, ""); err != ErrTransactionTerminal {
		t.Fatalf("update after completion err = %v, want ErrTransactionTerminal", err)
	}
}

func TestHandoffTransactionCompletesHandoff(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	owner := registerUser(t, a, "owner")
	recipient := registerUser(t, a, "recipient")
	item := listItem(t, a, owner, "lasagna", 0)

	if _, err := a.StartHandoffTransaction(recipient, item.ID); err != ErrNoHandoffPending {
		t.Fatalf("start without handoff err = %v, want ErrNoHandoffPending", err)
	}
	if _, err := a.InitiateHandoff(owner, item.ID, "recipient", "front desk"); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	tx, err := a.StartHandoffTransaction(recipient, item.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if tx.Mode != domain.ModeHandoff {
		t.Fatalf("mode = %q, want handoff", tx.Mode)
	}

	if _, err := a.UpdateTransactionStatus(ctx, owner, tx.ID, domain.TransactionConfirmed, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := a.UpdateTransactionStatus(ctx, recipient, tx.ID, domain.TransactionInProgress, ""); err != nil {
		t.Fatalf("in progress: %v", err)
	}
	if _, err := a.UpdateTransactionStatus(ctx, recipient, tx.ID, domain.TransactionCompleted, tx.VerificationCode); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := a.GetItem(item.ID)
	if err != nil {
		t.Fatalf("fetch item: %v", err)
	}
	if got.Status != domain.ItemSold || got.HandoffState != domain.HandoffCompleted {
		t.Fatalf("item = %+v, want sold/completed after handoff transaction", got)
	}
}

func TestSetMeetingWritesSystemMessage(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	_, buyer, offer := settleSale(t, a)
	tx, err := a.StartTransaction(buyer, offer.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	start := time.Now().UTC().Add(time.Hour)
	end := start.Add(30 * time.Minute)
	updated, err := a.SetMeeting(ctx, buyer, tx.ID, domain.GeoPoint{Lat: 42.35, Lng: -71.06}, "library steps", &start, &end)
	if err != nil {
		t.Fatalf("set meeting: %v", err)
	}
	if updated.MeetingPoint == nil || updated.MeetingLabel != "library steps" {
		t.Fatalf("meeting not recorded: %+v", updated)
	}

	history, err := a.ChatHistory(buyer, tx.RoomID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history len = %d, want 1 system message", len(history))
	}
	if history[0].Type != domain.MessageSystem {
		t.Fatalf("message type = %q, want system", history[0].Type)
	}

	if _, err := a.SetMeeting(ctx, buyer, tx.ID, domain.GeoPoint{Lat: 42.35, Lng: -71.06}, "", &end, &start); err != ErrBadStatusChange {
		t.Fatalf("inverted window err = %v, want ErrBadStatusChange", err)
	}
}

func TestUpdateLiveLocation(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	seller, buyer, offer := settleSale(t, a)
	tx, err := a.StartTransaction(buyer, offer.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	events, cancel, err := a.SubscribeRoom(seller, tx.RoomID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	updated, err := a.UpdateLiveLocation(ctx, buyer, tx.ID, domain.GeoPoint{Lat: 42.34, Lng: -71.1})
	if err != nil {
		t.Fatalf("live location: %v", err)
	}
	if got := updated.LiveLocations[buyer.ID]; got.Lat != 42.34 {
		t.Fatalf("live location not stored: %+v", updated.LiveLocations)
	}

	select {
	case event := <-events:
		if event.Type != "location-updated" {
			t.Fatalf("event type = %q, want location-updated", event.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("no location event delivered")
	}
}
