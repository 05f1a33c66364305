package app

import (
	"testing"

	"fridgeshare/pkg/domain"
)

func TestOfferCounterThenBuyerAccepts(t *testing.T) {
	a := newTestApp(t)
	seller := registerUser(t, a, "seller")
	buyer := registerUser(t, a, "buyer")
	item := listItem(t, a, seller, "sourdough loaf", 5)

	offer, err := a.CreateOffer(buyer, item.ID, 3, "can pick up tonight")
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if offer.Status != domain.OfferPending {
		t.Fatalf("status = %q, want pending", offer.Status)
	}

	countered, err := a.RespondToOffer(seller, offer.ID, RespondCounter, 4)
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	if countered.Status != domain.OfferCountered {
		t.Fatalf("status = %q, want countered", countered.Status)
	}
	if countered.CounterPrice == nil || *countered.CounterPrice != 4 {
		t.Fatalf("counterPrice = %v, want 4", countered.CounterPrice)
	}

	// Only the buyer may take the counter.
	if _, err := a.AcceptCounter(seller, offer.ID); err != ErrNotOfferParty {
		t.Fatalf("seller AcceptCounter err = %v, want ErrNotOfferParty", err)
	}
	accepted, err := a.AcceptCounter(buyer, offer.ID)
	if err != nil {
		t.Fatalf("accept counter: %v", err)
	}
	if accepted.Status != domain.OfferAccepted {
		t.Fatalf("status = %q, want accepted", accepted.Status)
	}
	if accepted.SettlePrice() != 4 {
		t.Fatalf("settle price = %v, want 4", accepted.SettlePrice())
	}

	gotItem, err := a.GetItem(item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if gotItem.Status != domain.ItemSold {
		t.Fatalf("item status = %q, want sold", gotItem.Status)
	}
}

func TestSellerCannotAcceptOwnCounter(t *testing.T) {
	a := newTestApp(t)
	seller := registerUser(t, a, "seller")
	buyer := registerUser(t, a, "buyer")
	item := listItem(t, a, seller, "sourdough loaf", 5)

	offer, err := a.CreateOffer(buyer, item.ID, 3, "")
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if _, err := a.RespondToOffer(seller, offer.ID, RespondCounter, 4); err != nil {
		t.Fatalf("counter: %v", err)
	}

	// A countered offer waits on the buyer; the seller accepting their
	// own counter would settle at a price the buyer never agreed to.
	if _, err := a.RespondToOffer(seller, offer.ID, RespondAccept, 0); err != ErrOfferNotOpen {
		t.Fatalf("seller accept after counter err = %v, want ErrOfferNotOpen", err)
	}

	got, _, err := a.store.GetOffer(offer.ID)
	if err != nil {
		t.Fatalf("reload offer: %v", err)
	}
	if got.Status != domain.OfferCountered {
		t.Fatalf("status = %q, want countered", got.Status)
	}
	gotItem, err := a.GetItem(item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if gotItem.Status != domain.ItemActive {
		t.Fatalf("item status = %q, want active", gotItem.Status)
	}
}

func TestBuyerCancelsAfterCounter(t *testing.T) {
	a := newTestApp(t)
	seller := registerUser(t, a, "seller")
	buyer := registerUser(t, a, "buyer")
	item := listItem(t, a, seller, "sourdough loaf", 5)

	offer, err := a.CreateOffer(buyer, item.ID, 3, "")
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	countered, err := a.RespondToOffer(seller, offer.ID, RespondCounter, 4)
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	if countered.CounterPrice == nil || *countered.CounterPrice != 4 {
		t.Fatalf("counterPrice = %v, want 4", countered.CounterPrice)
	}

	cancelled, err := a.CancelOffer(buyer, offer.ID)
	if err != nil {
		t.Fatalf("cancel after counter: %v", err)
	}
	if cancelled.Status != domain.OfferCancelled {
		t.Fatalf("status = %q, want cancelled", cancelled.Status)
	}

	gotItem, err := a.GetItem(item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if gotItem.Status != domain.ItemActive {
		t.Fatalf("item status = %q, want active throughout", gotItem.Status)
	}
}

func TestAcceptCounterRequiresCounteredState(t *testing.T) {
	a := newTestApp(t)
	seller := registerUser(t, a, "seller")
	buyer := registerUser(t, a, "buyer")
	item := listItem(t, a, seller, "apples", 2)

	offer, err := a.CreateOffer(buyer, item.ID, 2, "")
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if _, err := a.AcceptCounter(buyer, offer.ID); err != ErrOfferNotOpen {
		t.Fatalf("accept pending counter err = %v, want ErrOfferNotOpen", err)
	}
}

func TestOfferGuards(t *testing.T) {
	a := newTestApp(t)
	seller := registerUser(t, a, "seller")
	buyer := registerUser(t, a, "buyer")
	item := listItem(t, a, seller, "apples", 2)

	if _, err := a.CreateOffer(seller, item.ID, 2, ""); err != ErrOwnItem {
		t.Fatalf("own-item offer err = %v, want ErrOwnItem", err)
	}
	if _, err := a.CreateOffer(buyer, item.ID, -1, ""); err != ErrInvalidPrice {
		t.Fatalf("negative price err = %v, want ErrInvalidPrice", err)
	}
	if _, err := a.CreateOffer(buyer, item.ID, 2, ""); err != nil {
		t.Fatalf("first offer: %v", err)
	}
	if _, err := a.CreateOffer(buyer, item.ID, 3, ""); err != ErrDuplicateOffer {
		t.Fatalf("duplicate offer err = %v, want ErrDuplicateOffer", err)
	}
}

func TestCancelledOfferIsTerminal(t *testing.T) {
	a := newTestApp(t)
	seller := registerUser(t, a, "seller")
	buyer := registerUser(t, a, "buyer")
	item := listItem(t, a, seller, "apples", 2)

	offer, err := a.CreateOffer(buyer, item.ID, 2, "")
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if _, err := a.CancelOffer(seller, offer.ID); err != ErrNotOfferParty {
		t.Fatalf("seller cancel err = %v, want ErrNotOfferParty", err)
	}
	if _, err := a.CancelOffer(buyer, offer.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := a.RespondToOffer(seller, offer.ID, RespondAccept, 0); err != ErrOfferTerminal {
		t.Fatalf("respond after cancel err = %v, want ErrOfferTerminal", err)
	}
	if _, err := a.CancelOffer(buyer, offer.ID); err != ErrOfferTerminal {
		t.Fatalf("double cancel err = %v, want ErrOfferTerminal", err)
	}
}

func TestAcceptDeclinesSiblingOffers(t *testing.T) {
	a := newTestApp(t)
	seller := registerUser(t, a, "seller")
	buyer1 := registerUser(t, a, "buyer1")
	buyer2 := registerUser(t, a, "buyer2")
	item := listItem(t, a, seller, "apples", 2)

	first, err := a.CreateOffer(buyer1, item.ID, 2, "")
	if err != nil {
		t.Fatalf("first offer: %v", err)
	}
	second, err := a.CreateOffer(buyer2, item.ID, 3, "")
	if err != nil {
		t.Fatalf("second offer: %v", err)
	}
	if _, err := a.RespondToOffer(seller, first.ID, RespondAccept, 0); err != nil {
		t.Fatalf("accept: %v", err)
	}

	got, _, err := a.store.GetOffer(second.ID)
	if err != nil {
		t.Fatalf("reload sibling: %v", err)
	}
	if got.Status != domain.OfferDeclined {
		t.Fatalf("sibling status = %q, want declined", got.Status)
	}

	// The item is sold now, so new offers are rejected.
	buyer3 := registerUser(t, a, "buyer3")
	if _, err := a.CreateOffer(buyer3, item.ID, 5, ""); err != ErrItemNotActive {
		t.Fatalf("offer on sold item err = %v, want ErrItemNotActive", err)
	}
}

func TestReadyForPickupFlow(t *testing.T) {
	a := newTestApp(t)
	seller := registerUser(t, a, "seller")
	buyer := registerUser(t, a, "buyer")
	item := listItem(t, a, seller, "apples", 2)

	offer, err := a.CreateOffer(buyer, item.ID, 2, "")
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if _, err := a.MarkReadyForPickup(seller, offer.ID, "front desk"); err != ErrOfferNotAccepted {
		t.Fatalf("ready before accept err = %v, want ErrOfferNotAccepted", err)
	}
	if _, err := a.RespondToOffer(seller, offer.ID, RespondAccept, 0); err != nil {
		t.Fatalf("accept: %v", err)
	}
	ready, err := a.MarkReadyForPickup(seller, offer.ID, "front desk, ask for Sam")
	if err != nil {
		t.Fatalf("ready: %v", err)
	}
	if ready.Status != domain.OfferReadyForPickup {
		t.Fatalf("status = %q, want ready_for_pickup", ready.Status)
	}
	if ready.PickupHint != "front desk, ask for Sam" {
		t.Fatalf("pickupHint = %q", ready.PickupHint)
	}
}

func TestConfirmCompletionNeedsBothParties(t *testing.T) {
	a := newTestApp(t)
	seller := registerUser(t, a, "seller")
	buyer := registerUser(t, a, "buyer")
	stranger := registerUser(t, a, "stranger")
	item := listItem(t, a, seller, "apples", 2)

	offer, err := a.CreateOffer(buyer, item.ID, 2, "")
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if _, err := a.RespondToOffer(seller, offer.ID, RespondAccept, 0); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, _, err := a.ConfirmCompletion(stranger, offer.ID); err != ErrNotOfferParty {
		t.Fatalf("stranger confirm err = %v, want ErrNotOfferParty", err)
	}
	got, conf, err := a.ConfirmCompletion(buyer, offer.ID)
	if err != nil {
		t.Fatalf("buyer confirm: %v", err)
	}
	if got.Status == domain.OfferCompleted {
		t.Fatalf("completed after one confirmation")
	}
	if !conf.BuyerConfirmed || conf.SellerConfirmed {
		t.Fatalf("confirmation = %+v, want buyer only", conf)
	}
	got, conf, err = a.ConfirmCompletion(seller, offer.ID)
	if err != nil {
		t.Fatalf("seller confirm: %v", err)
	}
	if got.Status != domain.OfferCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if !conf.Completed() {
		t.Fatalf("confirmation not completed: %+v", conf)
	}
}
