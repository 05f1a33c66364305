package app

import (
	"fmt"
	"strings"
	"time"

	"fridgeshare/internal/store"
	"fridgeshare/internal/util"
	"fridgeshare/pkg/domain"
)

// Seller responses to an open offer.
const (
	RespondAccept  = "accept"
	RespondDecline = "decline"
	RespondCounter = "counter"
)

// CreateOffer proposes a price on an active listing. A buyer carries at
// most one open offer per item.
func (a *App) CreateOffer(buyer domain.User, itemID string, price float64, note string) (domain.Offer, error) {
	if price < 0 {
		return domain.Offer{}, ErrInvalidPrice
	}
	item, ok, err := a.store.GetItem(itemID)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("fetch item: %w", err)
	}
	if !ok {
		return domain.Offer{}, ErrItemNotFound
	}
	if item.Status != domain.ItemActive {
		return domain.Offer{}, ErrItemNotActive
	}
	if item.OwnerID == buyer.ID {
		return domain.Offer{}, ErrOwnItem
	}
	open, err := a.store.HasOpenOffer(itemID, buyer.ID)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("check open offers: %w", err)
	}
	if open {
		return domain.Offer{}, ErrDuplicateOffer
	}
	now := time.Now().UTC()
	offer := domain.Offer{
		ID:        util.NewID(),
		ItemID:    itemID,
		BuyerID:   buyer.ID,
		SellerID:  item.OwnerID,
		Price:     price,
		Status:    domain.OfferPending,
		Note:      strings.TrimSpace(note),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.SaveOffer(offer); err != nil {
		return domain.Offer{}, fmt.Errorf("save offer: %w", err)
	}
	return offer, nil
}

// GetOffer fetches an offer for one of its parties.
func (a *App) GetOffer(user domain.User, offerID string) (domain.Offer, error) {
	offer, ok, err := a.store.GetOffer(offerID)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("fetch offer: %w", err)
	}
	if !ok {
		return domain.Offer{}, ErrOfferNotFound
	}
	if user.ID != offer.BuyerID && user.ID != offer.SellerID {
		return domain.Offer{}, ErrNotOfferParty
	}
	return offer, nil
}

// OffersForUser lists the caller's offers, made and received.
func (a *App) OffersForUser(user domain.User) (made, received []domain.Offer, err error) {
	made, err = a.store.ListOffers(store.OfferFilter{BuyerID: user.ID})
	if err != nil {
		return nil, nil, fmt.Errorf("list made offers: %w", err)
	}
	received, err = a.store.ListOffers(store.OfferFilter{SellerID: user.ID})
	if err != nil {
		return nil, nil, fmt.Errorf("list received offers: %w", err)
	}
	return made, received, nil
}

// OffersForItem lists every offer on one of the caller's listings.
func (a *App) OffersForItem(owner domain.User, itemID string) ([]domain.Offer, error) {
	item, ok, err := a.store.GetItem(itemID)
	if err != nil {
		return nil, fmt.Errorf("fetch item: %w", err)
	}
	if !ok {
		return nil, ErrItemNotFound
	}
	if item.OwnerID != owner.ID {
		return nil, ErrNotOwner
	}
	return a.store.ListOffers(store.OfferFilter{ItemID: itemID})
}

// RespondToOffer lets the seller accept, decline or counter an open offer.
// Accepting settles the sale: the item goes sold and every other open
// offer on it is declined.
func (a *App) RespondToOffer(seller domain.User, offerID, action string, counterPrice float64) (domain.Offer, error) {
	offer, ok, err := a.store.GetOffer(offerID)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("fetch offer: %w", err)
	}
	if !ok {
		return domain.Offer{}, ErrOfferNotFound
	}
	if offer.SellerID != seller.ID {
		return domain.Offer{}, ErrNotOfferParty
	}
	if offer.Status.Terminal() {
		return domain.Offer{}, ErrOfferTerminal
	}
	if !offer.Status.Open() {
		return domain.Offer{}, ErrOfferNotOpen
	}
	switch action {
	case RespondAccept:
		// A countered offer is open for the buyer only; settling it at
		// the counter price needs the buyer's AcceptCounter.
		if offer.Status == domain.OfferCountered {
			return domain.Offer{}, ErrOfferNotOpen
		}
		return a.settle(offer)
	case RespondDecline:
		offer.Status = domain.OfferDeclined
		offer.UpdatedAt = time.Now().UTC()
		return a.store.UpdateOfferCAS(offer)
	case RespondCounter:
		if counterPrice < 0 {
			return domain.Offer{}, ErrInvalidPrice
		}
		offer.Status = domain.OfferCountered
		offer.CounterPrice = &counterPrice
		offer.UpdatedAt = time.Now().UTC()
		return a.store.UpdateOfferCAS(offer)
	default:
		return domain.Offer{}, fmt.Errorf("unknown action %q", action)
	}
}

// AcceptCounter lets the buyer take the seller's counter price. Legal
// only while the offer is countered.
func (a *App) AcceptCounter(buyer domain.User, offerID string) (domain.Offer, error) {
	offer, ok, err := a.store.GetOffer(offerID)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("fetch offer: %w", err)
	}
	if !ok {
		return domain.Offer{}, ErrOfferNotFound
	}
	if offer.BuyerID != buyer.ID {
		return domain.Offer{}, ErrNotOfferParty
	}
	if offer.Status.Terminal() {
		return domain.Offer{}, ErrOfferTerminal
	}
	if offer.Status != domain.OfferCountered {
		return domain.Offer{}, ErrOfferNotOpen
	}
	return a.settle(offer)
}

// CancelOffer withdraws an open offer. Buyer only.
func (a *App) CancelOffer(buyer domain.User, offerID string) (domain.Offer, error) {
	offer, ok, err := a.store.GetOffer(offerID)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("fetch offer: %w", err)
	}
	if !ok {
		return domain.Offer{}, ErrOfferNotFound
	}
	if offer.BuyerID != buyer.ID {
		return domain.Offer{}, ErrNotOfferParty
	}
	if offer.Status.Terminal() {
		return domain.Offer{}, ErrOfferTerminal
	}
	if !offer.Status.Open() {
		return domain.Offer{}, ErrOfferNotOpen
	}
	offer.Status = domain.OfferCancelled
	offer.UpdatedAt = time.Now().UTC()
	return a.store.UpdateOfferCAS(offer)
}

// MarkReadyForPickup flags an accepted offer as staged for collection,
// with an optional hint on where to find it.
func (a *App) MarkReadyForPickup(seller domain.User, offerID, pickupHint string) (domain.Offer, error) {
	offer, ok, err := a.store.GetOffer(offerID)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("fetch offer: %w", err)
	}
	if !ok {
		return domain.Offer{}, ErrOfferNotFound
	}
	if offer.SellerID != seller.ID {
		return domain.Offer{}, ErrNotOfferParty
	}
	if offer.Status != domain.OfferAccepted {
		return domain.Offer{}, ErrOfferNotAccepted
	}
	offer.Status = domain.OfferReadyForPickup
	offer.PickupHint = strings.TrimSpace(pickupHint)
	offer.UpdatedAt = time.Now().UTC()
	return a.store.UpdateOfferCAS(offer)
}

// ConfirmCompletion records one party's sign-off on the exchange. Once
// both have confirmed, the offer completes and the sale counters move.
func (a *App) ConfirmCompletion(user domain.User, offerID string) (domain.Offer, domain.PurchaseConfirmation, error) {
	offer, ok, err := a.store.GetOffer(offerID)
	if err != nil {
		return domain.Offer{}, domain.PurchaseConfirmation{}, fmt.Errorf("fetch offer: %w", err)
	}
	if !ok {
		return domain.Offer{}, domain.PurchaseConfirmation{}, ErrOfferNotFound
	}
	if user.ID != offer.BuyerID && user.ID != offer.SellerID {
		return domain.Offer{}, domain.PurchaseConfirmation{}, ErrNotOfferParty
	}
	if offer.Status.Terminal() {
		return domain.Offer{}, domain.PurchaseConfirmation{}, ErrOfferTerminal
	}
	if offer.Status != domain.OfferAccepted && offer.Status != domain.OfferReadyForPickup {
		return domain.Offer{}, domain.PurchaseConfirmation{}, ErrOfferNotAccepted
	}

	now := time.Now().UTC()
	conf, found, err := a.store.GetConfirmation(offer.ItemID)
	if err != nil {
		return domain.Offer{}, domain.PurchaseConfirmation{}, fmt.Errorf("fetch confirmation: %w", err)
	}
	if !found {
		conf = domain.PurchaseConfirmation{
			ID:        util.NewID(),
			ItemID:    offer.ItemID,
			BuyerID:   offer.BuyerID,
			SellerID:  offer.SellerID,
			CreatedAt: now,
		}
	}
	if user.ID == offer.BuyerID {
		conf.BuyerConfirmed = true
	} else {
		conf.SellerConfirmed = true
	}
	conf.UpdatedAt = now
	if err := a.store.SaveConfirmation(conf); err != nil {
		return domain.Offer{}, domain.PurchaseConfirmation{}, fmt.Errorf("save confirmation: %w", err)
	}
	if !conf.Completed() {
		return offer, conf, nil
	}

	offer.Status = domain.OfferCompleted
	offer.UpdatedAt = now
	offer, err = a.store.UpdateOfferCAS(offer)
	if err != nil {
		return domain.Offer{}, domain.PurchaseConfirmation{}, err
	}
	if err := a.recordSale(offer.SellerID, offer.BuyerID); err != nil {
		return domain.Offer{}, domain.PurchaseConfirmation{}, err
	}
	return offer, conf, nil
}

func (a *App) settle(offer domain.Offer) (domain.Offer, error) {
	item, ok, err := a.store.GetItem(offer.ItemID)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("fetch item: %w", err)
	}
	if !ok {
		return domain.Offer{}, ErrItemNotFound
	}
	if item.Status != domain.ItemActive {
		return domain.Offer{}, ErrItemNotActive
	}
	settled, _, err := a.store.SettleOffer(offer, item)
	if err != nil {
		return domain.Offer{}, err
	}
	return settled, nil
}

func (a *App) recordSale(sellerID, buyerID string) error {
	now := time.Now().UTC()
	seller, ok, err := a.store.GetUserByID(sellerID)
	if err != nil {
		return fmt.Errorf("fetch seller: %w", err)
	}
	if ok {
		seller.Sales++
		seller.UpdatedAt = now
		if err := a.store.SaveUser(seller); err != nil {
			return fmt.Errorf("save seller: %w", err)
		}
	}
	buyer, ok, err := a.store.GetUserByID(buyerID)
	if err != nil {
		return fmt.Errorf("fetch buyer: %w", err)
	}
	if ok {
		buyer.Purchases++
		buyer.UpdatedAt = now
		if err := a.store.SaveUser(buyer); err != nil {
			return fmt.Errorf("save buyer: %w", err)
		}
	}
	return nil
}
