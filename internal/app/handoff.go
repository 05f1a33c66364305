package app

import (
	"fmt"
	"strings"
	"time"

	"fridgeshare/pkg/domain"
)

// InitiateHandoff designates a recipient who will pick the item up
// without payment. The listing moves to handed_off immediately so no new
// offers land while the pickup is pending.
func (a *App) InitiateHandoff(owner domain.User, itemID, recipientUsername, notes string) (domain.Item, error) {
	recipientUsername = strings.TrimSpace(strings.ToLower(recipientUsername))
	if recipientUsername == "" {
		return domain.Item{}, ErrRecipientNotFound
	}
	recipient, ok, err := a.store.GetUserByUsername(recipientUsername)
	if err != nil {
		return domain.Item{}, fmt.Errorf("fetch recipient: %w", err)
	}
	if !ok {
		return domain.Item{}, ErrRecipientNotFound
	}
	item, ok, err := a.store.GetItem(itemID)
	if err != nil {
		return domain.Item{}, fmt.Errorf("fetch item: %w", err)
	}
	if !ok {
		return domain.Item{}, ErrItemNotFound
	}
	if item.OwnerID != owner.ID {
		return domain.Item{}, ErrNotOwner
	}
	if item.Status != domain.ItemActive {
		return domain.Item{}, ErrItemNotActive
	}
	if recipient.ID == owner.ID {
		return domain.Item{}, ErrOwnItem
	}
	item.Status = domain.ItemHandedOff
	item.HandoffTo = recipient.ID
	item.HandoffState = domain.HandoffPending
	item.HandoffNotes = strings.TrimSpace(notes)
	item.HandoffAt = nil
	item.UpdatedAt = time.Now().UTC()
	return a.store.UpdateItemCAS(item)
}

// CompleteHandoff confirms the pickup. The owner or the designated
// recipient may complete; a second call fails because the sub-status is
// no longer pending.
func (a *App) CompleteHandoff(user domain.User, itemID string) (domain.Item, error) {
	item, ok, err := a.store.GetItem(itemID)
	if err != nil {
		return domain.Item{}, fmt.Errorf("fetch item: %w", err)
	}
	if !ok {
		return domain.Item{}, ErrItemNotFound
	}
	if item.HandoffState != domain.HandoffPending {
		return domain.Item{}, ErrNoHandoffPending
	}
	if user.ID != item.OwnerID && user.ID != item.HandoffTo {
		return domain.Item{}, ErrHandoffRecipient
	}
	now := time.Now().UTC()
	item.Status = domain.ItemSold
	item.HandoffState = domain.HandoffCompleted
	item.HandoffAt = &now
	item.UpdatedAt = now
	return a.store.UpdateItemCAS(item)
}

// CancelHandoff withdraws a pending handoff and reopens the listing.
// Owner only.
func (a *App) CancelHandoff(owner domain.User, itemID string) (domain.Item, error) {
	item, ok, err := a.store.GetItem(itemID)
	if err != nil {
		return domain.Item{}, fmt.Errorf("fetch item: %w", err)
	}
	if !ok {
		return domain.Item{}, ErrItemNotFound
	}
	if item.OwnerID != owner.ID {
		return domain.Item{}, ErrNotOwner
	}
	if item.HandoffState != domain.HandoffPending {
		return domain.Item{}, ErrNoHandoffPending
	}
	item.Status = domain.ItemActive
	item.HandoffTo = ""
	item.HandoffState = domain.HandoffNone
	item.HandoffNotes = ""
	item.HandoffAt = nil
	item.UpdatedAt = time.Now().UTC()
	return a.store.UpdateItemCAS(item)
}
