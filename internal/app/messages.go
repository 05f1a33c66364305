package app

import (
	"fmt"
	"strings"
	"time"

	"fridgeshare/internal/store"
	"fridgeshare/internal/util"
	"fridgeshare/pkg/domain"
)

// SendDirectMessage delivers a one-off message to another user, optionally
// pinned to a listing.
func (a *App) SendDirectMessage(sender domain.User, recipientUsername, itemID, content string) (domain.DirectMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.DirectMessage{}, ErrEmptyMessage
	}
	recipientUsername = strings.TrimSpace(strings.ToLower(recipientUsername))
	recipient, ok, err := a.store.GetUserByUsername(recipientUsername)
	if err != nil {
		return domain.DirectMessage{}, fmt.Errorf("fetch recipient: %w", err)
	}
	if !ok {
		return domain.DirectMessage{}, ErrRecipientNotFound
	}
	if recipient.ID == sender.ID {
		return domain.DirectMessage{}, ErrRecipientNotFound
	}
	if itemID != "" {
		if _, ok, err := a.store.GetItem(itemID); err != nil {
			return domain.DirectMessage{}, fmt.Errorf("fetch item: %w", err)
		} else if !ok {
			return domain.DirectMessage{}, ErrItemNotFound
		}
	}
	msg := domain.DirectMessage{
		ID:          util.NewID(),
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		ItemID:      itemID,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.store.SaveDirectMessage(msg); err != nil {
		return domain.DirectMessage{}, fmt.Errorf("save message: %w", err)
	}
	return msg, nil
}

// Inbox lists the caller's direct messages, optionally narrowed to one
// peer or one listing. Newest first.
func (a *App) Inbox(user domain.User, peerUsername, itemID string) ([]domain.DirectMessage, error) {
	peerID := ""
	if peerUsername != "" {
		peer, ok, err := a.store.GetUserByUsername(strings.TrimSpace(strings.ToLower(peerUsername)))
		if err != nil {
			return nil, fmt.Errorf("fetch peer: %w", err)
		}
		if !ok {
			return nil, ErrRecipientNotFound
		}
		peerID = peer.ID
	}
	return a.store.ListDirectMessages(store.DirectMessageFilter{
		UserID: user.ID,
		PeerID: peerID,
		ItemID: itemID,
	})
}
