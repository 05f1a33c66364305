package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"fridgeshare/internal/realtime"
	"fridgeshare/internal/util"
	"fridgeshare/pkg/domain"
)

var transactionFlow = map[domain.TransactionStatus][]domain.TransactionStatus{
	domain.TransactionPending:    {domain.TransactionConfirmed, domain.TransactionCancelled},
	domain.TransactionConfirmed:  {domain.TransactionInProgress, domain.TransactionCancelled},
	domain.TransactionInProgress: {domain.TransactionCompleted, domain.TransactionCancelled},
}

func legalTransition(from, to domain.TransactionStatus) bool {
	for _, next := range transactionFlow[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StartTransaction opens the meetup flow for a settled offer: a
// transaction with a fresh verification code plus a chat room holding
// both parties. Either party may start it.
func (a *App) StartTransaction(user domain.User, offerID string) (domain.Transaction, error) {
	offer, ok, err := a.store.GetOffer(offerID)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("fetch offer: %w", err)
	}
	if !ok {
		return domain.Transaction{}, ErrOfferNotFound
	}
	if user.ID != offer.BuyerID && user.ID != offer.SellerID {
		return domain.Transaction{}, ErrNotOfferParty
	}
	if offer.Status != domain.OfferAccepted && offer.Status != domain.OfferReadyForPickup {
		return domain.Transaction{}, ErrOfferNotAccepted
	}

	now := time.Now().UTC()
	tx := domain.Transaction{
		ID:               util.NewID(),
		ItemID:           offer.ItemID,
		SellerID:         offer.SellerID,
		BuyerID:          offer.BuyerID,
		Mode:             domain.ModeDirect,
		Status:           domain.TransactionPending,
		VerificationCode: newVerificationCode(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	room := domain.ChatRoom{
		ID:            util.NewID(),
		TransactionID: tx.ID,
		Participants: []domain.Participant{
			{UserID: offer.SellerID},
			{UserID: offer.BuyerID},
		},
		CreatedAt: now,
	}
	tx.RoomID = room.ID
	if err := a.store.SaveTransaction(tx); err != nil {
		return domain.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	if err := a.store.SaveRoom(room); err != nil {
		return domain.Transaction{}, fmt.Errorf("save room: %w", err)
	}
	return tx, nil
}

// StartHandoffTransaction opens the meetup flow for a pending handoff.
// Either the owner or the designated recipient may start it.
func (a *App) StartHandoffTransaction(user domain.User, itemID string) (domain.Transaction, error) {
	item, ok, err := a.store.GetItem(itemID)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("fetch item: %w", err)
	}
	if !ok {
		return domain.Transaction{}, ErrItemNotFound
	}
	if item.HandoffState != domain.HandoffPending {
		return domain.Transaction{}, ErrNoHandoffPending
	}
	if user.ID != item.OwnerID && user.ID != item.HandoffTo {
		return domain.Transaction{}, ErrNotParticipant
	}

	now := time.Now().UTC()
	tx := domain.Transaction{
		ID:               util.NewID(),
		ItemID:           item.ID,
		SellerID:         item.OwnerID,
		BuyerID:          item.HandoffTo,
		Mode:             domain.ModeHandoff,
		Status:           domain.TransactionPending,
		VerificationCode: newVerificationCode(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	room := domain.ChatRoom{
		ID:            util.NewID(),
		TransactionID: tx.ID,
		Participants: []domain.Participant{
			{UserID: item.OwnerID},
			{UserID: item.HandoffTo},
		},
		CreatedAt: now,
	}
	tx.RoomID = room.ID
	if err := a.store.SaveTransaction(tx); err != nil {
		return domain.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	if err := a.store.SaveRoom(room); err != nil {
		return domain.Transaction{}, fmt.Errorf("save room: %w", err)
	}
	return tx, nil
}

// GetTransaction fetches a transaction for one of its participants.
func (a *App) GetTransaction(user domain.User, txID string) (domain.Transaction, error) {
	tx, ok, err := a.store.GetTransaction(txID)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("fetch transaction: %w", err)
	}
	if !ok {
		return domain.Transaction{}, ErrTransactionNotFound
	}
	if !tx.IsParticipant(user.ID) {
		return domain.Transaction{}, ErrNotParticipant
	}
	return tx, nil
}

// SetMeeting records where and when the parties meet and drops a system
// message into the room so both sides see the change.
func (a *App) SetMeeting(ctx context.Context, user domain.User, txID string, point domain.GeoPoint, label string, start, end *time.Time) (domain.Transaction, error) {
	tx, err := a.GetTransaction(user, txID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if tx.Status.Terminal() {
		return domain.Transaction{}, ErrTransactionTerminal
	}
	if err := validateGeoPoint(point); err != nil {
		return domain.Transaction{}, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return domain.Transaction{}, ErrBadStatusChange
	}
	tx.MeetingPoint = &point
	tx.MeetingLabel = strings.TrimSpace(label)
	tx.PickupStart = start
	tx.PickupEnd = end
	tx.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveTransaction(tx); err != nil {
		return domain.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	content := "Meeting point updated"
	if tx.MeetingLabel != "" {
		content = "Meeting point set: " + tx.MeetingLabel
	}
	msg := domain.ChatMessage{
		ID:            util.NewID(),
		RoomID:        tx.RoomID,
		SenderID:      user.ID,
		Type:          domain.MessageSystem,
		Content:       content,
		Location:      &point,
		LocationLabel: tx.MeetingLabel,
		CreatedAt:     tx.UpdatedAt,
	}
	if err := a.store.AppendChatMessage(msg); err != nil {
		return domain.Transaction{}, fmt.Errorf("append system message: %w", err)
	}
	a.publishRoomEvent(ctx, realtime.EventNewMessage, tx.RoomID, user.ID, msg)
	return tx, nil
}

// UpdateTransactionStatus moves the transaction along pending ->
// confirmed -> in_progress -> completed, or cancels it. Completing
// requires the verification code exchanged at the meetup.
func (a *App) UpdateTransactionStatus(ctx context.Context, user domain.User, txID string, next domain.TransactionStatus, code string) (domain.Transaction, error) {
	tx, err := a.GetTransaction(user, txID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if tx.Status.Terminal() {
		return domain.Transaction{}, ErrTransactionTerminal
	}
	if !legalTransition(tx.Status, next) {
		return domain.Transaction{}, ErrBadStatusChange
	}
	if next == domain.TransactionCompleted && strings.TrimSpace(code) != tx.VerificationCode {
		return domain.Transaction{}, ErrWrongCode
	}
	tx.Status = next
	tx.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveTransaction(tx); err != nil {
		return domain.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	if next == domain.TransactionCompleted && tx.Mode == domain.ModeHandoff {
		if _, err := a.CompleteHandoff(user, tx.ItemID); err != nil {
			slog.Warn("handoff completion after transaction", "transaction_id", tx.ID, "err", err)
		}
	}
	a.publishRoomEvent(ctx, realtime.EventTransaction, tx.RoomID, user.ID, tx)
	return tx, nil
}

// UpdateLiveLocation shares the caller's position with the other party
// while the meetup is underway.
func (a *App) UpdateLiveLocation(ctx context.Context, user domain.User, txID string, point domain.GeoPoint) (domain.Transaction, error) {
	tx, err := a.GetTransaction(user, txID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if tx.Status.Terminal() {
		return domain.Transaction{}, ErrTransactionTerminal
	}
	if err := validateGeoPoint(point); err != nil {
		return domain.Transaction{}, err
	}
	if tx.LiveLocations == nil {
		tx.LiveLocations = make(map[string]domain.GeoPoint)
	}
	tx.LiveLocations[user.ID] = point
	tx.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveTransaction(tx); err != nil {
		return domain.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	a.publishRoomEvent(ctx, realtime.EventLocationUpdated, tx.RoomID, user.ID, map[string]any{
		"userId": user.ID,
		"point":  point,
	})
	return tx, nil
}

func (a *App) publishRoomEvent(ctx context.Context, eventType, roomID, senderID string, payload any) {
	event, err := realtime.NewEvent(eventType, roomID, senderID, payload)
	if err != nil {
		slog.Warn("encode room event", "room_id", roomID, "type", eventType, "err", err)
		return
	}
	if err := a.hub.Publish(ctx, event); err != nil {
		slog.Warn("publish room event", "room_id", roomID, "type", eventType, "err", err)
	}
}

func newVerificationCode() string {
	return strings.ToUpper(uuid.NewString()[:8])
}
