package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fridgeshare/internal/realtime"
	"fridgeshare/internal/util"
	"fridgeshare/pkg/domain"
)

const defaultChatHistory = 100

func roomMember(room domain.ChatRoom, userID string) bool {
	for _, p := range room.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func (a *App) roomForUser(roomID, userID string) (domain.ChatRoom, error) {
	room, ok, err := a.store.GetRoom(roomID)
	if err != nil {
		return domain.ChatRoom{}, fmt.Errorf("fetch room: %w", err)
	}
	if !ok {
		return domain.ChatRoom{}, ErrRoomNotFound
	}
	if !roomMember(room, userID) {
		return domain.ChatRoom{}, ErrNotParticipant
	}
	return room, nil
}

// SendChatMessage appends a message to the room and pushes it to every
// connected participant. Location messages carry a coordinate pair.
func (a *App) SendChatMessage(ctx context.Context, user domain.User, roomID string, msgType domain.MessageType, content string, location *domain.GeoPoint, locationLabel string) (domain.ChatMessage, error) {
	if _, err := a.roomForUser(roomID, user.ID); err != nil {
		return domain.ChatMessage{}, err
	}
	content = strings.TrimSpace(content)
	switch msgType {
	case domain.MessageText:
		if content == "" {
			return domain.ChatMessage{}, ErrEmptyMessage
		}
	case domain.MessageLocation:
		if location == nil {
			return domain.ChatMessage{}, ErrInvalidLocation
		}
		if err := validateGeoPoint(*location); err != nil {
			return domain.ChatMessage{}, err
		}
	default:
		return domain.ChatMessage{}, fmt.Errorf("unknown message type %q", msgType)
	}
	msg := domain.ChatMessage{
		ID:            util.NewID(),
		RoomID:        roomID,
		SenderID:      user.ID,
		Type:          msgType,
		Content:       content,
		Location:      location,
		LocationLabel: strings.TrimSpace(locationLabel),
		CreatedAt:     time.Now().UTC(),
	}
	if err := a.store.AppendChatMessage(msg); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("append message: %w", err)
	}
	a.publishRoomEvent(ctx, realtime.EventNewMessage, roomID, user.ID, msg)
	return msg, nil
}

// ChatHistory returns the most recent messages in the room, oldest first.
func (a *App) ChatHistory(user domain.User, roomID string, limit int) ([]domain.ChatMessage, error) {
	if _, err := a.roomForUser(roomID, user.ID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultChatHistory
	}
	return a.store.ListChatMessages(roomID, limit)
}

// GetRoom returns the room, participant presence included.
func (a *App) GetRoom(user domain.User, roomID string) (domain.ChatRoom, error) {
	return a.roomForUser(roomID, user.ID)
}

// JoinRoom marks the caller online and announces the join.
func (a *App) JoinRoom(ctx context.Context, user domain.User, roomID string) (domain.ChatRoom, error) {
	room, err := a.roomForUser(roomID, user.ID)
	if err != nil {
		return domain.ChatRoom{}, err
	}
	now := time.Now().UTC()
	if err := a.store.SetPresence(roomID, user.ID, true, now); err != nil {
		return domain.ChatRoom{}, fmt.Errorf("set presence: %w", err)
	}
	a.publishRoomEvent(ctx, realtime.EventJoined, roomID, user.ID, map[string]any{"userId": user.ID})
	room, err = a.roomForUser(roomID, user.ID)
	if err != nil {
		return domain.ChatRoom{}, err
	}
	return room, nil
}

// LeaveRoom marks the caller offline and stamps last seen.
func (a *App) LeaveRoom(user domain.User, roomID string) error {
	if _, err := a.roomForUser(roomID, user.ID); err != nil {
		return err
	}
	return a.store.SetPresence(roomID, user.ID, false, time.Now().UTC())
}

// SubscribeRoom attaches the caller to the room's live event feed.
func (a *App) SubscribeRoom(user domain.User, roomID string) (<-chan realtime.Event, func(), error) {
	if _, err := a.roomForUser(roomID, user.ID); err != nil {
		return nil, nil, err
	}
	events, cancel := a.hub.Subscribe(roomID)
	return events, cancel, nil
}

// RoomForTransaction resolves the chat room bound to a transaction.
func (a *App) RoomForTransaction(user domain.User, txID string) (domain.ChatRoom, error) {
	tx, err := a.GetTransaction(user, txID)
	if err != nil {
		return domain.ChatRoom{}, err
	}
	room, ok, err := a.store.GetRoomByTransaction(tx.ID)
	if err != nil {
		return domain.ChatRoom{}, fmt.Errorf("fetch room: %w", err)
	}
	if !ok {
		return domain.ChatRoom{}, ErrRoomNotFound
	}
	return room, nil
}
