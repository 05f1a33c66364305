package app

import (
	"context"
	"testing"
	"time"

	"fridgeshare/pkg/domain"
)

func startMeetup(t *testing.T, a *App) (seller, buyer domain.User, tx domain.Transaction) {
	t.Helper()
	seller, buyer, offer := settleSale(t, a)
	tx, err := a.StartTransaction(buyer, offer.ID)
	if err != nil {
		t.Fatalf("start transaction: %v", err)
	}
	return seller, buyer, tx
}

func TestSendChatMessageMembership(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	seller, buyer, tx := startMeetup(t, a)
	stranger := registerUser(t, a, "stranger")

	if _, err := a.SendChatMessage(ctx, stranger, tx.RoomID, domain.MessageText, "hi", nil, ""); err != ErrNotParticipant {
		t.Fatalf("stranger send err = %v, want ErrNotParticipant", err)
	}
	if _, err := a.SendChatMessage(ctx, buyer, tx.RoomID, domain.MessageText, "   ", nil, ""); err != ErrEmptyMessage {
		t.Fatalf("blank send err = %v, want ErrEmptyMessage", err)
	}
	if _, err := a.SendChatMessage(ctx, buyer, tx.RoomID, domain.MessageLocation, "", nil, ""); err != ErrInvalidLocation {
		t.Fatalf("location send without point err = %v, want ErrInvalidLocation", err)
	}

	msg, err := a.SendChatMessage(ctx, buyer, tx.RoomID, domain.MessageText, "on my way", nil, "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.SenderID != buyer.ID || msg.Type != domain.MessageText {
		t.Fatalf("message = %+v", msg)
	}

	history, err := a.ChatHistory(seller, tx.RoomID, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Content != "on my way" {
		t.Fatalf("history = %+v", history)
	}
	if _, err := a.ChatHistory(stranger, tx.RoomID, 0); err != ErrNotParticipant {
		t.Fatalf("stranger history err = %v, want ErrNotParticipant", err)
	}
}

func TestChatHistoryReturnsNewestMessages(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	_, buyer, tx := startMeetup(t, a)

	for _, content := range []string{"first", "second", "third", "fourth"} {
		if _, err := a.SendChatMessage(ctx, buyer, tx.RoomID, domain.MessageText, content, nil, ""); err != nil {
			t.Fatalf("send %s: %v", content, err)
		}
	}

	history, err := a.ChatHistory(buyer, tx.RoomID, 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history len = %d, want 2", len(history))
	}
	if history[0].Content != "third" || history[1].Content != "fourth" {
		t.Fatalf("limited history = [%s, %s], want newest two oldest first", history[0].Content, history[1].Content)
	}
}

func TestChatAdvancesLastMessageAt(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	_, buyer, tx := startMeetup(t, a)

	room, err := a.GetRoom(buyer, tx.RoomID)
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	if room.LastMessageAt != nil {
		t.Fatalf("lastMessageAt set before any message")
	}
	msg, err := a.SendChatMessage(ctx, buyer, tx.RoomID, domain.MessageText, "here", nil, "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	room, err = a.GetRoom(buyer, tx.RoomID)
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	if room.LastMessageAt == nil || !room.LastMessageAt.Equal(msg.CreatedAt) {
		t.Fatalf("lastMessageAt = %v, want %v", room.LastMessageAt, msg.CreatedAt)
	}
}

func TestJoinRoomPresenceAndEvent(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	seller, buyer, tx := startMeetup(t, a)

	events, cancel, err := a.SubscribeRoom(seller, tx.RoomID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	room, err := a.JoinRoom(ctx, buyer, tx.RoomID)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	var online bool
	for _, p := range room.Participants {
		if p.UserID == buyer.ID {
			online = p.Online
		}
	}
	if !online {
		t.Fatalf("buyer not marked online after join")
	}

	select {
	case event := <-events:
		if event.Type != "join-chat" {
			t.Fatalf("event type = %q, want join-chat", event.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("no join event delivered")
	}

	if err := a.LeaveRoom(buyer, tx.RoomID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	room, err = a.GetRoom(buyer, tx.RoomID)
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	for _, p := range room.Participants {
		if p.UserID == buyer.ID {
			if p.Online {
				t.Fatalf("buyer still online after leave")
			}
			if p.LastSeen == nil {
				t.Fatalf("lastSeen not stamped")
			}
		}
	}
}

func TestDirectMessages(t *testing.T) {
	a := newTestApp(t)
	alice := registerUser(t, a, "alice")
	bob := registerUser(t, a, "bob")
	item := listItem(t, a, alice, "apples", 2)

	if _, err := a.SendDirectMessage(bob, "nobody", "", "hi"); err != ErrRecipientNotFound {
		t.Fatalf("unknown recipient err = %v, want ErrRecipientNotFound", err)
	}
	if _, err := a.SendDirectMessage(bob, "bob", "", "hi me"); err != ErrRecipientNotFound {
		t.Fatalf("self message err = %v, want ErrRecipientNotFound", err)
	}
	if _, err := a.SendDirectMessage(bob, "alice", "", "  "); err != ErrEmptyMessage {
		t.Fatalf("empty message err = %v, want ErrEmptyMessage", err)
	}

	sent, err := a.SendDirectMessage(bob, "alice", item.ID, "is this still available?")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.ItemID != item.ID {
		t.Fatalf("itemID = %q, want %q", sent.ItemID, item.ID)
	}

	inbox, err := a.Inbox(alice, "", "")
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	if len(inbox) != 1 || inbox[0].SenderID != bob.ID {
		t.Fatalf("inbox = %+v", inbox)
	}
	inbox, err = a.Inbox(alice, "bob", item.ID)
	if err != nil {
		t.Fatalf("filtered inbox: %v", err)
	}
	if len(inbox) != 1 {
		t.Fatalf("filtered inbox len = %d, want 1", len(inbox))
	}
}
