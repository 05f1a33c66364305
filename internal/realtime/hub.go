package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	EventJoined          = "join-chat"
	EventNewMessage      = "new-message"
	EventLocationUpdated = "location-updated"
	EventTransaction     = "transaction-updated"
)

const channelPrefix = "fridgeshare:room:"

// Event is a room-scoped notification pushed to connected participants.
type Event struct {
	Type      string          `json:"type"`
	RoomID    string          `json:"roomId"`
	SenderID  string          `json:"senderId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewEvent marshals the payload into a room event.
func NewEvent(eventType, roomID, senderID string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:      eventType,
		RoomID:    roomID,
		SenderID:  senderID,
		Data:      raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Hub is an explicit registry of room subscribers. Events published on one
// instance reach subscribers on every instance through Redis pub/sub; a hub
// built without Redis dispatches in-process only.
type Hub struct {
	client *redis.Client

	mu    sync.RWMutex
	rooms map[string]map[chan Event]struct{}
}

// NewHub builds a Redis-backed hub. Run must be called to receive
// cross-instance events.
func NewHub(addr, password string) *Hub {
	addr = strings.TrimSpace(addr)
	h := &Hub{rooms: make(map[string]map[chan Event]struct{})}
	if addr != "" {
		h.client = redis.NewClient(&redis.Options{Addr: addr, Password: password})
	}
	return h
}

// NewLocalHub builds an in-process hub without Redis, for tests.
func NewLocalHub() *Hub {
	return &Hub{rooms: make(map[string]map[chan Event]struct{})}
}

// Run consumes the Redis pattern subscription until ctx is done.
// It returns immediately for a local hub.
func (h *Hub) Run(ctx context.Context) error {
	if h.client == nil {
		return nil
	}
	sub := h.client.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.Warn("realtime: drop malformed event", "channel", msg.Channel, "err", err)
				continue
			}
			h.dispatch(event)
		}
	}
}

// Subscribe registers a listener for a room. The returned cancel func
// removes the registration; the channel is closed afterwards.
func (h *Hub) Subscribe(roomID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)
	h.mu.Lock()
	subs, ok := h.rooms[roomID]
	if !ok {
		subs = make(map[chan Event]struct{})
		h.rooms[roomID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if subs, ok := h.rooms[roomID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(h.rooms, roomID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish fans the event out to the room. Delivery is best-effort: a slow
// subscriber is skipped, and the error surfaces to the caller without retry.
func (h *Hub) Publish(ctx context.Context, event Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if h.client == nil {
		h.dispatch(event)
		return nil
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return h.client.Publish(ctx, channelPrefix+event.RoomID, raw).Err()
}

// SubscriberCount reports the local listeners on a room.
func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) dispatch(event Event) {
	h.mu.RLock()
	subs := make([]chan Event, 0, len(h.rooms[event.RoomID]))
	for ch := range h.rooms[event.RoomID] {
		subs = append(subs, ch)
	}
	h.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			slog.Warn("realtime: subscriber buffer full, dropping event", "room_id", event.RoomID, "type", event.Type)
		}
	}
}
