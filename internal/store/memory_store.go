package store

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"fridgeshare/pkg/domain"
)

// MemoryStore keeps all records in-process. It backs tests and local
// development; semantics mirror GormStore including the version guards.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]domain.User
	usernames     map[string]string // username -> user ID
	items         map[string]domain.Item
	offers        map[string]domain.Offer
	transactions  map[string]domain.Transaction
	rooms         map[string]domain.ChatRoom
	roomByTx      map[string]string // transaction ID -> room ID
	chatLogs      map[string][]domain.ChatMessage
	directLog     []domain.DirectMessage
	confirmations map[string]domain.PurchaseConfirmation // key: item ID
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]domain.User),
		usernames:     make(map[string]string),
		items:         make(map[string]domain.Item),
		offers:        make(map[string]domain.Offer),
		transactions:  make(map[string]domain.Transaction),
		rooms:         make(map[string]domain.ChatRoom),
		roomByTx:      make(map[string]string),
		chatLogs:      make(map[string][]domain.ChatMessage),
		confirmations: make(map[string]domain.PurchaseConfirmation),
	}
}

// SaveUser registers or updates a user.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.usernames[u.Username] = u.ID
	return nil
}

// HasUsername checks if a username is taken.
func (m *MemoryStore) HasUsername(username string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.usernames[username]
	return ok, nil
}

// GetUserByUsername looks up a user by username.
func (m *MemoryStore) GetUserByUsername(username string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.usernames[username]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// SaveItem stores or replaces an item.
func (m *MemoryStore) SaveItem(i domain.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[i.ID] = i
	return nil
}

// GetItem retrieves an item by ID.
func (m *MemoryStore) GetItem(id string) (domain.Item, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.items[id]
	return i, ok, nil
}

// ListItems returns items matching the filter, newest first.
func (m *MemoryStore) ListItems(f ItemFilter) ([]domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Item, 0, len(m.items))
	for _, i := range m.items {
		if f.OwnerID != "" && i.OwnerID != f.OwnerID {
			continue
		}
		if f.Status != "" && i.Status != f.Status {
			continue
		}
		if f.Category != "" && i.Category != f.Category {
			continue
		}
		if f.MaxPrice > 0 && i.Price > f.MaxPrice {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(i.Name), strings.ToLower(f.Query)) {
			continue
		}
		res = append(res, i)
	}
	sort.Slice(res, func(a, b int) bool { return res[a].CreatedAt.After(res[b].CreatedAt) })
	return res, nil
}

// ListNearby returns active items within radiusKm, nearest first.
func (m *MemoryStore) ListNearby(lat, lng, radiusKm float64) ([]domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type withDist struct {
		item domain.Item
		dist float64
	}
	matches := make([]withDist, 0)
	for _, i := range m.items {
		if i.Status != domain.ItemActive {
			continue
		}
		d := haversineKm(lat, lng, i.Location.Lat, i.Location.Lng)
		if d <= radiusKm {
			matches = append(matches, withDist{item: i, dist: d})
		}
	}
	sort.Slice(matches, func(a, b int) bool { return matches[a].dist < matches[b].dist })
	res := make([]domain.Item, 0, len(matches))
	for _, m := range matches {
		res = append(res, m.item)
	}
	return res, nil
}

// UpdateItemCAS persists the item when the stored version still matches.
func (m *MemoryStore) UpdateItemCAS(i domain.Item) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateItemCASLocked(i)
}

func (m *MemoryStore) updateItemCASLocked(i domain.Item) (domain.Item, error) {
	current, ok := m.items[i.ID]
	if !ok {
		return domain.Item{}, ErrNotFound
	}
	if current.Version != i.Version {
		return domain.Item{}, ErrVersionConflict
	}
	updated := i
	updated.Version = i.Version + 1
	updated.UpdatedAt = time.Now().UTC()
	m.items[i.ID] = updated
	return updated, nil
}

// DeleteItem removes an item.
func (m *MemoryStore) DeleteItem(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

// ExpireItemsBefore marks active items past their expiry as expired.
func (m *MemoryStore) ExpireItemsBefore(now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, i := range m.items {
		if i.Status == domain.ItemActive && i.ExpiresAt != nil && !i.ExpiresAt.After(now) {
			i.Status = domain.ItemExpired
			i.Version++
			i.UpdatedAt = now
			m.items[id] = i
			n++
		}
	}
	return n, nil
}

// SaveOffer stores or replaces an offer.
func (m *MemoryStore) SaveOffer(o domain.Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offers[o.ID] = o
	return nil
}

// GetOffer retrieves an offer by ID.
func (m *MemoryStore) GetOffer(id string) (domain.Offer, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.offers[id]
	return o, ok, nil
}

// ListOffers returns offers matching the filter, newest first.
func (m *MemoryStore) ListOffers(f OfferFilter) ([]domain.Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Offer, 0)
	for _, o := range m.offers {
		if f.BuyerID != "" && o.BuyerID != f.BuyerID {
			continue
		}
		if f.SellerID != "" && o.SellerID != f.SellerID {
			continue
		}
		if f.ItemID != "" && o.ItemID != f.ItemID {
			continue
		}
		res = append(res, o)
	}
	sort.Slice(res, func(a, b int) bool { return res[a].CreatedAt.After(res[b].CreatedAt) })
	return res, nil
}

// HasOpenOffer checks for an unresolved offer by the buyer on the item.
func (m *MemoryStore) HasOpenOffer(itemID, buyerID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.offers {
		if o.ItemID == itemID && o.BuyerID == buyerID && o.Status.Open() {
			return true, nil
		}
	}
	return false, nil
}

// UpdateOfferCAS persists the offer when the stored version still matches.
func (m *MemoryStore) UpdateOfferCAS(o domain.Offer) (domain.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateOfferCASLocked(o)
}

func (m *MemoryStore) updateOfferCASLocked(o domain.Offer) (domain.Offer, error) {
	current, ok := m.offers[o.ID]
	if !ok {
		return domain.Offer{}, ErrNotFound
	}
	if current.Version != o.Version {
		return domain.Offer{}, ErrVersionConflict
	}
	updated := o
	updated.Version = o.Version + 1
	updated.UpdatedAt = time.Now().UTC()
	m.offers[o.ID] = updated
	return updated, nil
}

// SettleOffer accepts the offer, marks the item sold and declines all
// other open offers on the item, atomically under the store lock.
func (m *MemoryStore) SettleOffer(offer domain.Offer, item domain.Item) (domain.Offer, domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	accepted := offer
	accepted.Status = domain.OfferAccepted
	acceptedOffer, err := m.updateOfferCASLocked(accepted)
	if err != nil {
		return domain.Offer{}, domain.Item{}, err
	}
	sold := item
	sold.Status = domain.ItemSold
	soldItem, err := m.updateItemCASLocked(sold)
	if err != nil {
		// Restore the offer so the failed settlement leaves no half-state.
		m.offers[offer.ID] = offer
		return domain.Offer{}, domain.Item{}, err
	}
	now := time.Now().UTC()
	for id, o := range m.offers {
		if o.ItemID == item.ID && o.ID != offer.ID && o.Status.Open() {
			o.Status = domain.OfferDeclined
			o.Version++
			o.UpdatedAt = now
			m.offers[id] = o
		}
	}
	return acceptedOffer, soldItem, nil
}

// SaveTransaction stores or replaces a transaction.
func (m *MemoryStore) SaveTransaction(t domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[t.ID] = t
	return nil
}

// GetTransaction retrieves a transaction by ID.
func (m *MemoryStore) GetTransaction(id string) (domain.Transaction, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transactions[id]
	return t, ok, nil
}

// SaveRoom stores or replaces a chat room.
func (m *MemoryStore) SaveRoom(r domain.ChatRoom) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[r.ID] = r
	m.roomByTx[r.TransactionID] = r.ID
	return nil
}

// GetRoom retrieves a chat room by ID.
func (m *MemoryStore) GetRoom(id string) (domain.ChatRoom, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok, nil
}

// GetRoomByTransaction retrieves the room bound to a transaction.
func (m *MemoryStore) GetRoomByTransaction(transactionID string) (domain.ChatRoom, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.roomByTx[transactionID]
	if !ok {
		return domain.ChatRoom{}, false, nil
	}
	r, ok := m.rooms[id]
	return r, ok, nil
}

// AppendChatMessage records the message and advances the room clock.
func (m *MemoryStore) AppendChatMessage(msg domain.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[msg.RoomID]
	if !ok {
		return ErrNotFound
	}
	m.chatLogs[msg.RoomID] = append(m.chatLogs[msg.RoomID], msg)
	ts := msg.CreatedAt
	room.LastMessageAt = &ts
	m.rooms[msg.RoomID] = room
	return nil
}

// ListChatMessages returns the newest limit messages in chronological order.
func (m *MemoryStore) ListChatMessages(roomID string, limit int) ([]domain.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	log := m.chatLogs[roomID]
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}
	return append([]domain.ChatMessage(nil), log...), nil
}

// SetPresence updates a participant's online flag and last-seen time.
func (m *MemoryStore) SetPresence(roomID, userID string, online bool, seen time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return ErrNotFound
	}
	room.Participants = append([]domain.Participant(nil), room.Participants...)
	updatePresence(&room, userID, online, seen)
	m.rooms[roomID] = room
	return nil
}

// SaveDirectMessage persists a direct message.
func (m *MemoryStore) SaveDirectMessage(msg domain.DirectMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.directLog = append(m.directLog, msg)
	return nil
}

// ListDirectMessages returns messages where the user is sender or recipient.
func (m *MemoryStore) ListDirectMessages(f DirectMessageFilter) ([]domain.DirectMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.DirectMessage, 0)
	for _, msg := range m.directLog {
		if msg.SenderID != f.UserID && msg.RecipientID != f.UserID {
			continue
		}
		if f.PeerID != "" && msg.SenderID != f.PeerID && msg.RecipientID != f.PeerID {
			continue
		}
		if f.ItemID != "" && msg.ItemID != f.ItemID {
			continue
		}
		res = append(res, msg)
	}
	return res, nil
}

// SaveConfirmation stores or replaces a purchase confirmation.
func (m *MemoryStore) SaveConfirmation(c domain.PurchaseConfirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations[c.ItemID] = c
	return nil
}

// GetConfirmation retrieves the confirmation for an item.
func (m *MemoryStore) GetConfirmation(itemID string) (domain.PurchaseConfirmation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.confirmations[itemID]
	return c, ok, nil
}

// haversineKm is the great-circle distance between two WGS84 points.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}
