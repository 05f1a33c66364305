package store

import (
	"errors"
	"time"

	"fridgeshare/pkg/domain"
)

var (
	// ErrVersionConflict signals a compare-and-swap update that lost the race.
	ErrVersionConflict = errors.New("version conflict")
	// ErrNotFound signals a missing record on an update path.
	ErrNotFound = errors.New("record not found")
)

// ItemFilter narrows item listings.
type ItemFilter struct {
	OwnerID  string
	Status   domain.ItemStatus
	Category domain.ItemCategory
	MaxPrice float64 // 0 means unbounded
	Query    string  // substring match on name
}

// OfferFilter narrows offer listings.
type OfferFilter struct {
	BuyerID  string
	SellerID string
	ItemID   string
}

// DirectMessageFilter narrows a user's inbox.
type DirectMessageFilter struct {
	UserID string // required: caller is sender or recipient
	PeerID string
	ItemID string
}

// Store defines persistence operations for the marketplace.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUsername(username string) (bool, error)
	GetUserByUsername(username string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// items
	SaveItem(domain.Item) error
	GetItem(id string) (domain.Item, bool, error)
	ListItems(ItemFilter) ([]domain.Item, error)
	ListNearby(lat, lng, radiusKm float64) ([]domain.Item, error)
	// UpdateItemCAS persists item only when the stored version matches
	// item.Version, then bumps the version. ErrVersionConflict otherwise.
	UpdateItemCAS(domain.Item) (domain.Item, error)
	DeleteItem(id string) error
	ExpireItemsBefore(now time.Time) (int64, error)

	// offers
	SaveOffer(domain.Offer) error
	GetOffer(id string) (domain.Offer, bool, error)
	ListOffers(OfferFilter) ([]domain.Offer, error)
	HasOpenOffer(itemID, buyerID string) (bool, error)
	UpdateOfferCAS(domain.Offer) (domain.Offer, error)
	// SettleOffer atomically accepts the offer, marks the item sold and
	// declines every other open offer on the same item. Both writes are
	// guarded by the versions carried on the arguments.
	SettleOffer(offer domain.Offer, item domain.Item) (domain.Offer, domain.Item, error)

	// transactions & chat
	SaveTransaction(domain.Transaction) error
	GetTransaction(id string) (domain.Transaction, bool, error)
	SaveRoom(domain.ChatRoom) error
	GetRoom(id string) (domain.ChatRoom, bool, error)
	GetRoomByTransaction(transactionID string) (domain.ChatRoom, bool, error)
	// AppendChatMessage stores the message and advances the room's
	// lastMessageAt to the message timestamp in the same transaction.
	AppendChatMessage(domain.ChatMessage) error
	ListChatMessages(roomID string, limit int) ([]domain.ChatMessage, error)
	SetPresence(roomID, userID string, online bool, seen time.Time) error

	// direct messages
	SaveDirectMessage(domain.DirectMessage) error
	ListDirectMessages(DirectMessageFilter) ([]domain.DirectMessage, error)

	// purchase confirmations
	SaveConfirmation(domain.PurchaseConfirmation) error
	GetConfirmation(itemID string) (domain.PurchaseConfirmation, bool, error)
}

// SessionStore issues and resolves bearer tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}

// VerificationStore keeps short-lived email verification codes.
type VerificationStore interface {
	PutCode(userID, code string, ttl time.Duration) error
	ConsumeCode(userID, code string) (bool, error)
}
