package domain

import "time"

type ItemStatus string

const (
	ItemActive    ItemStatus = "active"
	ItemSold      ItemStatus = "sold"
	ItemExpired   ItemStatus = "expired"
	ItemHandedOff ItemStatus = "handed_off"
)

type ItemCategory string

const (
	CategoryProduce   ItemCategory = "produce"
	CategoryDairy     ItemCategory = "dairy"
	CategoryBakery    ItemCategory = "bakery"
	CategoryPantry    ItemCategory = "pantry"
	CategoryFrozen    ItemCategory = "frozen"
	CategoryPrepared  ItemCategory = "prepared"
	CategoryBeverages ItemCategory = "beverages"
	CategoryOther     ItemCategory = "other"
)

// Categories lists every accepted item category.
var Categories = []ItemCategory{
	CategoryProduce, CategoryDairy, CategoryBakery, CategoryPantry,
	CategoryFrozen, CategoryPrepared, CategoryBeverages, CategoryOther,
}

type HandoffStatus string

const (
	HandoffNone      HandoffStatus = ""
	HandoffPending   HandoffStatus = "pending"
	HandoffCompleted HandoffStatus = "completed"
)

type OfferStatus string

const (
	OfferPending        OfferStatus = "pending"
	OfferCountered      OfferStatus = "countered"
	OfferAccepted       OfferStatus = "accepted"
	OfferDeclined       OfferStatus = "declined"
	OfferCancelled      OfferStatus = "cancelled"
	OfferReadyForPickup OfferStatus = "ready_for_pickup"
	OfferCompleted      OfferStatus = "completed"
)

// Open reports whether the offer still awaits a resolving response.
func (s OfferStatus) Open() bool {
	return s == OfferPending || s == OfferCountered
}

// Terminal reports whether no further respond/cancel call is legal.
func (s OfferStatus) Terminal() bool {
	return s == OfferDeclined || s == OfferCancelled || s == OfferCompleted
}

type TransactionStatus string

const (
	TransactionPending    TransactionStatus = "pending"
	TransactionConfirmed  TransactionStatus = "confirmed"
	TransactionInProgress TransactionStatus = "in_progress"
	TransactionCompleted  TransactionStatus = "completed"
	TransactionCancelled  TransactionStatus = "cancelled"
)

// Terminal reports whether the transaction can no longer change state.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionCompleted || s == TransactionCancelled
}

type TransactionMode string

const (
	ModeDirect  TransactionMode = "direct"
	ModeHandoff TransactionMode = "handoff"
)

type MessageType string

const (
	MessageText     MessageType = "text"
	MessageLocation MessageType = "location"
	MessageSystem   MessageType = "system"
)

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Name          string    `json:"name"`
	Affiliation   string    `json:"affiliation,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	RatingSum     int       `json:"-"`
	RatingCount   int       `json:"ratingCount"`
	Sales         int       `json:"sales"`
	Purchases     int       `json:"purchases"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Rating returns the average rating, 0 when unrated.
func (u User) Rating() float64 {
	if u.RatingCount == 0 {
		return 0
	}
	return float64(u.RatingSum) / float64(u.RatingCount)
}

type Item struct {
	ID           string        `json:"id"`
	OwnerID      string        `json:"ownerId"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Category     ItemCategory  `json:"category"`
	Price        float64       `json:"price"`
	Quantity     int           `json:"quantity"`
	Location     GeoPoint      `json:"location"`
	Photos       []string      `json:"photos,omitempty"`
	Status       ItemStatus    `json:"status"`
	HandoffTo    string        `json:"handoffTo,omitempty"`
	HandoffState HandoffStatus `json:"handoffStatus,omitempty"`
	HandoffNotes string        `json:"handoffNotes,omitempty"`
	HandoffAt    *time.Time    `json:"handoffAt,omitempty"`
	ExpiresAt    *time.Time    `json:"expiresAt,omitempty"`
	Version      int64         `json:"-"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

type Offer struct {
	ID           string      `json:"id"`
	ItemID       string      `json:"itemId"`
	BuyerID      string      `json:"buyerId"`
	SellerID     string      `json:"sellerId"`
	Price        float64     `json:"price"`
	CounterPrice *float64    `json:"counterPrice,omitempty"`
	Status       OfferStatus `json:"status"`
	Note         string      `json:"note,omitempty"`
	PickupHint   string      `json:"pickupHint,omitempty"`
	Version      int64       `json:"-"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// SettlePrice is the price the item changes hands at once the offer is
// accepted: the counter price when the seller countered, the proposed
// price otherwise.
func (o Offer) SettlePrice() float64 {
	if o.CounterPrice != nil {
		return *o.CounterPrice
	}
	return o.Price
}

type Transaction struct {
	ID               string              `json:"id"`
	ItemID           string              `json:"itemId"`
	SellerID         string              `json:"sellerId"`
	BuyerID          string              `json:"buyerId"`
	Mode             TransactionMode     `json:"mode"`
	Status           TransactionStatus   `json:"status"`
	MeetingPoint     *GeoPoint           `json:"meetingPoint,omitempty"`
	MeetingLabel     string              `json:"meetingLabel,omitempty"`
	PickupStart      *time.Time          `json:"pickupStart,omitempty"`
	PickupEnd        *time.Time          `json:"pickupEnd,omitempty"`
	VerificationCode string              `json:"verificationCode"`
	RoomID           string              `json:"roomId"`
	LiveLocations    map[string]GeoPoint `json:"liveLocations,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

// Participants returns the user IDs bound to the transaction.
func (t Transaction) Participants() []string {
	return []string{t.SellerID, t.BuyerID}
}

// IsParticipant reports whether userID is the buyer or the seller.
func (t Transaction) IsParticipant(userID string) bool {
	return userID != "" && (userID == t.BuyerID || userID == t.SellerID)
}

type ChatRoom struct {
	ID            string        `json:"id"`
	TransactionID string        `json:"transactionId"`
	Participants  []Participant `json:"participants"`
	LastMessageAt *time.Time    `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}

type Participant struct {
	UserID   string     `json:"userId"`
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

type ChatMessage struct {
	ID            string      `json:"id"`
	RoomID        string      `json:"roomId"`
	SenderID      string      `json:"senderId"`
	Type          MessageType `json:"type"`
	Content       string      `json:"content"`
	Location      *GeoPoint   `json:"location,omitempty"`
	LocationLabel string      `json:"locationLabel,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

type DirectMessage struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	ItemID      string    `json:"itemId,omitempty"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

type PurchaseConfirmation struct {
	ID              string    `json:"id"`
	ItemID          string    `json:"itemId"`
	BuyerID         string    `json:"buyerId"`
	SellerID        string    `json:"sellerId"`
	BuyerConfirmed  bool      `json:"buyerConfirmed"`
	SellerConfirmed bool      `json:"sellerConfirmed"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Completed reports whether both parties signed off.
func (p PurchaseConfirmation) Completed() bool {
	return p.BuyerConfirmed && p.SellerConfirmed
}

// UserStats is the public aggregate surface for a profile page.
type UserStats struct {
	Username    string  `json:"username"`
	Rating      float64 `json:"rating"`
	RatingCount int     `json:"ratingCount"`
	Sales       int     `json:"sales"`
	Purchases   int     `json:"purchases"`
}
