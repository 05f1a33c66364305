package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID            string    `gorm:"primaryKey"`
	Username      string    `gorm:"uniqueIndex;not null"`
	Email         string    `gorm:"uniqueIndex;not null"`
	PasswordHash  string    `gorm:"not null"`
	Name          string    `gorm:"not null"`
	Affiliation   string
	EmailVerified bool      `gorm:"not null"`
	RatingSum     int       `gorm:"not null"`
	RatingCount   int       `gorm:"not null"`
	Sales         int       `gorm:"not null"`
	Purchases     int       `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

type ItemModel struct {
	ID           string  `gorm:"primaryKey"`
	OwnerID      string  `gorm:"not null;index"`
	Name         string  `gorm:"not null"`
	Description  string
	Category     string  `gorm:"not null;index"`
	Price        float64 `gorm:"not null"`
	Quantity     int     `gorm:"not null"`
	Lat          float64 `gorm:"not null"`
	Lng          float64 `gorm:"not null"`
	Photos       datatypes.JSON
	Status       string `gorm:"not null;index"`
	HandoffTo    string
	HandoffState string
	HandoffNotes string
	HandoffAt    *time.Time
	ExpiresAt    *time.Time `gorm:"index"`
	Version      int64      `gorm:"not null"`
	CreatedAt    time.Time  `gorm:"not null"`
	UpdatedAt    time.Time  `gorm:"not null"`
}

type OfferModel struct {
	ID           string  `gorm:"primaryKey"`
	ItemID       string  `gorm:"not null;index"`
	BuyerID      string  `gorm:"not null;index"`
	SellerID     string  `gorm:"not null;index"`
	Price        float64 `gorm:"not null"`
	CounterPrice *float64
	Status       string `gorm:"not null;index"`
	Note         string
	PickupHint   string
	Version      int64     `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

type TransactionModel struct {
	ID               string `gorm:"primaryKey"`
	ItemID           string `gorm:"not null;index"`
	SellerID         string `gorm:"not null;index"`
	BuyerID          string `gorm:"not null;index"`
	Mode             string `gorm:"not null"`
	Status           string `gorm:"not null"`
	MeetingLat       *float64
	MeetingLng       *float64
	MeetingLabel     string
	PickupStart      *time.Time
	PickupEnd        *time.Time
	VerificationCode string `gorm:"not null"`
	RoomID           string `gorm:"not null;index"`
	LiveLocations    datatypes.JSON
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

type ChatRoomModel struct {
	ID            string `gorm:"primaryKey"`
	TransactionID string `gorm:"uniqueIndex;not null"`
	Participants  datatypes.JSON
	LastMessageAt *time.Time
	CreatedAt     time.Time `gorm:"not null"`
}

type ChatMessageModel struct {
	ID            string `gorm:"primaryKey"`
	RoomID        string `gorm:"not null;index"`
	SenderID      string `gorm:"not null"`
	Type          string `gorm:"not null"`
	Content       string `gorm:"not null"`
	Location      datatypes.JSON
	LocationLabel string
	CreatedAt     time.Time `gorm:"not null;index"`
}

type DirectMessageModel struct {
	ID          string `gorm:"primaryKey"`
	SenderID    string `gorm:"not null;index"`
	RecipientID string `gorm:"not null;index"`
	ItemID      string `gorm:"index"`
	Content     string `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null;index"`
}

type PurchaseConfirmationModel struct {
	ID              string `gorm:"primaryKey"`
	ItemID          string `gorm:"uniqueIndex;not null"`
	BuyerID         string `gorm:"not null"`
	SellerID        string `gorm:"not null"`
	BuyerConfirmed  bool   `gorm:"not null"`
	SellerConfirmed bool   `gorm:"not null"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}
