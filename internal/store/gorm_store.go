package store

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fridgeshare/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&UserModel{}, &ItemModel{}, &OfferModel{}, &TransactionModel{},
		&ChatRoomModel{}, &ChatMessageModel{}, &DirectMessageModel{},
		&PurchaseConfirmationModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "password_hash", "name", "affiliation", "email_verified",
			"rating_sum", "rating_count", "sales", "purchases", "updated_at",
		}),
	}).Create(&model).Error
}

// HasUsername checks if a username is taken.
func (s *GormStore) HasUsername(username string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByUsername looks up a user by username.
func (s *GormStore) GetUserByUsername(username string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("username = ?", username).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SaveItem stores or updates an item without a version guard.
func (s *GormStore) SaveItem(i domain.Item) error {
	model, err := itemToModel(i)
	if err != nil {
		return err
	}
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "description", "category", "price", "quantity", "lat", "lng",
			"photos", "status", "handoff_to", "handoff_state", "handoff_notes",
			"handoff_at", "expires_at", "version", "updated_at",
		}),
	}).Create(&model).Error
}

// GetItem retrieves an item.
func (s *GormStore) GetItem(id string) (domain.Item, bool, error) {
	var model ItemModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Item{}, false, nil
		}
		return domain.Item{}, false, err
	}
	item, err := itemFromModel(model)
	if err != nil {
		return domain.Item{}, false, err
	}
	return item, true, nil
}

// ListItems returns items matching the filter, newest first.
func (s *GormStore) ListItems(f ItemFilter) ([]domain.Item, error) {
	tx := s.db.Model(&ItemModel{}).Order("created_at DESC")
	if f.OwnerID != "" {
		tx = tx.Where("owner_id = ?", f.OwnerID)
	}
	if f.Status != "" {
		tx = tx.Where("status = ?", string(f.Status))
	}
	if f.Category != "" {
		tx = tx.Where("category = ?", string(f.Category))
	}
	if f.MaxPrice > 0 {
		tx = tx.Where("price <= ?", f.MaxPrice)
	}
	if f.Query != "" {
		tx = tx.Where("name ILIKE ?", "%"+f.Query+"%")
	}
	var models []ItemModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	return itemsFromModels(models)
}

// ListNearby returns active items within radiusKm of the point, nearest
// first. Distance is the haversine great-circle formula evaluated in SQL.
func (s *GormStore) ListNearby(lat, lng, radiusKm float64) ([]domain.Item, error) {
	const haversine = "6371 * acos(least(1.0, cos(radians(?)) * cos(radians(lat)) * cos(radians(lng) - radians(?)) + sin(radians(?)) * sin(radians(lat))))"
	var models []ItemModel
	err := s.db.Model(&ItemModel{}).
		Select("*, "+haversine+" AS distance_km", lat, lng, lat).
		Where("status = ?", string(domain.ItemActive)).
		Where(haversine+" <= ?", lat, lng, lat, radiusKm).
		Order("distance_km ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return itemsFromModels(models)
}

// UpdateItemCAS persists the item when the stored version still matches.
func (s *GormStore) UpdateItemCAS(i domain.Item) (domain.Item, error) {
	updated := i
	updated.Version = i.Version + 1
	updated.UpdatedAt = time.Now().UTC()
	model, err := itemToModel(updated)
	if err != nil {
		return domain.Item{}, err
	}
	res := s.db.Model(&ItemModel{}).
		Where("id = ? AND version = ?", i.ID, i.Version).
		Updates(map[string]any{
			"name": model.Name, "description": model.Description,
			"category": model.Category, "price": model.Price,
			"quantity": model.Quantity, "lat": model.Lat, "lng": model.Lng,
			"photos": model.Photos, "status": model.Status,
			"handoff_to": model.HandoffTo, "handoff_state": model.HandoffState,
			"handoff_notes": model.HandoffNotes, "handoff_at": model.HandoffAt,
			"expires_at": model.ExpiresAt, "version": model.Version,
			"updated_at": model.UpdatedAt,
		})
	if res.Error != nil {
		return domain.Item{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Item{}, ErrVersionConflict
	}
	return updated, nil
}

// DeleteItem removes an item.
func (s *GormStore) DeleteItem(id string) error {
	return s.db.Delete(&ItemModel{}, "id = ?", id).Error
}

// ExpireItemsBefore marks active items past their expiry as expired.
func (s *GormStore) ExpireItemsBefore(now time.Time) (int64, error) {
	res := s.db.Model(&ItemModel{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", string(domain.ItemActive), now).
		Updates(map[string]any{
			"status":     string(domain.ItemExpired),
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

// SaveOffer stores or updates an offer without a version guard.
func (s *GormStore) SaveOffer(o domain.Offer) error {
	model := offerToModel(o)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"price", "counter_price", "status", "note", "pickup_hint",
			"version", "updated_at",
		}),
	}).Create(&model).Error
}

// GetOffer retrieves an offer.
func (s *GormStore) GetOffer(id string) (domain.Offer, bool, error) {
	var model OfferModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Offer{}, false, nil
		}
		return domain.Offer{}, false, err
	}
	return offerFromModel(model), true, nil
}

// ListOffers returns offers matching the filter, newest first.
func (s *GormStore) ListOffers(f OfferFilter) ([]domain.Offer, error) {
	tx := s.db.Model(&OfferModel{}).Order("created_at DESC")
	if f.BuyerID != "" {
		tx = tx.Where("buyer_id = ?", f.BuyerID)
	}
	if f.SellerID != "" {
		tx = tx.Where("seller_id = ?", f.SellerID)
	}
	if f.ItemID != "" {
		tx = tx.Where("item_id = ?", f.ItemID)
	}
	var models []OfferModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Offer, 0, len(models))
	for _, m := range models {
		res = append(res, offerFromModel(m))
	}
	return res, nil
}

// HasOpenOffer checks for an unresolved offer by the buyer on the item.
func (s *GormStore) HasOpenOffer(itemID, buyerID string) (bool, error) {
	var count int64
	err := s.db.Model(&OfferModel{}).
		Where("item_id = ? AND buyer_id = ? AND status IN ?", itemID, buyerID,
			[]string{string(domain.OfferPending), string(domain.OfferCountered)}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateOfferCAS persists the offer when the stored version still matches.
func (s *GormStore) UpdateOfferCAS(o domain.Offer) (domain.Offer, error) {
	updated := o
	updated.Version = o.Version + 1
	updated.UpdatedAt = time.Now().UTC()
	var err error
	updated, err = s.updateOfferCAS(s.db, updated, o.Version)
	return updated, err
}

func (s *GormStore) updateOfferCAS(tx *gorm.DB, updated domain.Offer, expected int64) (domain.Offer, error) {
	model := offerToModel(updated)
	res := tx.Model(&OfferModel{}).
		Where("id = ? AND version = ?", updated.ID, expected).
		Updates(map[string]any{
			"price": model.Price, "counter_price": model.CounterPrice,
			"status": model.Status, "note": model.Note,
			"pickup_hint": model.PickupHint, "version": model.Version,
			"updated_at": model.UpdatedAt,
		})
	if res.Error != nil {
		return domain.Offer{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Offer{}, ErrVersionConflict
	}
	return updated, nil
}

// SettleOffer accepts the offer, marks the item sold and declines all
// other open offers on the item, in one transaction.
func (s *GormStore) SettleOffer(offer domain.Offer, item domain.Item) (domain.Offer, domain.Item, error) {
	now := time.Now().UTC()
	acceptedOffer := offer
	acceptedOffer.Status = domain.OfferAccepted
	acceptedOffer.Version = offer.Version + 1
	acceptedOffer.UpdatedAt = now
	soldItem := item
	soldItem.Status = domain.ItemSold
	soldItem.Version = item.Version + 1
	soldItem.UpdatedAt = now

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.updateOfferCAS(tx, acceptedOffer, offer.Version); err != nil {
			return err
		}
		itemModel, err := itemToModel(soldItem)
		if err != nil {
			return err
		}
		res := tx.Model(&ItemModel{}).
			Where("id = ? AND version = ?", item.ID, item.Version).
			Updates(map[string]any{
				"status":     itemModel.Status,
				"version":    itemModel.Version,
				"updated_at": itemModel.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}
		return tx.Model(&OfferModel{}).
			Where("item_id = ? AND id <> ? AND status IN ?", item.ID, offer.ID,
				[]string{string(domain.OfferPending), string(domain.OfferCountered)}).
			Updates(map[string]any{
				"status":     string(domain.OfferDeclined),
				"version":    gorm.Expr("version + 1"),
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return domain.Offer{}, domain.Item{}, err
	}
	return acceptedOffer, soldItem, nil
}

// SaveTransaction stores or updates a transaction.
func (s *GormStore) SaveTransaction(t domain.Transaction) error {
	model, err := transactionToModel(t)
	if err != nil {
		return err
	}
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "meeting_lat", "meeting_lng", "meeting_label",
			"pickup_start", "pickup_end", "live_locations", "updated_at",
		}),
	}).Create(&model).Error
}

// GetTransaction retrieves a transaction.
func (s *GormStore) GetTransaction(id string) (domain.Transaction, bool, error) {
	var model TransactionModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Transaction{}, false, nil
		}
		return domain.Transaction{}, false, err
	}
	t, err := transactionFromModel(model)
	if err != nil {
		return domain.Transaction{}, false, err
	}
	return t, true, nil
}

// SaveRoom stores or updates a chat room.
func (s *GormStore) SaveRoom(r domain.ChatRoom) error {
	model, err := roomToModel(r)
	if err != nil {
		return err
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"participants", "last_message_at"}),
	}).Create(&model).Error
}

// GetRoom retrieves a chat room.
func (s *GormStore) GetRoom(id string) (domain.ChatRoom, bool, error) {
	var model ChatRoomModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ChatRoom{}, false, nil
		}
		return domain.ChatRoom{}, false, err
	}
	room, err := roomFromModel(model)
	if err != nil {
		return domain.ChatRoom{}, false, err
	}
	return room, true, nil
}

// GetRoomByTransaction retrieves the room bound to a transaction.
func (s *GormStore) GetRoomByTransaction(transactionID string) (domain.ChatRoom, bool, error) {
	var model ChatRoomModel
	if err := s.db.Where("transaction_id = ?", transactionID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ChatRoom{}, false, nil
		}
		return domain.ChatRoom{}, false, err
	}
	room, err := roomFromModel(model)
	if err != nil {
		return domain.ChatRoom{}, false, err
	}
	return room, true, nil
}

// AppendChatMessage records the message and advances the room clock.
func (s *GormStore) AppendChatMessage(msg domain.ChatMessage) error {
	model, err := chatMessageToModel(msg)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		res := tx.Model(&ChatRoomModel{}).
			Where("id = ?", msg.RoomID).
			Update("last_message_at", msg.CreatedAt)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListChatMessages returns the newest limit messages in chronological order.
func (s *GormStore) ListChatMessages(roomID string, limit int) ([]domain.ChatMessage, error) {
	tx := s.db.Model(&ChatMessageModel{}).
		Where("room_id = ?", roomID).
		Order("created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var models []ChatMessageModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ChatMessage, len(models))
	for i, m := range models {
		msg, err := chatMessageFromModel(m)
		if err != nil {
			return nil, err
		}
		res[len(models)-1-i] = msg
	}
	return res, nil
}

// SetPresence updates a participant's online flag and last-seen time.
func (s *GormStore) SetPresence(roomID, userID string, online bool, seen time.Time) error {
	room, ok, err := s.GetRoom(roomID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	updatePresence(&room, userID, online, seen)
	return s.SaveRoom(room)
}

// SaveDirectMessage persists a direct message.
func (s *GormStore) SaveDirectMessage(msg domain.DirectMessage) error {
	model := directMessageToModel(msg)
	return s.db.Create(&model).Error
}

// ListDirectMessages returns messages where the user is sender or recipient.
func (s *GormStore) ListDirectMessages(f DirectMessageFilter) ([]domain.DirectMessage, error) {
	tx := s.db.Model(&DirectMessageModel{}).
		Where("sender_id = ? OR recipient_id = ?", f.UserID, f.UserID).
		Order("created_at ASC")
	if f.PeerID != "" {
		tx = tx.Where("sender_id = ? OR recipient_id = ?", f.PeerID, f.PeerID)
	}
	if f.ItemID != "" {
		tx = tx.Where("item_id = ?", f.ItemID)
	}
	var models []DirectMessageModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.DirectMessage, 0, len(models))
	for _, m := range models {
		res = append(res, directMessageFromModel(m))
	}
	return res, nil
}

// SaveConfirmation stores or updates a purchase confirmation.
func (s *GormStore) SaveConfirmation(c domain.PurchaseConfirmation) error {
	model := confirmationToModel(c)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"buyer_confirmed", "seller_confirmed", "updated_at"}),
	}).Create(&model).Error
}

// GetConfirmation retrieves the confirmation for an item.
func (s *GormStore) GetConfirmation(itemID string) (domain.PurchaseConfirmation, bool, error) {
	var model PurchaseConfirmationModel
	if err := s.db.Where("item_id = ?", itemID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.PurchaseConfirmation{}, false, nil
		}
		return domain.PurchaseConfirmation{}, false, err
	}
	return confirmationFromModel(model), true, nil
}

// updatePresence mutates the participant entry in place, appending it when absent.
func updatePresence(room *domain.ChatRoom, userID string, online bool, seen time.Time) {
	seenCopy := seen
	for i := range room.Participants {
		if room.Participants[i].UserID == userID {
			room.Participants[i].Online = online
			room.Participants[i].LastSeen = &seenCopy
			return
		}
	}
	room.Participants = append(room.Participants, domain.Participant{
		UserID:   userID,
		Online:   online,
		LastSeen: &seenCopy,
	})
}

func itemsFromModels(models []ItemModel) ([]domain.Item, error) {
	res := make([]domain.Item, 0, len(models))
	for _, m := range models {
		item, err := itemFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, item)
	}
	return res, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		PasswordHash:  u.PasswordHash,
		Name:          u.Name,
		Affiliation:   u.Affiliation,
		EmailVerified: u.EmailVerified,
		RatingSum:     u.RatingSum,
		RatingCount:   u.RatingCount,
		Sales:         u.Sales,
		Purchases:     u.Purchases,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:            m.ID,
		Username:      m.Username,
		Email:         m.Email,
		PasswordHash:  m.PasswordHash,
		Name:          m.Name,
		Affiliation:   m.Affiliation,
		EmailVerified: m.EmailVerified,
		RatingSum:     m.RatingSum,
		RatingCount:   m.RatingCount,
		Sales:         m.Sales,
		Purchases:     m.Purchases,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func itemToModel(i domain.Item) (ItemModel, error) {
	photos, err := marshalJSON(i.Photos)
	if err != nil {
		return ItemModel{}, fmt.Errorf("encode photos: %w", err)
	}
	return ItemModel{
		ID:           i.ID,
		OwnerID:      i.OwnerID,
		Name:         i.Name,
		Description:  i.Description,
		Category:     string(i.Category),
		Price:        i.Price,
		Quantity:     i.Quantity,
		Lat:          i.Location.Lat,
		Lng:          i.Location.Lng,
		Photos:       photos,
		Status:       string(i.Status),
		HandoffTo:    i.HandoffTo,
		HandoffState: string(i.HandoffState),
		HandoffNotes: i.HandoffNotes,
		HandoffAt:    i.HandoffAt,
		ExpiresAt:    i.ExpiresAt,
		Version:      i.Version,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}, nil
}

func itemFromModel(m ItemModel) (domain.Item, error) {
	var photos []string
	if err := unmarshalJSON(m.Photos, &photos); err != nil {
		return domain.Item{}, fmt.Errorf("decode photos: %w", err)
	}
	return domain.Item{
		ID:           m.ID,
		OwnerID:      m.OwnerID,
		Name:         m.Name,
		Description:  m.Description,
		Category:     domain.ItemCategory(m.Category),
		Price:        m.Price,
		Quantity:     m.Quantity,
		Location:     domain.GeoPoint{Lat: m.Lat, Lng: m.Lng},
		Photos:       photos,
		Status:       domain.ItemStatus(m.Status),
		HandoffTo:    m.HandoffTo,
		HandoffState: domain.HandoffStatus(m.HandoffState),
		HandoffNotes: m.HandoffNotes,
		HandoffAt:    m.HandoffAt,
		ExpiresAt:    m.ExpiresAt,
		Version:      m.Version,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}, nil
}

func offerToModel(o domain.Offer) OfferModel {
	return OfferModel{
		ID:           o.ID,
		ItemID:       o.ItemID,
		BuyerID:      o.BuyerID,
		SellerID:     o.SellerID,
		Price:        o.Price,
		CounterPrice: o.CounterPrice,
		Status:       string(o.Status),
		Note:         o.Note,
		PickupHint:   o.PickupHint,
		Version:      o.Version,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

func offerFromModel(m OfferModel) domain.Offer {
	return domain.Offer{
		ID:           m.ID,
		ItemID:       m.ItemID,
		BuyerID:      m.BuyerID,
		SellerID:     m.SellerID,
		Price:        m.Price,
		CounterPrice: m.CounterPrice,
		Status:       domain.OfferStatus(m.Status),
		Note:         m.Note,
		PickupHint:   m.PickupHint,
		Version:      m.Version,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func transactionToModel(t domain.Transaction) (TransactionModel, error) {
	live, err := marshalJSON(t.LiveLocations)
	if err != nil {
		return TransactionModel{}, fmt.Errorf("encode live locations: %w", err)
	}
	model := TransactionModel{
		ID:               t.ID,
		ItemID:           t.ItemID,
		SellerID:         t.SellerID,
		BuyerID:          t.BuyerID,
		Mode:             string(t.Mode),
		Status:           string(t.Status),
		MeetingLabel:     t.MeetingLabel,
		PickupStart:      t.PickupStart,
		PickupEnd:        t.PickupEnd,
		VerificationCode: t.VerificationCode,
		RoomID:           t.RoomID,
		LiveLocations:    live,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
	if t.MeetingPoint != nil {
		lat, lng := t.MeetingPoint.Lat, t.MeetingPoint.Lng
		model.MeetingLat = &lat
		model.MeetingLng = &lng
	}
	return model, nil
}

func transactionFromModel(m TransactionModel) (domain.Transaction, error) {
	var live map[string]domain.GeoPoint
	if err := unmarshalJSON(m.LiveLocations, &live); err != nil {
		return domain.Transaction{}, fmt.Errorf("decode live locations: %w", err)
	}
	t := domain.Transaction{
		ID:               m.ID,
		ItemID:           m.ItemID,
		SellerID:         m.SellerID,
		BuyerID:          m.BuyerID,
		Mode:             domain.TransactionMode(m.Mode),
		Status:           domain.TransactionStatus(m.Status),
		MeetingLabel:     m.MeetingLabel,
		PickupStart:      m.PickupStart,
		PickupEnd:        m.PickupEnd,
		VerificationCode: m.VerificationCode,
		RoomID:           m.RoomID,
		LiveLocations:    live,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	if m.MeetingLat != nil && m.MeetingLng != nil {
		t.MeetingPoint = &domain.GeoPoint{Lat: *m.MeetingLat, Lng: *m.MeetingLng}
	}
	return t, nil
}

func roomToModel(r domain.ChatRoom) (ChatRoomModel, error) {
	participants, err := marshalJSON(r.Participants)
	if err != nil {
		return ChatRoomModel{}, fmt.Errorf("encode participants: %w", err)
	}
	return ChatRoomModel{
		ID:            r.ID,
		TransactionID: r.TransactionID,
		Participants:  participants,
		LastMessageAt: r.LastMessageAt,
		CreatedAt:     r.CreatedAt,
	}, nil
}

func roomFromModel(m ChatRoomModel) (domain.ChatRoom, error) {
	var participants []domain.Participant
	if err := unmarshalJSON(m.Participants, &participants); err != nil {
		return domain.ChatRoom{}, fmt.Errorf("decode participants: %w", err)
	}
	return domain.ChatRoom{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		Participants:  participants,
		LastMessageAt: m.LastMessageAt,
		CreatedAt:     m.CreatedAt,
	}, nil
}

func chatMessageToModel(msg domain.ChatMessage) (ChatMessageModel, error) {
	location, err := marshalJSON(msg.Location)
	if err != nil {
		return ChatMessageModel{}, fmt.Errorf("encode location: %w", err)
	}
	return ChatMessageModel{
		ID:            msg.ID,
		RoomID:        msg.RoomID,
		SenderID:      msg.SenderID,
		Type:          string(msg.Type),
		Content:       msg.Content,
		Location:      location,
		LocationLabel: msg.LocationLabel,
		CreatedAt:     msg.CreatedAt,
	}, nil
}

func chatMessageFromModel(m ChatMessageModel) (domain.ChatMessage, error) {
	var location *domain.GeoPoint
	if err := unmarshalJSON(m.Location, &location); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("decode location: %w", err)
	}
	return domain.ChatMessage{
		ID:            m.ID,
		RoomID:        m.RoomID,
		SenderID:      m.SenderID,
		Type:          domain.MessageType(m.Type),
		Content:       m.Content,
		Location:      location,
		LocationLabel: m.LocationLabel,
		CreatedAt:     m.CreatedAt,
	}, nil
}

func directMessageToModel(msg domain.DirectMessage) DirectMessageModel {
	return DirectMessageModel{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		ItemID:      msg.ItemID,
		Content:     msg.Content,
		CreatedAt:   msg.CreatedAt,
	}
}

func directMessageFromModel(m DirectMessageModel) domain.DirectMessage {
	return domain.DirectMessage{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		ItemID:      m.ItemID,
		Content:     m.Content,
		CreatedAt:   m.CreatedAt,
	}
}

func confirmationToModel(c domain.PurchaseConfirmation) PurchaseConfirmationModel {
	return PurchaseConfirmationModel{
		ID:              c.ID,
		ItemID:          c.ItemID,
		BuyerID:         c.BuyerID,
		SellerID:        c.SellerID,
		BuyerConfirmed:  c.BuyerConfirmed,
		SellerConfirmed: c.SellerConfirmed,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func confirmationFromModel(m PurchaseConfirmationModel) domain.PurchaseConfirmation {
	return domain.PurchaseConfirmation{
		ID:              m.ID,
		ItemID:          m.ItemID,
		BuyerID:         m.BuyerID,
		SellerID:        m.SellerID,
		BuyerConfirmed:  m.BuyerConfirmed,
		SellerConfirmed: m.SellerConfirmed,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func marshalJSON(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func unmarshalJSON(raw datatypes.JSON, out any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
