package app

import (
	"fmt"
	"strings"
	"time"

	"fridgeshare/internal/store"
	"fridgeshare/internal/util"
	"fridgeshare/pkg/domain"
)

// ItemInput carries the caller-editable listing fields.
type ItemInput struct {
	Name        string
	Description string
	Category    domain.ItemCategory
	Price       float64
	Quantity    int
	Location    domain.GeoPoint
	Photos      []string
}

func validateItemInput(in ItemInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrInvalidItem
	}
	if in.Price < 0 {
		return ErrInvalidPrice
	}
	if in.Quantity < 1 {
		return ErrInvalidItem
	}
	if !validCategory(in.Category) {
		return ErrInvalidCategory
	}
	if err := validateGeoPoint(in.Location); err != nil {
		return err
	}
	return nil
}

func validCategory(c domain.ItemCategory) bool {
	for _, known := range domain.Categories {
		if c == known {
			return true
		}
	}
	return false
}

func validateGeoPoint(p domain.GeoPoint) error {
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return ErrInvalidLocation
	}
	return nil
}

// CreateItem publishes a new listing owned by the caller. The listing
// expires after the configured TTL unless sold or handed off first.
func (a *App) CreateItem(owner domain.User, in ItemInput) (domain.Item, error) {
	if err := validateItemInput(in); err != nil {
		return domain.Item{}, err
	}
	now := time.Now().UTC()
	expires := now.Add(a.listingTTL)
	item := domain.Item{
		ID:          util.NewID(),
		OwnerID:     owner.ID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		Price:       in.Price,
		Quantity:    in.Quantity,
		Location:    in.Location,
		Photos:      in.Photos,
		Status:      domain.ItemActive,
		ExpiresAt:   &expires,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.store.SaveItem(item); err != nil {
		return domain.Item{}, fmt.Errorf("save item: %w", err)
	}
	return item, nil
}

// UpdateItem replaces the editable fields of an active listing.
func (a *App) UpdateItem(owner domain.User, itemID string, in ItemInput) (domain.Item, error) {
	if err := validateItemInput(in); err != nil {
		return domain.Item{}, err
	}
	item, ok, err := a.store.GetItem(itemID)
	if err != nil {
		return domain.Item{}, fmt.Errorf("fetch item: %w", err)
	}
	if !ok {
		return domain.Item{}, ErrItemNotFound
	}
	if item.OwnerID != owner.ID {
		return domain.Item{}, ErrNotOwner
	}
	if item.Status != domain.ItemActive {
		return domain.Item{}, ErrItemNotActive
	}
	item.Name = strings.TrimSpace(in.Name)
	item.Description = strings.TrimSpace(in.Description)
	item.Category = in.Category
	item.Price = in.Price
	item.Quantity = in.Quantity
	item.Location = in.Location
	if in.Photos != nil {
		item.Photos = in.Photos
	}
	item.UpdatedAt = time.Now().UTC()
	updated, err := a.store.UpdateItemCAS(item)
	if err != nil {
		return domain.Item{}, err
	}
	return updated, nil
}

// DeleteItem removes a listing. Only the owner may delete, and only while
// no handoff is pending.
func (a *App) DeleteItem(owner domain.User, itemID string) error {
	item, ok, err := a.store.GetItem(itemID)
	if err != nil {
		return fmt.Errorf("fetch item: %w", err)
	}
	if !ok {
		return ErrItemNotFound
	}
	if item.OwnerID != owner.ID {
		return ErrNotOwner
	}
	if item.HandoffState == domain.HandoffPending {
		return ErrItemNotActive
	}
	return a.store.DeleteItem(itemID)
}

// GetItem fetches a listing by id.
func (a *App) GetItem(itemID string) (domain.Item, error) {
	item, ok, err := a.store.GetItem(itemID)
	if err != nil {
		return domain.Item{}, fmt.Errorf("fetch item: %w", err)
	}
	if !ok {
		return domain.Item{}, ErrItemNotFound
	}
	return item, nil
}

// BrowseItems lists active listings, optionally narrowed by category,
// price ceiling and a name query.
func (a *App) BrowseItems(category domain.ItemCategory, maxPrice float64, query string) ([]domain.Item, error) {
	if category != "" && !validCategory(category) {
		return nil, ErrInvalidCategory
	}
	return a.store.ListItems(store.ItemFilter{
		Status:   domain.ItemActive,
		Category: category,
		MaxPrice: maxPrice,
		Query:    strings.TrimSpace(query),
	})
}

// MyItems lists every listing the caller owns, regardless of status.
func (a *App) MyItems(owner domain.User) ([]domain.Item, error) {
	return a.store.ListItems(store.ItemFilter{OwnerID: owner.ID})
}

// NearbyItems lists active listings within radiusKm of the point,
// closest first. A zero radius falls back to the configured default.
func (a *App) NearbyItems(lat, lng, radiusKm float64) ([]domain.Item, error) {
	if err := validateGeoPoint(domain.GeoPoint{Lat: lat, Lng: lng}); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		radiusKm = a.nearbyRadiusKm
	}
	return a.store.ListNearby(lat, lng, radiusKm)
}

// AddItemPhoto appends an uploaded photo URL to the listing.
func (a *App) AddItemPhoto(owner domain.User, itemID, url string) (domain.Item, error) {
	if strings.TrimSpace(url) == "" {
		return domain.Item{}, ErrInvalidItem
	}
	item, ok, err := a.store.GetItem(itemID)
	if err != nil {
		return domain.Item{}, fmt.Errorf("fetch item: %w", err)
	}
	if !ok {
		return domain.Item{}, ErrItemNotFound
	}
	if item.OwnerID != owner.ID {
		return domain.Item{}, ErrNotOwner
	}
	item.Photos = append(item.Photos, url)
	item.UpdatedAt = time.Now().UTC()
	return a.store.UpdateItemCAS(item)
}

// ExpireListings flips active listings past their expiry to expired.
// Called by the background sweep.
func (a *App) ExpireListings(now time.Time) (int64, error) {
	return a.store.ExpireItemsBefore(now)
}
