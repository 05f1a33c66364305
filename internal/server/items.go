package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"fridgeshare/internal/app"
	"fridgeshare/pkg/domain"
	"fridgeshare/pkg/storage"
)

func (s *Server) handleBrowseItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	maxPrice, ok := parseOptionalFloat(w, q.Get("maxPrice"), "maxPrice")
	if !ok {
		return
	}
	items, err := s.app.BrowseItems(domain.ItemCategory(q.Get("category")), maxPrice, q.Get("q"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse{Items: items})
}

func (s *Server) handleNearbyItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lat is required")
		return
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lng is required")
		return
	}
	radiusKm, ok := parseOptionalFloat(w, q.Get("radiusKm"), "radiusKm")
	if !ok {
		return
	}
	items, err := s.app.NearbyItems(lat, lng, radiusKm)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse{Items: items})
}

func (s *Server) handleMyItems(w http.ResponseWriter, _ *http.Request, user domain.User) {
	items, err := s.app.MyItems(user)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse{Items: items})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.app.GetItem(r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := s.app.CreateItem(user, req.toInput())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := s.app.UpdateItem(user, r.PathValue("id"), req.toInput())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request, user domain.User) {
	if err := s.app.DeleteItem(user, r.PathValue("id")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request, user domain.User) {
	if s.photos == nil {
		writeError(w, http.StatusNotImplemented, "photo uploads not configured")
		return
	}
	itemID := r.PathValue("id")
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	key, err := s.photos.PutPhoto(r.Context(), itemID, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedPhotoType) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeAppError(w, err)
		return
	}
	item, err := s.app.AddItemPhoto(user, itemID, key)
	if err != nil {
		writeAppError(w, err)
		return
	}
	url, err := s.photos.PhotoURL(r.Context(), key, 24*time.Hour)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, photoResponse{Key: key, URL: url, Item: item})
}

func parseOptionalFloat(w http.ResponseWriter, raw, name string) (float64, bool) {
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return v, true
}

type itemRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Category    domain.ItemCategory `json:"category"`
	Price       float64             `json:"price"`
	Quantity    int                 `json:"quantity"`
	Location    domain.GeoPoint     `json:"location"`
	Photos      []string            `json:"photos"`
}

func (r itemRequest) toInput() app.ItemInput {
	return app.ItemInput{
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Price:       r.Price,
		Quantity:    r.Quantity,
		Location:    r.Location,
		Photos:      r.Photos,
	}
}

type itemsResponse struct {
	Items []domain.Item `json:"items"`
}

type photoResponse struct {
	Key  string      `json:"key"`
	URL  string      `json:"url"`
	Item domain.Item `json:"item"`
}
