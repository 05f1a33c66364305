package server

import (
	"net/http"
	"time"

	"fridgeshare/pkg/domain"
)

func (s *Server) handleStartTransaction(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req startTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var (
		tx  domain.Transaction
		err error
	)
	switch {
	case req.OfferID != "":
		tx, err = s.app.StartTransaction(user, req.OfferID)
	case req.ItemID != "" && req.Mode == domain.ModeHandoff:
		tx, err = s.app.StartHandoffTransaction(user, req.ItemID)
	default:
		writeError(w, http.StatusBadRequest, "offerId or itemId with handoff mode is required")
		return
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request, user domain.User) {
	tx, err := s.app.GetTransaction(user, r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleSetMeeting(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req setMeetingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tx, err := s.app.SetMeeting(r.Context(), user, r.PathValue("id"), req.Point, req.Label, req.PickupStart, req.PickupEnd)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleTransactionStatus(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req transactionStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tx, err := s.app.UpdateTransactionStatus(r.Context(), user, r.PathValue("id"), req.Status, req.Code)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleLiveLocation(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req liveLocationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tx, err := s.app.UpdateLiveLocation(r.Context(), user, r.PathValue("id"), req.Point)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleTransactionRoom(w http.ResponseWriter, r *http.Request, user domain.User) {
	room, err := s.app.RoomForTransaction(user, r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

type startTransactionRequest struct {
	OfferID string                 `json:"offerId"`
	ItemID  string                 `json:"itemId"`
	Mode    domain.TransactionMode `json:"mode"`
}

type setMeetingRequest struct {
	Point       domain.GeoPoint `json:"point"`
	Label       string          `json:"label"`
	PickupStart *time.Time      `json:"pickupStart"`
	PickupEnd   *time.Time      `json:"pickupEnd"`
}

type transactionStatusRequest struct {
	Status domain.TransactionStatus `json:"status"`
	Code   string                   `json:"code"`
}

type liveLocationRequest struct {
	Point domain.GeoPoint `json:"point"`
}
