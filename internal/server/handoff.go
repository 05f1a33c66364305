package server

import (
	"net/http"

	"fridgeshare/pkg/domain"
)

func (s *Server) handleInitiateHandoff(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req handoffRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := s.app.InitiateHandoff(user, req.ItemID, req.Recipient, req.Notes)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleCompleteHandoff(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req handoffRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := s.app.CompleteHandoff(user, req.ItemID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleCancelHandoff(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req handoffRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := s.app.CancelHandoff(user, req.ItemID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type handoffRequest struct {
	ItemID    string `json:"itemId"`
	Recipient string `json:"recipient"`
	Notes     string `json:"notes"`
}
