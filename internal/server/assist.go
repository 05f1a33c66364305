package server

import (
	"errors"
	"net/http"
	"strings"

	"fridgeshare/pkg/domain"
	"fridgeshare/pkg/payments"
)

func (s *Server) handleAnalyzePhoto(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if s.ai == nil {
		writeError(w, http.StatusNotImplemented, "listing assistance not configured")
		return
	}
	var req analyzePhotoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		writeError(w, http.StatusBadRequest, "imageUrl is required")
		return
	}
	analysis, err := s.ai.AnalyzePhoto(r.Context(), req.ImageURL)
	if err != nil {
		writeError(w, http.StatusBadGateway, "photo analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleGenerateDescription(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if s.ai == nil {
		writeError(w, http.StatusNotImplemented, "listing assistance not configured")
		return
	}
	var req generateDescriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	description, err := s.ai.GenerateDescription(r.Context(), req.Name, req.Category, req.Notes)
	if err != nil {
		writeError(w, http.StatusBadGateway, "description generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"description": description})
}

func (s *Server) handleSuggestPrice(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if s.ai == nil {
		writeError(w, http.StatusNotImplemented, "listing assistance not configured")
		return
	}
	var req suggestPriceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	suggestion, err := s.ai.SuggestPrice(r.Context(), req.Name, req.Category, req.Description)
	if err != nil {
		writeError(w, http.StatusBadGateway, "price suggestion failed")
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

func (s *Server) handlePaymentIntent(w http.ResponseWriter, r *http.Request, user domain.User) {
	if s.payments == nil {
		writeError(w, http.StatusNotImplemented, "payments not configured")
		return
	}
	var req paymentIntentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	offer, err := s.app.GetOffer(user, req.OfferID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	intent, err := s.payments.CreateIntent(r.Context(), offer.SettlePrice(), req.Currency, offer.ID)
	if err != nil {
		var apiErr *payments.APIError
		switch {
		case errors.Is(err, payments.ErrNotConfigured):
			writeError(w, http.StatusNotImplemented, err.Error())
		case errors.As(err, &apiErr):
			writeError(w, http.StatusBadGateway, apiErr.Message)
		default:
			writeError(w, http.StatusBadGateway, "payment provider unavailable")
		}
		return
	}
	writeJSON(w, http.StatusCreated, intent)
}

type analyzePhotoRequest struct {
	ImageURL string `json:"imageUrl"`
}

type generateDescriptionRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Notes    string `json:"notes"`
}

type suggestPriceRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

type paymentIntentRequest struct {
	OfferID  string `json:"offerId"`
	Currency string `json:"currency"`
}
