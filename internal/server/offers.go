package server

import (
	"net/http"

	"fridgeshare/pkg/domain"
)

func (s *Server) handleCreateOffer(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req createOfferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	offer, err := s.app.CreateOffer(user, req.ItemID, req.Price, req.Note)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, offer)
}

func (s *Server) handleListOffers(w http.ResponseWriter, r *http.Request, user domain.User) {
	made, received, err := s.app.OffersForUser(user)
	if err != nil {
		writeAppError(w, err)
		return
	}
	switch r.URL.Query().Get("role") {
	case "buyer":
		received = nil
	case "seller":
		made = nil
	}
	writeJSON(w, http.StatusOK, offersResponse{Made: made, Received: received})
}

func (s *Server) handleItemOffers(w http.ResponseWriter, r *http.Request, user domain.User) {
	offers, err := s.app.OffersForItem(user, r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Offer{"offers": offers})
}

func (s *Server) handleRespondOffer(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req respondOfferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	offerID := r.PathValue("id")
	var (
		offer domain.Offer
		err   error
	)
	if req.Action == "accept" && s.isCounteredOfferBuyer(user, offerID) {
		offer, err = s.app.AcceptCounter(user, offerID)
	} else {
		offer, err = s.app.RespondToOffer(user, offerID, req.Action, req.CounterPrice)
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (s *Server) isCounteredOfferBuyer(user domain.User, offerID string) bool {
	offer, err := s.app.GetOffer(user, offerID)
	return err == nil && offer.BuyerID == user.ID && offer.Status == domain.OfferCountered
}

func (s *Server) handleAcceptCounter(w http.ResponseWriter, r *http.Request, user domain.User) {
	offer, err := s.app.AcceptCounter(user, r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (s *Server) handleCancelOffer(w http.ResponseWriter, r *http.Request, user domain.User) {
	offer, err := s.app.CancelOffer(user, r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (s *Server) handleMarkReady(w http.ResponseWriter, r *http.Request, user domain.User) {
	var req markReadyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	offer, err := s.app.MarkReadyForPickup(user, r.PathValue("id"), req.PickupHint)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (s *Server) handleConfirmCompletion(w http.ResponseWriter, r *http.Request, user domain.User) {
	offer, conf, err := s.app.ConfirmCompletion(user, r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, confirmCompletionResponse{Offer: offer, Confirmation: conf})
}

type createOfferRequest struct {
	ItemID string  `json:"itemId"`
	Price  float64 `json:"price"`
	Note   string  `json:"note"`
}

type respondOfferRequest struct {
	Action       string  `json:"action"`
	CounterPrice float64 `json:"counterPrice"`
}

type markReadyRequest struct {
	PickupHint string `json:"pickupHint"`
}

type offersResponse struct {
	Made     []domain.Offer `json:"made"`
	Received []domain.Offer `json:"received"`
}

type confirmCompletionResponse struct {
	Offer        domain.Offer                `json:"offer"`
	Confirmation domain.PurchaseConfirmation `json:"confirmation"`
}
