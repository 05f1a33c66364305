package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"fridgeshare/internal/app"
	"fridgeshare/internal/ratelimit"
	"fridgeshare/internal/store"
	"fridgeshare/internal/util"
	"fridgeshare/pkg/ai"
	"fridgeshare/pkg/domain"
	"fridgeshare/pkg/payments"
	"fridgeshare/pkg/storage"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App      *app.App
	AI       *ai.Client
	Payments *payments.Client
	Photos   storage.PhotoStore

	RedisAddr     string
	RedisPassword string

	RegisterRateLimitPerMinute int
	LoginRateLimitPerMinute    int
	MessageRateLimitPerMinute  int

	MaxUploadBytes int64
}

// Server exposes the marketplace HTTP API.
type Server struct {
	app             *app.App
	ai              *ai.Client
	payments        *payments.Client
	photos          storage.PhotoStore
	mux             *http.ServeMux
	maxUploadBytes  int64
	registerLimiter *ratelimit.FixedWindowLimiter
	loginLimiter    *ratelimit.FixedWindowLimiter
	messageLimiter  *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	registerLimit := cfg.RegisterRateLimitPerMinute
	if registerLimit <= 0 {
		registerLimit = 5
	}
	loginLimit := cfg.LoginRateLimitPerMinute
	if loginLimit <= 0 {
		loginLimit = 10
	}
	messageLimit := cfg.MessageRateLimitPerMinute
	if messageLimit <= 0 {
		messageLimit = 60
	}
	rateWindow := time.Minute
	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		prefix := "fridgeshare:ratelimit:" + name
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, rateWindow)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	registerLimiter, err := newLimiter("register", registerLimit)
	if err != nil {
		return nil, err
	}
	loginLimiter, err := newLimiter("login", loginLimit)
	if err != nil {
		return nil, err
	}
	messageLimiter, err := newLimiter("message", messageLimit)
	if err != nil {
		return nil, err
	}

	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	s := &Server{
		app:             cfg.App,
		ai:              cfg.AI,
		payments:        cfg.Payments,
		photos:          cfg.Photos,
		mux:             http.NewServeMux(),
		maxUploadBytes:  maxUpload,
		registerLimiter: registerLimiter,
		loginLimiter:    loginLimiter,
		messageLimiter:  messageLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog("fridgeshare", s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// users
	s.mux.HandleFunc("POST /users/register", s.handleRegister)
	s.mux.HandleFunc("POST /users/login", s.handleLogin)
	s.mux.Handle("POST /users/logout", s.authenticated(s.handleLogout))
	s.mux.Handle("GET /users/me", s.authenticated(s.handleMe))
	s.mux.Handle("PATCH /users/me", s.authenticated(s.handleUpdateProfile))
	s.mux.Handle("POST /users/verify-email", s.authenticated(s.handleVerifyEmail))
	s.mux.Handle("POST /users/resend-verification", s.authenticated(s.handleResendVerification))
	s.mux.HandleFunc("GET /users/{username}/stats", s.handleUserStats)

	// items
	s.mux.HandleFunc("GET /items", s.handleBrowseItems)
	s.mux.HandleFunc("GET /items/nearby", s.handleNearbyItems)
	s.mux.Handle("GET /items/mine", s.authenticated(s.handleMyItems))
	s.mux.HandleFunc("GET /items/{id}", s.handleGetItem)
	s.mux.Handle("POST /items", s.authenticated(s.handleCreateItem))
	s.mux.Handle("PATCH /items/{id}", s.authenticated(s.handleUpdateItem))
	s.mux.Handle("DELETE /items/{id}", s.authenticated(s.handleDeleteItem))
	s.mux.Handle("POST /items/{id}/photos", s.authenticated(s.handleUploadPhoto))

	// offers
	s.mux.Handle("POST /api/offers", s.authenticated(s.handleCreateOffer))
	s.mux.Handle("GET /api/offers", s.authenticated(s.handleListOffers))
	s.mux.Handle("GET /api/items/{id}/offers", s.authenticated(s.handleItemOffers))
	s.mux.Handle("POST /api/offers/{id}/respond", s.authenticated(s.handleRespondOffer))
	s.mux.Handle("POST /api/offers/{id}/accept-counter", s.authenticated(s.handleAcceptCounter))
	s.mux.Handle("POST /api/offers/{id}/cancel", s.authenticated(s.handleCancelOffer))
	s.mux.Handle("POST /api/offers/{id}/ready", s.authenticated(s.handleMarkReady))
	s.mux.Handle("POST /api/offers/{id}/complete", s.authenticated(s.handleConfirmCompletion))

	// handoff
	s.mux.Handle("POST /api/handoff", s.authenticated(s.handleInitiateHandoff))
	s.mux.Handle("POST /api/complete-handoff", s.authenticated(s.handleCompleteHandoff))
	s.mux.Handle("POST /api/cancel-handoff", s.authenticated(s.handleCancelHandoff))

	// transactions
	s.mux.Handle("POST /api/transactions", s.authenticated(s.handleStartTransaction))
	s.mux.Handle("GET /api/transactions/{id}", s.authenticated(s.handleGetTransaction))
	s.mux.Handle("POST /api/transactions/{id}/meeting", s.authenticated(s.handleSetMeeting))
	s.mux.Handle("POST /api/transactions/{id}/status", s.authenticated(s.handleTransactionStatus))
	s.mux.Handle("POST /api/transactions/{id}/location", s.authenticated(s.handleLiveLocation))
	s.mux.Handle("GET /api/transactions/{id}/room", s.authenticated(s.handleTransactionRoom))

	// chat
	s.mux.Handle("GET /api/chat/{roomID}", s.authenticated(s.handleGetRoom))
	s.mux.Handle("GET /api/chat/{roomID}/messages", s.authenticated(s.handleChatHistory))
	s.mux.Handle("POST /api/chat/{roomID}/messages", s.authenticated(s.handleSendChatMessage))
	s.mux.Handle("GET /api/chat/{roomID}/events", s.authenticated(s.handleChatEvents))
	s.mux.Handle("POST /api/chat/{roomID}/join", s.authenticated(s.handleJoinRoom))
	s.mux.Handle("POST /api/chat/{roomID}/leave", s.authenticated(s.handleLeaveRoom))

	// direct messages
	s.mux.Handle("POST /api/messages", s.authenticated(s.handleSendDirectMessage))
	s.mux.Handle("GET /api/messages", s.authenticated(s.handleInbox))

	// listing assistance
	s.mux.Handle("POST /api/analyze", s.authenticated(s.handleAnalyzePhoto))
	s.mux.Handle("POST /api/generate-description", s.authenticated(s.handleGenerateDescription))
	s.mux.Handle("POST /api/suggest-price", s.authenticated(s.handleSuggestPrice))

	// payments
	s.mux.Handle("POST /api/payments/intent", s.authenticated(s.handlePaymentIntent))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authorize(r)
		if !ok {
			s.audit(r, "authorize", "fail")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) authorize(r *http.Request) (domain.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return domain.User{}, false
	}
	return s.app.UserFromToken(token)
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, nil),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	key := r.URL.Path + "|" + util.ClientIP(r, nil)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps application errors to HTTP statuses.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrItemNotFound),
		errors.Is(err, app.ErrOfferNotFound),
		errors.Is(err, app.ErrTransactionNotFound),
		errors.Is(err, app.ErrRoomNotFound),
		errors.Is(err, app.ErrRecipientNotFound),
		errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrNotOwner),
		errors.Is(err, app.ErrNotOfferParty),
		errors.Is(err, app.ErrNotParticipant),
		errors.Is(err, app.ErrHandoffRecipient):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrUsernameAlreadyExists),
		errors.Is(err, app.ErrDuplicateOffer),
		errors.Is(err, app.ErrOfferTerminal),
		errors.Is(err, app.ErrTransactionTerminal),
		errors.Is(err, store.ErrVersionConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrItemNotActive),
		errors.Is(err, app.ErrOwnItem),
		errors.Is(err, app.ErrInvalidItem),
		errors.Is(err, app.ErrInvalidLocation),
		errors.Is(err, app.ErrInvalidCategory),
		errors.Is(err, app.ErrInvalidPrice),
		errors.Is(err, app.ErrOfferNotOpen),
		errors.Is(err, app.ErrOfferNotAccepted),
		errors.Is(err, app.ErrNoHandoffPending),
		errors.Is(err, app.ErrBadStatusChange),
		errors.Is(err, app.ErrWrongCode),
		errors.Is(err, app.ErrEmptyMessage),
		errors.Is(err, app.ErrEmailRequired),
		errors.Is(err, app.ErrUsernameAndPasswordRequired),
		errors.Is(err, app.ErrInvalidVerificationCode):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("internal error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
