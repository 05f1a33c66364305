package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fridgeshare/internal/realtime"
	"fridgeshare/internal/store"
)

// Mailer delivers verification mail. Implemented by pkg/mail.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, code string) error
}

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	JWTSecret      string
	SessionTTL     time.Duration
	ListingTTL     time.Duration
	NearbyRadiusKm float64
	Store          store.Store
	Sessions       store.SessionStore
	Verification   store.VerificationStore
	Hub            *realtime.Hub
	Mailer         Mailer
}

// App wires storage, sessions and realtime fan-out into the marketplace logic.
type App struct {
	store          store.Store
	sessions       store.SessionStore
	verification   store.VerificationStore
	hub            *realtime.Hub
	mailer         Mailer
	listingTTL     time.Duration
	nearbyRadiusKm float64
}

// New constructs the application with database storage and session management.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.ListingTTL == 0 {
		cfg.ListingTTL = 7 * 24 * time.Hour
	}
	if cfg.NearbyRadiusKm == 0 {
		cfg.NearbyRadiusKm = 5
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return nil, fmt.Errorf("redisAddr is required for jwt+redis session strategy")
		}
		revoker := store.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword)
		jwtStore, err := store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL, revoker, store.JWTOptions{})
		if err != nil {
			return nil, fmt.Errorf("init jwt session store: %w", err)
		}
		sessionStore = jwtStore
	}

	verification := cfg.Verification
	if verification == nil {
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return nil, fmt.Errorf("redisAddr is required for verification codes")
		}
		verification = store.NewRedisVerificationStore(cfg.RedisAddr, cfg.RedisPassword)
	}

	hub := cfg.Hub
	if hub == nil {
		hub = realtime.NewLocalHub()
	}

	return &App{
		store:          dataStore,
		sessions:       sessionStore,
		verification:   verification,
		hub:            hub,
		mailer:         cfg.Mailer,
		listingTTL:     cfg.ListingTTL,
		nearbyRadiusKm: cfg.NearbyRadiusKm,
	}, nil
}

// Hub exposes the realtime registry for event stream handlers.
func (a *App) Hub() *realtime.Hub {
	return a.hub
}
