package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"fridgeshare/internal/util"
	"fridgeshare/pkg/auth"
	"fridgeshare/pkg/domain"
)

const verificationTTL = 24 * time.Hour

// Register creates an account, issues a session token and queues a
// verification mail.
func (a *App) Register(username, email, password, name, affiliation string) (domain.User, string, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || password == "" {
		return domain.User{}, "", ErrUsernameAndPasswordRequired
	}
	if email == "" {
		return domain.User{}, "", ErrEmailRequired
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, "", ErrEmailRequired
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, "", err
	}
	exists, err := a.store.HasUsername(username)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check username: %w", err)
	}
	if exists {
		return domain.User{}, "", ErrUsernameAlreadyExists
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           util.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(name),
		Affiliation:  strings.TrimSpace(affiliation),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	if err := a.sendVerification(user); err != nil {
		slog.Warn("verification mail not sent", "user_id", user.ID, "err", err)
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(username, password string) (domain.User, string, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	user, ok, err := a.store.GetUserByUsername(username)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// Logout invalidates the session token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// UserFromToken resolves a user from a session token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

// UpdateProfile edits the caller's display fields.
func (a *App) UpdateProfile(user domain.User, name, affiliation *string) (domain.User, error) {
	if name != nil {
		user.Name = strings.TrimSpace(*name)
	}
	if affiliation != nil {
		user.Affiliation = strings.TrimSpace(*affiliation)
	}
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// GetUserStats returns the public profile aggregate for a username.
func (a *App) GetUserStats(username string) (domain.UserStats, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	user, ok, err := a.store.GetUserByUsername(username)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.UserStats{}, ErrRecipientNotFound
	}
	return domain.UserStats{
		Username:    user.Username,
		Rating:      user.Rating(),
		RatingCount: user.RatingCount,
		Sales:       user.Sales,
		Purchases:   user.Purchases,
	}, nil
}

// VerifyEmail consumes a verification code and marks the account verified.
func (a *App) VerifyEmail(user domain.User, code string) (domain.User, error) {
	if user.EmailVerified {
		return user, nil
	}
	ok, err := a.verification.ConsumeCode(user.ID, strings.TrimSpace(code))
	if err != nil {
		return domain.User{}, fmt.Errorf("consume code: %w", err)
	}
	if !ok {
		return domain.User{}, ErrInvalidVerificationCode
	}
	user.EmailVerified = true
	user.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// ResendVerification issues a fresh code, replacing any prior one.
func (a *App) ResendVerification(user domain.User) error {
	if user.EmailVerified {
		return nil
	}
	return a.sendVerification(user)
}

func (a *App) sendVerification(user domain.User) error {
	code := uuid.NewString()
	if err := a.verification.PutCode(user.ID, code, verificationTTL); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}
	if a.mailer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.mailer.SendVerificationCode(ctx, user.Email, code); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	return nil
}
