package app

import (
	"testing"
	"time"

	"fridgeshare/internal/store"
	"fridgeshare/pkg/domain"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	sessions, err := store.NewJWTSessionStore("test-secret-not-for-production", time.Hour, store.NewMemoryTokenRevoker(), store.JWTOptions{})
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	a, err := New(Config{
		Store:        store.NewMemoryStore(),
		Sessions:     sessions,
		Verification: store.NewMemoryVerificationStore(),
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func registerUser(t *testing.T, a *App, username string) domain.User {
	t.Helper()
	user, _, err := a.Register(username, username+"@example.edu", "Sup3r$ecretPw!", "Test User", "North Hall")
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return user
}

func listItem(t *testing.T, a *App, owner domain.User, name string, price float64) domain.Item {
	t.Helper()
	item, err := a.CreateItem(owner, ItemInput{
		Name:     name,
		Category: domain.CategoryProduce,
		Price:    price,
		Quantity: 1,
		Location: domain.GeoPoint{Lat: 42.336, Lng: -71.168},
	})
	if err != nil {
		t.Fatalf("create item %s: %v", name, err)
	}
	return item
}

func TestRegisterLoginLogout(t *testing.T) {
	a := newTestApp(t)
	user, token, err := a.Register("alice", "alice@example.edu", "Sup3r$ecretPw!", "Alice", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("username = %q, want alice", user.Username)
	}
	got, ok := a.UserFromToken(token)
	if !ok || got.ID != user.ID {
		t.Fatalf("UserFromToken failed after register")
	}
	if _, _, err := a.Register("alice", "other@example.edu", "Sup3r$ecretPw!", "", ""); err != ErrUsernameAlreadyExists {
		t.Fatalf("duplicate register err = %v, want ErrUsernameAlreadyExists", err)
	}
	if _, _, err := a.Login("alice", "wrong-password"); err != ErrInvalidCredentials {
		t.Fatalf("bad login err = %v, want ErrInvalidCredentials", err)
	}
	_, loginToken, err := a.Login("alice", "Sup3r$ecretPw!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := a.Logout(loginToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := a.UserFromToken(loginToken); ok {
		t.Fatalf("token still valid after logout")
	}
}

func TestVerifyEmailConsumesCode(t *testing.T) {
	a := newTestApp(t)
	verification := store.NewMemoryVerificationStore()
	a.verification = verification

	user := registerUser(t, a, "alice")
	if err := verification.PutCode(user.ID, "code-123", time.Minute); err != nil {
		t.Fatalf("put code: %v", err)
	}
	if _, err := a.VerifyEmail(user, "wrong"); err != ErrInvalidVerificationCode {
		t.Fatalf("wrong code err = %v, want ErrInvalidVerificationCode", err)
	}
	verified, err := a.VerifyEmail(user, "code-123")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified.EmailVerified {
		t.Fatalf("EmailVerified = false after verify")
	}
	// Verifying an already verified user is a no-op.
	if _, err := a.VerifyEmail(verified, "anything"); err != nil {
		t.Fatalf("re-verify: %v", err)
	}
}

func TestUserStatsAfterCompletedSale(t *testing.T) {
	a := newTestApp(t)
	seller := registerUser(t, a, "seller")
	buyer := registerUser(t, a, "buyer")
	item := listItem(t, a, seller, "sourdough loaf", 4)

	offer, err := a.CreateOffer(buyer, item.ID, 4, "")
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if _, err := a.RespondToOffer(seller, offer.ID, RespondAccept, 0); err != nil {
		t.Fatalf("accept: %v", err)
	}
	offer, _, err = a.store.GetOffer(offer.ID)
	if err != nil {
		t.Fatalf("reload offer: %v", err)
	}
	if _, _, err := a.ConfirmCompletion(buyer, offer.ID); err != nil {
		t.Fatalf("buyer confirm: %v", err)
	}
	if _, _, err := a.ConfirmCompletion(seller, offer.ID); err != nil {
		t.Fatalf("seller confirm: %v", err)
	}

	stats, err := a.GetUserStats("seller")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Sales != 1 {
		t.Fatalf("seller sales = %d, want 1", stats.Sales)
	}
	stats, err = a.GetUserStats("buyer")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Purchases != 1 {
		t.Fatalf("buyer purchases = %d, want 1", stats.Purchases)
	}
}
