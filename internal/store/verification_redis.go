package store

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisVerificationStore keeps email verification codes in Redis with TTL.
type RedisVerificationStore struct {
	client *redis.Client
}

// NewRedisVerificationStore builds a Redis-backed verification code store.
func NewRedisVerificationStore(addr, password string) *RedisVerificationStore {
	return &RedisVerificationStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
	}
}

// PutCode stores the code for the user with a TTL, replacing any prior code.
func (s *RedisVerificationStore) PutCode(userID, code string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.client.Set(ctx, verificationKey(userID), code, ttl).Err()
}

// ConsumeCode checks the code and deletes it on match.
func (s *RedisVerificationStore) ConsumeCode(userID, code string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	stored, err := s.client.Get(ctx, verificationKey(userID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if stored != code {
		return false, nil
	}
	if err := s.client.Del(ctx, verificationKey(userID)).Err(); err != nil && err != redis.Nil {
		return false, err
	}
	return true, nil
}

func verificationKey(userID string) string {
	return "fridgeshare:verify:" + userID
}

// MemoryVerificationStore keeps codes in-process for tests.
type MemoryVerificationStore struct {
	mu    sync.Mutex
	codes map[string]verificationEntry
}

type verificationEntry struct {
	code    string
	expires time.Time
}

// NewMemoryVerificationStore builds an in-memory verification code store.
func NewMemoryVerificationStore() *MemoryVerificationStore {
	return &MemoryVerificationStore{codes: make(map[string]verificationEntry)}
}

// PutCode stores the code with a TTL.
func (s *MemoryVerificationStore) PutCode(userID, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[userID] = verificationEntry{code: code, expires: time.Now().Add(ttl)}
	return nil
}

// ConsumeCode checks the code and deletes it on match.
func (s *MemoryVerificationStore) ConsumeCode(userID, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.codes[userID]
	if !ok || time.Now().After(entry.expires) || entry.code != code {
		return false, nil
	}
	delete(s.codes, userID)
	return true, nil
}
