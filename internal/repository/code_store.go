package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/counseling-api/pkg/errors"
)

// CodeStore keeps short-lived verification codes in Redis. Keys expire on
// their own; a consumed code is deleted immediately so it cannot be replayed.
type CodeStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCodeStore constructs a verification-code store.
func NewCodeStore(client *redis.Client, ttl time.Duration) *CodeStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CodeStore{client: client, ttl: ttl}
}

func codeKey(purpose, subject string) string {
	return fmt.Sprintf("verification:%s:%s", purpose, subject)
}

// Put stores the code for a subject, replacing any earlier one.
func (s *CodeStore) Put(ctx context.Context, purpose, subject, code string) error {
	if s.client == nil {
		return fmt.Errorf("code store unavailable")
	}
	if err := s.client.Set(ctx, codeKey(purpose, subject), code, s.ttl).Err(); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}
	return nil
}

// Consume atomically fetches and deletes the stored code. Expired or missing
// codes surface as a cache miss.
func (s *CodeStore) Consume(ctx context.Context, purpose, subject string) (string, error) {
	if s.client == nil {
		return "", appErrors.ErrCacheMiss
	}
	code, err := s.client.GetDel(ctx, codeKey(purpose, subject)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", appErrors.ErrCacheMiss
		}
		return "", fmt.Errorf("consume verification code: %w", err)
	}
	return code, nil
}
