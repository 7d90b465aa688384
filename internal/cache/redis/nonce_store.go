package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"nextvault/internal/domain"
)

// nonceTTL bounds how long a wallet login nonce stays valid.
const nonceTTL = 5 * time.Minute

// NonceStore implements domain.NonceStore using Redis string keys with a
// TTL. GETDEL on consume makes each nonce single-use.
type NonceStore struct {
	rdb *redis.Client
}

// NewNonceStore creates a NonceStore backed by the given Client.
func NewNonceStore(c *Client) *NonceStore {
	return &NonceStore{rdb: c.Underlying()}
}

func nonceKey(address string) string {
	return "nonce:" + strings.ToLower(address)
}

// Issue creates and stores a nonce for the wallet address.
func (ns *NonceStore) Issue(ctx context.Context, address string) (string, error) {
	nonce := uuid.New().String()
	if err := ns.rdb.Set(ctx, nonceKey(address), nonce, nonceTTL).Err(); err != nil {
		return "", fmt.Errorf("redis: issue nonce: %w", err)
	}
	return nonce, nil
}

// Consume retrieves and deletes the nonce for the wallet address.
func (ns *NonceStore) Consume(ctx context.Context, address string) (string, error) {
	nonce, err := ns.rdb.GetDel(ctx, nonceKey(address)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("redis: consume nonce: %w", err)
	}
	return nonce, nil
}

// Compile-time interface check.
var _ domain.NonceStore = (*NonceStore)(nil)
