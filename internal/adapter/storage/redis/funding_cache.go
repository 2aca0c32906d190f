package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

// FundingCache implements ports.FundingCache using Redis. It maps an external
// confirmation id to the deposit it produced.
type FundingCache struct {
	client goredis.UniversalClient
	prefix string
}

var _ ports.FundingCache = (*FundingCache)(nil)

// NewFundingCache creates a new Redis-backed funding cache.
func NewFundingCache(client goredis.UniversalClient) *FundingCache {
	return &FundingCache{
		client: client,
		prefix: "funding:",
	}
}

// Get returns the cached deposit for a confirmation id.
// Returns nil, nil if the key does not exist.
func (c *FundingCache) Get(ctx context.Context, confirmationID string) (*domain.Transaction, error) {
	val, err := c.client.Get(ctx, c.prefix+confirmationID).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis funding get: %w", err)
	}

	var tx domain.Transaction
	if err := json.Unmarshal(val, &tx); err != nil {
		return nil, fmt.Errorf("decode cached funding %q: %w", confirmationID, err)
	}
	return &tx, nil
}

// Set stores the deposit for a confirmation id with TTL.
func (c *FundingCache) Set(ctx context.Context, confirmationID string, tx *domain.Transaction, ttl time.Duration) error {
	val, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode funding %q: %w", confirmationID, err)
	}
	if err := c.client.Set(ctx, c.prefix+confirmationID, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis funding set: %w", err)
	}
	return nil
}
