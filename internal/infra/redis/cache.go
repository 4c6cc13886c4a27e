package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/coinkeep/coinkeep/internal/ledger"
	"github.com/coinkeep/coinkeep/pkg/logger"
)

const (
	// DefaultTTL bounds how stale a cached balance can get if an
	// invalidation is ever missed.
	DefaultTTL = 5 * time.Minute

	// KeyPrefix is the prefix for balance cache keys
	KeyPrefix = "balance:"
)

// BalanceCache is a Redis-backed cache for per-account balance triples.
// It is strictly an accelerator: the ledger recomputes from entries on
// every miss, so losing the cache loses nothing.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewBalanceCache creates a new balance cache
func NewBalanceCache(client *redis.Client, log *logger.Logger) *BalanceCache {
	return NewBalanceCacheWithTTL(client, DefaultTTL, log)
}

// NewBalanceCacheWithTTL creates a new balance cache with custom TTL
func NewBalanceCacheWithTTL(client *redis.Client, ttl time.Duration, log *logger.Logger) *BalanceCache {
	return &BalanceCache{
		client: client,
		ttl:    ttl,
		logger: log.WithComponent("cache"),
	}
}

// cachedBalance is the stored form; decimals serialize as strings.
type cachedBalance struct {
	Working   string    `json:"working"`
	Cleared   string    `json:"cleared"`
	Uncleared string    `json:"uncleared"`
	UpdatedAt time.Time `json:"updated_at"`
}

func balanceKey(accountID uuid.UUID) string {
	return fmt.Sprintf("%s%s", KeyPrefix, accountID)
}

// Get retrieves a cached balance for an account
// Ping reports whether the backing Redis is reachable.
func (c *BalanceCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *BalanceCache) Get(ctx context.Context, accountID uuid.UUID) (*ledger.Balance, bool, error) {
	key := balanceKey(accountID)

	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		c.logger.Debug("cache miss", "account_id", accountID)
		return nil, false, nil
	}
	if err != nil {
		c.logger.Error("cache error", "operation", "get", "account_id", accountID, "error", err)
		return nil, false, fmt.Errorf("failed to get cached balance: %w", err)
	}

	var cached cachedBalance
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached balance: %w", err)
	}

	balance, err := cached.decode()
	if err != nil {
		return nil, false, err
	}

	c.logger.Debug("cache hit", "account_id", accountID)
	return balance, true, nil
}

// Set stores a balance in the cache
func (c *BalanceCache) Set(ctx context.Context, accountID uuid.UUID, balance ledger.Balance) error {
	key := balanceKey(accountID)

	cached := cachedBalance{
		Working:   balance.Working.String(),
		Cleared:   balance.Cleared.String(),
		Uncleared: balance.Uncleared.String(),
		UpdatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal balance: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("cache error", "operation", "set", "account_id", accountID, "error", err)
		return fmt.Errorf("failed to set cached balance: %w", err)
	}
	return nil
}

// Invalidate removes the cached balances for the given accounts
func (c *BalanceCache) Invalidate(ctx context.Context, accountIDs ...uuid.UUID) error {
	if len(accountIDs) == 0 {
		return nil
	}
	keys := make([]string, len(accountIDs))
	for i, id := range accountIDs {
		keys[i] = balanceKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Error("cache error", "operation", "invalidate", "error", err)
		return fmt.Errorf("failed to invalidate cached balances: %w", err)
	}
	return nil
}

// Clear removes every cached balance
func (c *BalanceCache) Clear(ctx context.Context) error {
	pattern := fmt.Sprintf("%s*", KeyPrefix)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()

	pipe := c.client.Pipeline()
	count := 0
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		count++
		if count >= 100 {
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			pipe = c.client.Pipeline()
			count = 0
		}
	}

	if count > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
	}

	return iter.Err()
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse cached amount %q: %w", s, err)
	}
	return d, nil
}

func (c cachedBalance) decode() (*ledger.Balance, error) {
	var balance ledger.Balance
	var err error
	if balance.Working, err = parseAmount(c.Working); err != nil {
		return nil, err
	}
	if balance.Cleared, err = parseAmount(c.Cleared); err != nil {
		return nil, err
	}
	if balance.Uncleared, err = parseAmount(c.Uncleared); err != nil {
		return nil, err
	}
	return &balance, nil
}
