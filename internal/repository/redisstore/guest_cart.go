package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/config"
	"github.com/okaziba/storefront/internal/domain"
)

// Guest carts live for 30 days without activity before redis drops them.
const guestCartTTL = 30 * 24 * time.Hour

type guestCartRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewClient connects to redis and verifies the connection
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// NewGuestCartRepository creates the device-local guest cart store
func NewGuestCartRepository(client *redis.Client, logger *zap.Logger) *guestCartRepository {
	return &guestCartRepository{
		client: client,
		logger: logger,
	}
}

func cartKey(deviceID string) string {
	return "cart:guest:" + deviceID
}

func (r *guestCartRepository) Load(ctx context.Context, deviceID string) ([]domain.CartLine, error) {
	raw, err := r.client.Get(ctx, cartKey(deviceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to load guest cart", zap.String("device_id", deviceID), zap.Error(err))
		return nil, err
	}

	lines, ok := decodeLines(raw)
	if !ok {
		// Corrupt payload resets the cart instead of breaking the session.
		r.logger.Warn("Corrupt guest cart payload, resetting", zap.String("device_id", deviceID))
		if err := r.Clear(ctx, deviceID); err != nil {
			r.logger.Error("Failed to reset corrupt guest cart", zap.Error(err))
		}
		return nil, nil
	}

	return lines, nil
}

func (r *guestCartRepository) Save(ctx context.Context, deviceID string, lines []domain.CartLine) error {
	raw, err := json.Marshal(lines)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, cartKey(deviceID), raw, guestCartTTL).Err(); err != nil {
		r.logger.Error("Failed to save guest cart", zap.String("device_id", deviceID), zap.Error(err))
		return err
	}

	return nil
}

func (r *guestCartRepository) Clear(ctx context.Context, deviceID string) error {
	if err := r.client.Del(ctx, cartKey(deviceID)).Err(); err != nil {
		r.logger.Error("Failed to clear guest cart", zap.String("device_id", deviceID), zap.Error(err))
		return err
	}
	return nil
}

// decodeLines parses a stored guest cart. Lines with a non-positive
// quantity are dropped; they are never valid persisted state.
func decodeLines(raw []byte) ([]domain.CartLine, bool) {
	var lines []domain.CartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, false
	}

	kept := lines[:0]
	for _, line := range lines {
		if line.Quantity >= 1 {
			kept = append(kept, line)
		}
	}

	return kept, true
}
