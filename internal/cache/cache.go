package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/comment-ranking-api/internal/config"
	"github.com/comment-ranking-api/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// CommentCache caches the unranked comment list of a product.
// Ranked views are never cached since they depend on the reference time.
//
// Every Invalidate bumps the product's version. A reader takes the version
// before loading from the database and hands it to SetProductComments, which
// discards the write when an invalidation happened in between.
type CommentCache interface {
	GetProductComments(ctx context.Context, productID string) ([]*models.Comment, bool, error)
	Version(ctx context.Context, productID string) (int64, error)
	SetProductComments(ctx context.Context, productID string, version int64, comments []*models.Comment) error
	Invalidate(ctx context.Context, productID string) error
	Close() error
}

// New returns a Redis-backed cache when configured, otherwise a no-op cache
func New(cfg *config.CacheConfig, log zerolog.Logger) (CommentCache, error) {
	if !cfg.Enabled() {
		log.Info().Msg("Comment cache disabled")
		return Noop{}, nil
	}
	return NewRedis(cfg, log)
}

// ProductKey returns the cache key of a product's comment list
func ProductKey(productID string) string {
	return "comments:product:" + productID
}

// VersionKey returns the key holding a product's invalidation counter
func VersionKey(productID string) string {
	return "comments:version:" + productID
}

var errStaleVersion = errors.New("cache version changed")

// redisCache is the Redis implementation of CommentCache
type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedis connects to Redis and verifies the connection
func NewRedis(cfg *config.CacheConfig, log zerolog.Logger) (CommentCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	c := &redisCache{
		client: client,
		ttl:    cfg.TTL,
		log:    log.With().Str("component", "cache").Logger(),
	}

	c.log.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Dur("ttl", cfg.TTL).
		Msg("Redis cache connected")

	return c, nil
}

func (c *redisCache) GetProductComments(ctx context.Context, productID string) ([]*models.Comment, bool, error) {
	data, err := c.client.Get(ctx, ProductKey(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var comments []*models.Comment
	if err := json.Unmarshal(data, &comments); err != nil {
		// A corrupt entry is treated as a miss and dropped
		c.log.Warn().Err(err).Str("product_id", productID).Msg("Discarding unreadable cache entry")
		c.client.Del(ctx, ProductKey(productID))
		return nil, false, nil
	}
	return comments, true, nil
}

func (c *redisCache) Version(ctx context.Context, productID string) (int64, error) {
	version, err := c.client.Get(ctx, VersionKey(productID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return version, err
}

// SetProductComments stores the list only while the product is still at version
func (c *redisCache) SetProductComments(ctx context.Context, productID string, version int64, comments []*models.Comment) error {
	data, err := json.Marshal(comments)
	if err != nil {
		return fmt.Errorf("failed to encode comments: %w", err)
	}

	versionKey := VersionKey(productID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleVersion
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, ProductKey(productID), data, c.ttl)
			return nil
		})
		return err
	}, versionKey)

	if errors.Is(err, errStaleVersion) || errors.Is(err, redis.TxFailedErr) {
		c.log.Debug().Str("product_id", productID).Int64("version", version).Msg("Skipping stale cache write")
		return nil
	}
	return err
}

func (c *redisCache) Invalidate(ctx context.Context, productID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, VersionKey(productID))
		pipe.Del(ctx, ProductKey(productID))
		return nil
	})
	return err
}

func (c *redisCache) Close() error {
	return c.client.Close()
}

// Noop is a CommentCache that never stores anything
type Noop struct{}

func (Noop) GetProductComments(ctx context.Context, productID string) ([]*models.Comment, bool, error) {
	return nil, false, nil
}

func (Noop) Version(ctx context.Context, productID string) (int64, error) {
	return 0, nil
}

func (Noop) SetProductComments(ctx context.Context, productID string, version int64, comments []*models.Comment) error {
	return nil
}

func (Noop) Invalidate(ctx context.Context, productID string) error {
	return nil
}

func (Noop) Close() error {
	return nil
}
