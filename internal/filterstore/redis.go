package filterstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vecindario/discovery/internal/logging"
	"github.com/vecindario/discovery/internal/models"
)

// RedisStore keeps filter entries in Redis under
// <prefix><namespace>:<key>.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	namespace string
	logger    *logging.Logger
}

// RedisConfig holds connection settings for the Redis store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedis connects to Redis and returns a store for the given
// namespace. The connection is verified before use.
func NewRedis(cfg RedisConfig, namespace string, logger *logging.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "discovery:"
	}

	return &RedisStore{
		client:    client,
		prefix:    prefix,
		namespace: namespace,
		logger:    logger,
	}, nil
}

// NewRedisWithClient wraps an existing client, so many namespaces can
// share one connection pool.
func NewRedisWithClient(client *redis.Client, prefix, namespace string, logger *logging.Logger) *RedisStore {
	if prefix == "" {
		prefix = "discovery:"
	}
	return &RedisStore{
		client:    client,
		prefix:    prefix,
		namespace: namespace,
		logger:    logger,
	}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + s.namespace + ":" + k
}

func (s *RedisStore) Load(ctx context.Context) models.FilterState {
	entries := make(map[string]string, len(Keys))
	for _, key := range Keys {
		value, err := s.client.Get(ctx, s.key(key)).Result()
		if err != nil {
			if err != redis.Nil {
				s.logger.Warn("Failed to read filter entry", logging.WithFields(map[string]interface{}{
					"key":   key,
					"error": err.Error(),
				}))
			}
			continue
		}
		entries[key] = value
	}
	return Decode(entries)
}

func (s *RedisStore) Save(ctx context.Context, state models.FilterState) {
	for key, value := range Encode(state) {
		if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
			s.logger.Warn("Failed to persist filter entry", logging.WithFields(map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			}))
		}
	}
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
