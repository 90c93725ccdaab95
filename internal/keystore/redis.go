package keystore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Key the hex-encoded keypair is stored under.
	Key string
}

// RedisStorage stores the keypair hex-encoded under a single key. Suited to
// shared deployments where several services use the same persistent wallet.
type RedisStorage struct {
	client *redis.Client
	key    string
}

// NewRedisStorage connects and pings the server before returning.
func NewRedisStorage(cfg RedisConfig) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisStorageWithClient(client, cfg.Key), nil
}

// NewRedisStorageWithClient wraps an existing client, mainly for tests.
func NewRedisStorageWithClient(client *redis.Client, key string) *RedisStorage {
	if key == "" {
		key = "wallet:keypair"
	}
	return &RedisStorage{client: client, key: key}
}

func (s *RedisStorage) Get(ctx context.Context) (solana.PrivateKey, error) {
	encoded, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get keypair: %w", err)
	}
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode keypair: %w", err)
	}
	return solana.PrivateKey(raw), nil
}

func (s *RedisStorage) Put(ctx context.Context, key solana.PrivateKey) error {
	if err := s.client.Set(ctx, s.key, hex.EncodeToString(key), 0).Err(); err != nil {
		return fmt.Errorf("redis set keypair: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}
