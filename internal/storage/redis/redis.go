package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/meetingstt/internal/config"
	"github.com/goodtune/meetingstt/internal/storage"
	"github.com/redis/go-redis/v9"
)

// Store implements the storage.Store interface using Redis
type Store struct {
	client       *redis.Client
	usageStore   *usageStore
	meetingStore *meetingStore
}

// Open creates a new Redis-backed storage instance
func Open(cfg config.RedisConfig) (*Store, error) {
	// Parse timeouts
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Host may already carry the port
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newStore(client), nil
}

func newStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		usageStore: &usageStore{
			client:       client,
			appendScript: redis.NewScript(appendEventScript),
			sumScript:    redis.NewScript(sumWindowScript),
		},
		meetingStore: &meetingStore{
			client:       client,
			createScript: redis.NewScript(createMeetingScript),
			deleteScript: redis.NewScript(deleteMeetingScript),
		},
	}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Usage returns the UsageStore implementation
func (s *Store) Usage() storage.UsageStore {
	return s.usageStore
}

// Meetings returns the MeetingStore implementation
func (s *Store) Meetings() storage.MeetingStore {
	return s.meetingStore
}

const (
	keyUsageSeq       = "meetingstt:usage:seq"
	keyMeetingsByTime = "meetingstt:meetings:by_created"
)

func usageEventKey(id string) string {
	return fmt.Sprintf("meetingstt:usage:event:%s", id)
}

func usageWindowKey(provider storage.Provider) string {
	return fmt.Sprintf("meetingstt:usage:events:%s", provider)
}

func usageDurationsKey(provider storage.Provider) string {
	return fmt.Sprintf("meetingstt:usage:durations:%s", provider)
}

func meetingKey(id string) string {
	return fmt.Sprintf("meetingstt:meeting:%s", id)
}
