package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisAddress = "localhost:6379"
	DefaultRedisKey     = "hr-interviewer:interview_results"

	maxUpdateAttempts = 5
)

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// Key is the hash holding all records, keyed by record id.
	Key string `mapstructure:"key"`
}

type hashGetter interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

// Redis stores records as JSON values of a single redis hash.
type Redis struct {
	client *redis.Client
	key    string
	// beforeCommit runs between the read and the write of Update.
	beforeCommit func()
}

// OpenRedis connects to redis and verifies the connection.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		cfg.Address = DefaultRedisAddress
	}
	if strings.TrimSpace(cfg.Key) == "" {
		cfg.Key = DefaultRedisKey
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}

	return &Redis{client: client, key: cfg.Key}, nil
}

func (s *Redis) Create(ctx context.Context, r Record) (string, error) {
	r, err := prepare(r)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}

	if err := s.client.HSet(ctx, s.key, r.ID, data).Err(); err != nil {
		return "", fmt.Errorf("store record: %w", err)
	}

	return r.ID, nil
}

func (s *Redis) Get(ctx context.Context, id string) (*Record, error) {
	return s.get(ctx, s.client, id)
}

func (s *Redis) List(ctx context.Context) ([]Record, error) {
	values, err := s.client.HVals(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	records := make([]Record, 0, len(values))
	for _, value := range values {
		var r Record
		if err := json.Unmarshal([]byte(value), &r); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, r)
	}
	sortRecords(records)

	return records, nil
}

// Update applies the patch inside an optimistic transaction on the hash.
func (s *Redis) Update(ctx context.Context, id string, p Patch) (*Record, error) {
	var updated *Record

	txf := func(tx *redis.Tx) error {
		r, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}

		p.Apply(r)
		r.UpdatedAt = now()

		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}

		if s.beforeCommit != nil {
			s.beforeCommit()
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.key, id, data)
			return nil
		})
		if err != nil {
			return err
		}

		updated = r
		return nil
	}

	for range maxUpdateAttempts {
		err := s.client.Watch(ctx, txf, s.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}

	return nil, fmt.Errorf("update record %s: too many concurrent modifications", id)
}

func (s *Redis) Close() error { return s.client.Close() }

func (s *Redis) get(ctx context.Context, c hashGetter, id string) (*Record, error) {
	value, err := c.HGet(ctx, s.key, id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}

	var r Record
	if err := json.Unmarshal([]byte(value), &r); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}

	return &r, nil
}
