package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis staging store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// TTL bounds how long an untouched job survives. Every write refreshes
	// it on both the meta and the row queue.
	TTL time.Duration `mapstructure:"ttl"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *RedisConfig) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.TTL == 0 {
		c.TTL = 24 * time.Hour
	}
}

// RedisStore is the Redis-backed staging store. Metadata lives in a JSON
// string key, the row queue in a list, both under the job key prefix.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis creates a staging store over a fresh Redis client.
func NewRedis(config RedisConfig) *RedisStore {
	config.ApplyDefaults()
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	return &RedisStore{client: client, ttl: config.TTL}
}

// NewRedisWithClient wraps an existing client, mainly for tests.
func NewRedisWithClient(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func metaKey(jobKey string) string {
	return "importing:job:" + jobKey + ":meta"
}

func rowsKey(jobKey string) string {
	return "importing:job:" + jobKey + ":rows"
}

// Ping verifies connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// jobTTL resolves a job's retention: the meta's override when set, the
// store-wide default otherwise.
func (s *RedisStore) jobTTL(meta *JobMeta) time.Duration {
	if meta.TTLSeconds > 0 {
		return time.Duration(meta.TTLSeconds) * time.Second
	}
	return s.ttl
}

func (s *RedisStore) writeMeta(ctx context.Context, meta *JobMeta, onlyIfAbsent bool) error {
	meta.UpdatedAt = time.Now().UTC()
	blob, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode job meta: %w", err)
	}
	ttl := s.jobTTL(meta)

	if onlyIfAbsent {
		ok, err := s.client.SetNX(ctx, metaKey(meta.JobKey), blob, ttl).Result()
		if err != nil {
			return fmt.Errorf("failed to create job %s: %w", meta.JobKey, err)
		}
		if !ok {
			return fmt.Errorf("staging job %s already exists", meta.JobKey)
		}
		return nil
	}

	if err := s.client.Set(ctx, metaKey(meta.JobKey), blob, ttl).Err(); err != nil {
		return fmt.Errorf("failed to update job %s: %w", meta.JobKey, err)
	}
	// Keep the queue alive as long as the meta.
	s.client.Expire(ctx, rowsKey(meta.JobKey), ttl)
	return nil
}

// CreateJob writes a fresh job's metadata; the key must be unused.
func (s *RedisStore) CreateJob(ctx context.Context, meta *JobMeta) error {
	if meta.JobKey == "" {
		return fmt.Errorf("staging job key must not be empty")
	}
	if meta.Status == "" {
		meta.Status = StatusPending
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	return s.writeMeta(ctx, meta, true)
}

// GetJob reads a job's metadata.
func (s *RedisStore) GetJob(ctx context.Context, jobKey string) (*JobMeta, error) {
	blob, err := s.client.Get(ctx, metaKey(jobKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job %s: %w", jobKey, err)
	}

	var meta JobMeta
	if err := json.Unmarshal(blob, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode job %s meta: %w", jobKey, err)
	}
	return &meta, nil
}

// UpdateJob rewrites a job's metadata and refreshes its TTL.
func (s *RedisStore) UpdateJob(ctx context.Context, meta *JobMeta) error {
	return s.writeMeta(ctx, meta, false)
}

// PushRows appends rows to the queue tail in one pipeline.
func (s *RedisStore) PushRows(ctx context.Context, jobKey string, rows []StagedRow) error {
	if len(rows) == 0 {
		return nil
	}

	values := make([]any, 0, len(rows))
	for _, row := range rows {
		blob, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to encode row %d: %w", row.RowNumber, err)
		}
		values = append(values, blob)
	}

	// The queue never outlives its meta, per-job TTL overrides included.
	ttl := s.ttl
	if remaining, err := s.client.TTL(ctx, metaKey(jobKey)).Result(); err == nil && remaining > 0 {
		ttl = remaining
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, rowsKey(jobKey), values...)
	pipe.Expire(ctx, rowsKey(jobKey), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push rows for job %s: %w", jobKey, err)
	}
	return nil
}

// PopRows removes and returns up to limit rows from the queue head.
func (s *RedisStore) PopRows(ctx context.Context, jobKey string, limit int) ([]StagedRow, error) {
	if limit <= 0 {
		return []StagedRow{}, nil
	}

	blobs, err := s.client.LPopCount(ctx, rowsKey(jobKey), limit).Result()
	if errors.Is(err, redis.Nil) {
		return []StagedRow{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop rows for job %s: %w", jobKey, err)
	}

	rows := make([]StagedRow, 0, len(blobs))
	for _, blob := range blobs {
		var row StagedRow
		if err := json.Unmarshal([]byte(blob), &row); err != nil {
			return nil, fmt.Errorf("failed to decode staged row for job %s: %w", jobKey, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// CountRows returns the queue length.
func (s *RedisStore) CountRows(ctx context.Context, jobKey string) (int64, error) {
	return s.client.LLen(ctx, rowsKey(jobKey)).Result()
}

// DeleteJob drops the job's metadata and queue.
func (s *RedisStore) DeleteJob(ctx context.Context, jobKey string) error {
	return s.client.Del(ctx, metaKey(jobKey), rowsKey(jobKey)).Err()
}
