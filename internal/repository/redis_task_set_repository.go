package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jengzang/taskrank-backend-go/internal/models"
)

// DefaultRedisKey is where the current task set lives when no key is configured
const DefaultRedisKey = "taskrank:current_tasks"

// RedisOptions configures the Redis task set store
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}
	log.Printf("Connected to Redis: %s", opts.Addr)
	return rdb, nil
}

// RedisTaskSetRepository stores the current task set as one JSON document
type RedisTaskSetRepository struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewRedisTaskSetRepository creates a Redis backed task set repository. A
// zero ttl keeps the set until the next replace or clear.
func NewRedisTaskSetRepository(rdb *redis.Client, key string, ttl time.Duration) *RedisTaskSetRepository {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisTaskSetRepository{rdb: rdb, key: key, ttl: ttl}
}

// Current returns the stored tasks, or an empty set if none are stored
func (r *RedisTaskSetRepository) Current(ctx context.Context) ([]models.Task, error) {
	payload, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []models.Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read task set: %w", err)
	}
	return decodeTaskSet(payload)
}

// Replace swaps the stored set for tasks
func (r *RedisTaskSetRepository) Replace(ctx context.Context, tasks []models.Task) error {
	payload, err := encodeTaskSet(tasks)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, r.key, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store task set: %w", err)
	}
	return nil
}

// Clear removes the stored set
func (r *RedisTaskSetRepository) Clear(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to clear task set: %w", err)
	}
	return nil
}

func encodeTaskSet(tasks []models.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []models.Task{}
	}
	payload, err := json.Marshal(tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task set: %w", err)
	}
	return payload, nil
}

func decodeTaskSet(payload []byte) ([]models.Task, error) {
	var tasks []models.Task
	if err := json.Unmarshal(payload, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode task set: %w", err)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	for i := range tasks {
		if tasks[i].Dependencies == nil {
			tasks[i].Dependencies = []string{}
		}
	}
	return tasks, nil
}
