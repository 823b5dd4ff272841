package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/planweaver/planweaver/core"
	"github.com/planweaver/planweaver/planner"
)

// RedisPlanStore is a Redis-backed planner.PlanStore. Records are JSON
// values keyed by ID, with a sorted-set index scored by creation time for
// newest-first listing
type RedisPlanStore struct {
	client    *redis.Client
	namespace string
	logger    core.Logger

	now func() time.Time
}

// RedisPlanStoreOptions configures the Redis plan store
type RedisPlanStoreOptions struct {
	RedisURL  string
	Namespace string // Key namespace, e.g. "planweaver:plans"
	Logger    core.Logger
}

// NewRedisPlanStore creates a Redis-backed plan store and verifies
// connectivity
func NewRedisPlanStore(opts RedisPlanStoreOptions) (*RedisPlanStore, error) {
	if opts.RedisURL == "" {
		return nil, fmt.Errorf("redis URL is required: %w", core.ErrInvalidConfiguration)
	}
	if opts.Namespace == "" {
		opts.Namespace = "planweaver:plans"
	}
	if opts.Logger == nil {
		opts.Logger = &core.NoOpLogger{}
	}

	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", core.ErrInvalidConfiguration)
	}

	client := redis.NewClient(redisOpt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		opts.Logger.Error("Redis connection failed", map[string]interface{}{
			"operation": "redis_connect",
			"error":     err.Error(),
		})
		return nil, fmt.Errorf("failed to connect to Redis: %w", core.ErrConnectionFailed)
	}

	return &RedisPlanStore{
		client:    client,
		namespace: opts.Namespace,
		logger:    opts.Logger,
		now:       time.Now,
	}, nil
}

func (s *RedisPlanStore) recordKey(id string) string {
	return s.namespace + ":" + id
}

func (s *RedisPlanStore) indexKey() string {
	return s.namespace + ":index"
}

// Save stores a plan under a fresh UUID and indexes it by creation time
func (s *RedisPlanStore) Save(ctx context.Context, goal string, steps []planner.DayPlan) (*planner.PlanRecord, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, fmt.Errorf("%w: goal is required", core.ErrValidation)
	}

	record := &planner.PlanRecord{
		ID:        uuid.NewString(),
		Goal:      goal,
		Steps:     steps,
		CreatedAt: s.now().UTC(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encoding plan record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.recordKey(record.ID), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), &redis.Z{
		Score:  float64(record.CreatedAt.UnixNano()),
		Member: record.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("saving plan record: %w", err)
	}

	s.logger.Info("Plan saved", map[string]interface{}{
		"operation": "plan_save",
		"plan_id":   record.ID,
		"days":      len(steps),
	})

	return record, nil
}

// List returns all plans, newest first
func (s *RedisPlanStore) List(ctx context.Context) ([]*planner.PlanRecord, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing plan index: %w", err)
	}
	return s.fetchAll(ctx, ids)
}

// GetByID returns one plan or core.ErrPlanNotFound
func (s *RedisPlanStore) GetByID(ctx context.Context, id string) (*planner.PlanRecord, error) {
	data, err := s.client.Get(ctx, s.recordKey(id)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("plan %s: %w", id, core.ErrPlanNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching plan record: %w", err)
	}

	var record planner.PlanRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("decoding plan record %s: %w", id, err)
	}
	return &record, nil
}

// Delete removes a plan and its index entry, reporting whether it existed
func (s *RedisPlanStore) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := s.client.Del(ctx, s.recordKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("deleting plan record: %w", err)
	}
	if err := s.client.ZRem(ctx, s.indexKey(), id).Err(); err != nil {
		return false, fmt.Errorf("removing plan index entry: %w", err)
	}
	return removed > 0, nil
}

// SearchByGoal returns plans whose goal contains the keyword,
// case-insensitively, newest first
func (s *RedisPlanStore) SearchByGoal(ctx context.Context, keyword string) ([]*planner.PlanRecord, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(keyword))
	var matches []*planner.PlanRecord
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Goal), needle) {
			matches = append(matches, r)
		}
	}
	return matches, nil
}

// fetchAll loads records for the given IDs, skipping entries whose record
// has expired or been removed out from under the index
func (s *RedisPlanStore) fetchAll(ctx context.Context, ids []string) ([]*planner.PlanRecord, error) {
	records := make([]*planner.PlanRecord, 0, len(ids))
	for _, id := range ids {
		record, err := s.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, core.ErrPlanNotFound) {
				continue
			}
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Close releases the underlying connection pool
func (s *RedisPlanStore) Close() error {
	return s.client.Close()
}

var _ planner.PlanStore = (*RedisPlanStore)(nil)
