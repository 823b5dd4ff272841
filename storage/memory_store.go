// Package storage provides implementations of the plan persistence port:
// an in-memory store for tests and single-process use, and a Redis-backed
// store for durable persistence.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/planweaver/planweaver/core"
	"github.com/planweaver/planweaver/planner"
)

// MemoryPlanStore is an in-memory planner.PlanStore, safe for concurrent use
type MemoryPlanStore struct {
	mu      sync.RWMutex
	records map[string]*planner.PlanRecord

	now func() time.Time
}

// NewMemoryPlanStore creates an empty in-memory store
func NewMemoryPlanStore() *MemoryPlanStore {
	return &MemoryPlanStore{
		records: make(map[string]*planner.PlanRecord),
		now:     time.Now,
	}
}

// Save stores a plan under a fresh UUID
func (s *MemoryPlanStore) Save(ctx context.Context, goal string, steps []planner.DayPlan) (*planner.PlanRecord, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, fmt.Errorf("%w: goal is required", core.ErrValidation)
	}

	record := &planner.PlanRecord{
		ID:        uuid.NewString(),
		Goal:      goal,
		Steps:     append([]planner.DayPlan(nil), steps...),
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	s.records[record.ID] = record
	s.mu.Unlock()

	return record, nil
}

// List returns all plans, newest first
func (s *MemoryPlanStore) List(ctx context.Context) ([]*planner.PlanRecord, error) {
	s.mu.RLock()
	records := make([]*planner.PlanRecord, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r)
	}
	s.mu.RUnlock()

	sortNewestFirst(records)
	return records, nil
}

// GetByID returns one plan or core.ErrPlanNotFound
func (s *MemoryPlanStore) GetByID(ctx context.Context, id string) (*planner.PlanRecord, error) {
	s.mu.RLock()
	record, ok := s.records[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("plan %s: %w", id, core.ErrPlanNotFound)
	}
	return record, nil
}

// Delete removes a plan, reporting whether it existed
func (s *MemoryPlanStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return false, nil
	}
	delete(s.records, id)
	return true, nil
}

// SearchByGoal returns plans whose goal contains the keyword, case-insensitively
func (s *MemoryPlanStore) SearchByGoal(ctx context.Context, keyword string) ([]*planner.PlanRecord, error) {
	needle := strings.ToLower(strings.TrimSpace(keyword))

	s.mu.RLock()
	var matches []*planner.PlanRecord
	for _, r := range s.records {
		if strings.Contains(strings.ToLower(r.Goal), needle) {
			matches = append(matches, r)
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(matches)
	return matches, nil
}

func sortNewestFirst(records []*planner.PlanRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

var _ planner.PlanStore = (*MemoryPlanStore)(nil)
