package planner

import "context"

// PlanStore is the persistence port for generated plans. Implementations
// live in the storage package; the pipeline depends only on this interface
type PlanStore interface {
	// Save persists a plan and returns the stored record with its ID
	Save(ctx context.Context, goal string, steps []DayPlan) (*PlanRecord, error)

	// List returns all stored plans, newest first
	List(ctx context.Context) ([]*PlanRecord, error)

	// GetByID returns one plan. Missing IDs yield core.ErrPlanNotFound
	GetByID(ctx context.Context, id string) (*PlanRecord, error)

	// Delete removes a plan, reporting whether it existed
	Delete(ctx context.Context, id string) (bool, error)

	// SearchByGoal returns plans whose goal contains the keyword,
	// case-insensitively, newest first
	SearchByGoal(ctx context.Context, keyword string) ([]*PlanRecord, error)
}
