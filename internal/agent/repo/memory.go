package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tripsmart/server/internal/agent/model"
	errx "github.com/tripsmart/server/internal/core/error"
)

// MemoryPlanRepository keeps plans in process memory. Used when no Redis URL is configured.
type MemoryPlanRepository struct {
	store *cache.Cache
}

func NewMemoryPlanRepository(ttl time.Duration) *MemoryPlanRepository {
	exp := ttl
	if exp <= 0 {
		exp = cache.NoExpiration
	}
	cleanup := time.Hour
	if ttl > 0 && ttl < cleanup {
		cleanup = ttl
	}
	return &MemoryPlanRepository{store: cache.New(exp, cleanup)}
}

func (r *MemoryPlanRepository) Save(_ context.Context, plan *model.PlanResult) error {
	if plan == nil || plan.ID == "" {
		return fmt.Errorf("save plan: missing plan id")
	}
	r.store.SetDefault(plan.ID, plan.Clone())
	return nil
}

func (r *MemoryPlanRepository) Load(_ context.Context, planID string) (*model.PlanResult, error) {
	v, ok := r.store.Get(planID)
	if !ok {
		return nil, errx.NotFound(fmt.Errorf("plan %q not found", planID))
	}
	return v.(*model.PlanResult).Clone(), nil
}

func (r *MemoryPlanRepository) Delete(_ context.Context, planID string) error {
	r.store.Delete(planID)
	return nil
}

var _ model.PlanRepository = (*MemoryPlanRepository)(nil)
