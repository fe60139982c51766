package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tripsmart/server/internal/agent/model"
	errx "github.com/tripsmart/server/internal/core/error"
	logx "github.com/tripsmart/server/pkg/logger"
)

type RedisPlanRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisPlanRepository(rdb redis.Cmdable, ttl time.Duration) *RedisPlanRepository {
	return &RedisPlanRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisPlanRepository) planKey(planID string) string {
	return fmt.Sprintf("plan:%s", planID)
}

func (r *RedisPlanRepository) Save(ctx context.Context, plan *model.PlanResult) error {
	if plan == nil || plan.ID == "" {
		return fmt.Errorf("save plan: missing plan id")
	}
	b, err := json.Marshal(plan)
	if err != nil {
		logx.Error().Err(err).Str("planID", plan.ID).Msg("failed to marshal plan")
		return fmt.Errorf("marshal plan: %w", err)
	}
	key := r.planKey(plan.ID)

	// ttl 0 keeps the key until deleted
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to store plan in redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisPlanRepository) Load(ctx context.Context, planID string) (*model.PlanResult, error) {
	key := r.planKey(planID)

	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to load plan from redis")
		}
		return nil, errx.WrapRedis(err)
	}

	var plan model.PlanResult
	if err := json.Unmarshal(raw, &plan); err != nil {
		logx.Error().Err(err).Str("planID", planID).Msg("failed to unmarshal plan")
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	return &plan, nil
}

func (r *RedisPlanRepository) Delete(ctx context.Context, planID string) error {
	key := r.planKey(planID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete plan from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.PlanRepository = (*RedisPlanRepository)(nil)
