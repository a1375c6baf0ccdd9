package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/unclebandit/remarketing-console/internal/model"
)

const keyPrefixPlans = "console:plans:"

// PlanSource is anything that can list a bot's plans.
type PlanSource interface {
	ListPlans(ctx context.Context, botID string) ([]model.Plan, error)
}

// PlanCache keeps catalog snapshots in Redis. Cache failures are logged and
// fall through to the source.
type PlanCache struct {
	Source PlanSource
	Redis  *redis.Client
	TTL    time.Duration
}

func (c *PlanCache) ListPlans(ctx context.Context, botID string) ([]model.Plan, error) {
	if c.Redis == nil {
		return c.Source.ListPlans(ctx, botID)
	}

	key := keyPrefixPlans + botID
	raw, err := c.Redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var plans []model.Plan
		if err := json.Unmarshal(raw, &plans); err == nil {
			return plans, nil
		}
		log.Warn().Str("bot_id", botID).Msg("Discarding unreadable cached plan catalog")
	case !errors.Is(err, redis.Nil):
		log.Warn().Err(err).Str("bot_id", botID).Msg("Plan cache read failed")
	}

	plans, err := c.Source.ListPlans(ctx, botID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(plans); err == nil {
		if err := c.Redis.Set(ctx, key, raw, c.TTL).Err(); err != nil {
			log.Warn().Err(err).Str("bot_id", botID).Msg("Plan cache write failed")
		}
	}
	return plans, nil
}
