package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/unclebandit/remarketing-console/internal/model"
)

// PlanRepository reads the plans a bot sells. Plan CRUD lives elsewhere;
// the console only needs the current catalog.
type PlanRepository struct {
	DB *sqlx.DB
}

func (r *PlanRepository) ListPlans(ctx context.Context, botID string) ([]model.Plan, error) {
	plans := []model.Plan{}
	query := `
        SELECT id, display_name, current_price
        FROM plans
        WHERE bot_id = $1 AND active
        ORDER BY current_price, id
    `
	if err := r.DB.SelectContext(ctx, &plans, query, botID); err != nil {
		return nil, err
	}
	return plans, nil
}
