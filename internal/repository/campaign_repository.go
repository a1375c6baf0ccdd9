package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	appErrors "github.com/unclebandit/remarketing-console/internal/errors"
	"github.com/unclebandit/remarketing-console/internal/model"
)

// CreatedAtLayout is how record timestamps are shown in history.
const CreatedAtLayout = "2006-01-02 15:04"

type CampaignRepositoryInterface interface {
	ListCampaigns(ctx context.Context, botID string, offset, limit int) ([]*model.CampaignRecord, int, error)
	Delete(ctx context.Context, id string) error

	// Record stores the campaign produced by a submission. Recording the same
	// submission key twice returns the existing record.
	Record(ctx context.Context, key uuid.UUID, rec *model.CampaignRecord) (*model.CampaignRecord, error)
}

type CampaignRepository struct {
	DB *sqlx.DB
}

type campaignRow struct {
	ID              string    `db:"id"`
	BotID           string    `db:"bot_id"`
	Target          string    `db:"target"`
	RecipientCount  int       `db:"recipient_count"`
	BlockedCount    int       `db:"blocked_count"`
	ContentSnapshot string    `db:"content_snapshot"`
	CreatedAt       time.Time `db:"created_at"`
}

func (r campaignRow) toRecord() *model.CampaignRecord {
	return &model.CampaignRecord{
		ID:              r.ID,
		BotID:           r.BotID,
		CreatedAt:       r.CreatedAt.Format(CreatedAtLayout),
		Target:          model.Target(r.Target),
		RecipientCount:  r.RecipientCount,
		BlockedCount:    r.BlockedCount,
		ContentSnapshot: r.ContentSnapshot,
	}
}

const campaignColumns = `id, bot_id, target, recipient_count, blocked_count, content_snapshot, created_at`

func (r *CampaignRepository) ListCampaigns(ctx context.Context, botID string, offset, limit int) ([]*model.CampaignRecord, int, error) {
	rows := []campaignRow{}
	query := `SELECT ` + campaignColumns + ` FROM campaign_records
        WHERE bot_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3`
	if err := r.DB.SelectContext(ctx, &rows, query, botID, limit, offset); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.GetContext(ctx, &total, `SELECT COUNT(*) FROM campaign_records WHERE bot_id = $1`, botID); err != nil {
		return nil, 0, err
	}

	records := make([]*model.CampaignRecord, len(rows))
	for i, row := range rows {
		records[i] = row.toRecord()
	}
	return records, total, nil
}

func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM campaign_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewCampaignNotFound(id)
	}
	return nil
}

// Idempotent insert
func (r *CampaignRepository) Record(ctx context.Context, key uuid.UUID, rec *model.CampaignRecord) (*model.CampaignRecord, error) {
	var row campaignRow
	query := `
        INSERT INTO campaign_records (submission_key, bot_id, target, recipient_count, blocked_count, content_snapshot, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        ON CONFLICT (submission_key) DO NOTHING
        RETURNING ` + campaignColumns
	err := r.DB.GetContext(ctx, &row, query,
		key, rec.BotID, string(rec.Target), rec.RecipientCount, rec.BlockedCount, rec.ContentSnapshot)
	if err == nil {
		return row.toRecord(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// Already recorded by an earlier delivery of the same submission.
	err = r.DB.GetContext(ctx, &row, `SELECT `+campaignColumns+` FROM campaign_records WHERE submission_key = $1`, key)
	if err != nil {
		return nil, err
	}
	return row.toRecord(), nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
