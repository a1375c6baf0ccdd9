package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/unclebandit/remarketing-console/internal/model"
)

// ContactRepositoryInterface defines methods used by the campaign recorder
type ContactRepositoryInterface interface {
	CountSegment(ctx context.Context, botID, segment string) (model.SegmentCount, error)
}

// ContactRepository is the concrete implementation
type ContactRepository struct {
	DB *sqlx.DB
}

// segmentStatus maps a segment selector to the contact status it covers.
// "" means every contact of the bot.
var segmentStatus = map[string]string{
	"all_contacts":        "",
	"pending_payment":     "pending",
	"active_subscribers":  "paying",
	"expired_subscribers": "expired",
}

// CountSegment counts the contacts a campaign for segment would reach and
// how many of them blocked the bot.
func (r *ContactRepository) CountSegment(ctx context.Context, botID, segment string) (model.SegmentCount, error) {
	status, ok := segmentStatus[segment]
	if !ok {
		return model.SegmentCount{}, fmt.Errorf("unknown segment %q", segment)
	}

	query := `
        SELECT
            COUNT(*) FILTER (WHERE NOT blocked) AS reachable,
            COUNT(*) FILTER (WHERE blocked)     AS blocked
        FROM contacts
        WHERE bot_id = $1
          AND ($2::text = '' OR status = $2)
    `
	var count model.SegmentCount
	if err := r.DB.GetContext(ctx, &count, query, botID, status); err != nil {
		return model.SegmentCount{}, err
	}
	return count, nil
}
