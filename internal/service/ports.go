package service

import (
	"context"

	"github.com/unclebandit/remarketing-console/internal/model"
)

// PlanCatalog lists the plans a bot can offer.
type PlanCatalog interface {
	ListPlans(ctx context.Context, botID string) ([]model.Plan, error)
}

// Dispatcher hands a submission to the campaign dispatch collaborator.
type Dispatcher interface {
	SubmitCampaign(ctx context.Context, sub *model.Submission) (*model.DispatchResult, error)
}

// HistoryStore holds previously submitted campaigns.
type HistoryStore interface {
	ListCampaigns(ctx context.Context, botID string, page, pageSize int) (*model.CampaignPage, error)
	DeleteCampaign(ctx context.Context, id string) error
}

// HistoryResetter is notified after a successful full send.
type HistoryResetter interface {
	ResetToFirstPage(ctx context.Context) error
}
