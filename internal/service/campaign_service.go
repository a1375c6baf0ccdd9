// internal/service/campaign_service.go
package service

import (
	"context"

	"github.com/unclebandit/remarketing-console/internal/model"
	"github.com/unclebandit/remarketing-console/internal/repository"
)

// CampaignService serves campaign history out of the local database. It
// satisfies HistoryStore for the local backend mode.
type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, botID string, page, pageSize int) (*model.CampaignPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = model.DefaultPageSize
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(ctx, botID, offset, pageSize)
	if err != nil {
		return nil, err
	}

	records := make([]model.CampaignRecord, len(ptrs))
	for i, c := range ptrs {
		records[i] = *c
	}

	return &model.CampaignPage{
		Items:      records,
		Total:      total,
		TotalPages: model.TotalPagesFor(total, pageSize),
	}, nil
}

// DeleteCampaign permanently removes a record.
func (s *CampaignService) DeleteCampaign(ctx context.Context, id string) error {
	return s.CampaignRepo.Delete(ctx, id)
}

var _ HistoryStore = (*CampaignService)(nil)
