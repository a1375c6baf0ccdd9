package service_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/google/uuid"

	"github.com/unclebandit/remarketing-console/internal/model"
	"github.com/unclebandit/remarketing-console/internal/service"
)

// Mock Campaign Repository for pagination
type MockCampaignPaginationRepo struct {
	lastOffset, lastLimit int
	deleted               string
	err                   error
}

func (m *MockCampaignPaginationRepo) ListCampaigns(ctx context.Context, botID string, offset, limit int) ([]*model.CampaignRecord, int, error) {
	m.lastOffset, m.lastLimit = offset, limit
	if m.err != nil {
		return nil, 0, m.err
	}

	var all []*model.CampaignRecord
	for i := 5; i >= 1; i-- {
		all = append(all, &model.CampaignRecord{ID: strconv.Itoa(i), BotID: botID})
	}

	start := offset
	end := offset + limit
	if start >= len(all) {
		return []*model.CampaignRecord{}, len(all), nil
	}
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

// Stub implementations to satisfy the interface
func (m *MockCampaignPaginationRepo) Delete(ctx context.Context, id string) error {
	m.deleted = id
	return nil
}

func (m *MockCampaignPaginationRepo) Record(ctx context.Context, key uuid.UUID, rec *model.CampaignRecord) (*model.CampaignRecord, error) {
	return rec, nil
}

func TestPagination(t *testing.T) {
	repo := &MockCampaignPaginationRepo{}
	svc := &service.CampaignService{CampaignRepo: repo}
	ctx := context.Background()

	pageSize := 2
	page1, _ := svc.ListCampaigns(ctx, "bot-1", 1, pageSize)
	page2, _ := svc.ListCampaigns(ctx, "bot-1", 2, pageSize)

	if page1.Total != 5 || page1.TotalPages != 3 {
		t.Errorf("expected 5 records over 3 pages, got %d over %d", page1.Total, page1.TotalPages)
	}
	if len(page1.Items) != 2 || len(page2.Items) != 2 {
		t.Fatalf("expected full pages, got %d and %d", len(page1.Items), len(page2.Items))
	}

	// Newest first, no overlap
	if page1.Items[0].ID <= page1.Items[1].ID {
		t.Errorf("expected descending order in page 1")
	}
	if page1.Items[1].ID == page2.Items[0].ID {
		t.Errorf("duplicate entry between pages: %v", page2.Items[0].ID)
	}

	page3, _ := svc.ListCampaigns(ctx, "bot-1", 3, pageSize)
	if len(page3.Items) != 1 {
		t.Errorf("expected last page to have 1 item, got %d", len(page3.Items))
	}
}

func TestPaginationBounds(t *testing.T) {
	repo := &MockCampaignPaginationRepo{}
	svc := &service.CampaignService{CampaignRepo: repo}
	ctx := context.Background()

	svc.ListCampaigns(ctx, "bot-1", 0, 0)
	if repo.lastOffset != 0 || repo.lastLimit != model.DefaultPageSize {
		t.Errorf("expected defaults, got offset=%d limit=%d", repo.lastOffset, repo.lastLimit)
	}

	svc.ListCampaigns(ctx, "bot-1", 2, 500)
	if repo.lastLimit != 100 || repo.lastOffset != 100 {
		t.Errorf("expected page size capped at 100, got offset=%d limit=%d", repo.lastOffset, repo.lastLimit)
	}

	if err := svc.DeleteCampaign(ctx, "7"); err != nil || repo.deleted != "7" {
		t.Errorf("expected delete to reach the repository, got %v %q", err, repo.deleted)
	}

	repo.err = errors.New("db down")
	if _, err := svc.ListCampaigns(ctx, "bot-1", 1, 10); err == nil {
		t.Errorf("expected repository error to propagate")
	}
}
