package service

import (
	"context"

	"github.com/mmynk/ajoledger/internal/models"
	"github.com/mmynk/ajoledger/internal/storage"
)

// HealthReport is a group's advisory health score with the rates it was
// derived from.
type HealthReport struct {
	GroupID string

	// Score is in [0,100]. Weighted toward the payment rate, with an
	// explicit penalty for overdue obligations on top of the collection
	// shortfall they already cause.
	Score float64

	ContributionRate float64
	OverdueRate      float64
}

// SummaryService is the financial aggregator: read-only roll-ups computed
// from the ledger on demand. It owns no state, so its figures can never
// drift from the contribution and distribution tables.
type SummaryService struct {
	store storage.Store
}

// NewSummaryService creates a new SummaryService.
func NewSummaryService(store storage.Store) *SummaryService {
	return &SummaryService{store: store}
}

// GroupSummary returns the group's financial roll-up: member counts,
// contribution counts and totals by status, distribution totals and the
// overall contribution rate.
func (s *SummaryService) GroupSummary(ctx context.Context, groupID string) (*models.GroupSummary, error) {
	return s.store.GroupSummary(ctx, groupID)
}

// MemberSummary returns a user's cross-group roll-up, including the net
// position (received minus contributed).
func (s *SummaryService) MemberSummary(ctx context.Context, userID string) (*models.MemberSummary, error) {
	return s.store.MemberSummary(ctx, userID)
}

// HealthScore computes the group's advisory health score from its summary:
// the contribution rate minus a penalty of one point per percentage point
// of overdue obligations, clamped to [0,100]. A group with no cycles opened
// yet scores 100.
func (s *SummaryService) HealthScore(ctx context.Context, groupID string) (*HealthReport, error) {
	summary, err := s.store.GroupSummary(ctx, groupID)
	if err != nil {
		return nil, err
	}

	report := &HealthReport{GroupID: groupID}
	expected := summary.ActiveMembers * summary.CyclesElapsed
	if expected == 0 {
		report.Score = 100
		return report, nil
	}

	report.ContributionRate = summary.ContributionRate
	report.OverdueRate = float64(summary.OverdueContributions) / float64(expected) * 100

	score := report.ContributionRate - report.OverdueRate
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	report.Score = score
	return report, nil
}
