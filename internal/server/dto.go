package server

import (
	"time"

	"github.com/mmynk/ajoledger/internal/models"
	"github.com/mmynk/ajoledger/internal/rotation"
	"github.com/mmynk/ajoledger/internal/service"
)

// Wire representations of the domain models. Dates are ISO "2006-01-02",
// timestamps RFC 3339.

const dateLayout = "2006-01-02"

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	CreatedAt   string `json:"created_at"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   time.Unix(u.CreatedAt, 0).UTC().Format(time.RFC3339),
	}
}

type groupResponse struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Description        string  `json:"description,omitempty"`
	ContributionAmount float64 `json:"contribution_amount"`
	Frequency          string  `json:"frequency"`
	StartDate          string  `json:"start_date"`
	DurationCycles     int     `json:"duration_cycles"`
	MaxMembers         int     `json:"max_members"`
	Status             string  `json:"status"`
	CreatedBy          string  `json:"created_by"`
	InvitationCode     string  `json:"invitation_code,omitempty"`
}

func toGroupResponse(g *models.Group) groupResponse {
	return groupResponse{
		ID:                 g.ID,
		Name:               g.Name,
		Description:        g.Description,
		ContributionAmount: g.ContributionAmount,
		Frequency:          string(g.Frequency),
		StartDate:          g.StartDate.Format(dateLayout),
		DurationCycles:     g.DurationCycles,
		MaxMembers:         g.MaxMembers,
		Status:             string(g.Status),
		CreatedBy:          g.CreatedBy,
		InvitationCode:     g.InvitationCode,
	}
}

type memberResponse struct {
	ID              string `json:"id"`
	GroupID         string `json:"group_id"`
	UserID          string `json:"user_id"`
	Role            string `json:"role"`
	Status          string `json:"status"`
	PaymentPosition int    `json:"payment_position,omitempty"`
	JoinDate        string `json:"join_date"`
}

func toMemberResponse(m *models.Member) memberResponse {
	return memberResponse{
		ID:              m.ID,
		GroupID:         m.GroupID,
		UserID:          m.UserID,
		Role:            string(m.Role),
		Status:          string(m.Status),
		PaymentPosition: m.PaymentPosition,
		JoinDate:        time.Unix(m.JoinDate, 0).UTC().Format(time.RFC3339),
	}
}

func toMemberResponses(members []*models.Member) []memberResponse {
	out := make([]memberResponse, len(members))
	for i, m := range members {
		out[i] = toMemberResponse(m)
	}
	return out
}

type contributionResponse struct {
	ID            string  `json:"id"`
	GroupID       string  `json:"group_id"`
	UserID        string  `json:"user_id"`
	Cycle         int     `json:"cycle"`
	Amount        float64 `json:"amount"`
	DueDate       string  `json:"due_date"`
	PaidDate      string  `json:"paid_date,omitempty"`
	PaymentMethod string  `json:"payment_method,omitempty"`
	Status        string  `json:"status"`
}

func toContributionResponse(c *models.Contribution) contributionResponse {
	resp := contributionResponse{
		ID:            c.ID,
		GroupID:       c.GroupID,
		UserID:        c.UserID,
		Cycle:         c.Cycle,
		Amount:        c.Amount,
		DueDate:       c.DueDate.Format(dateLayout),
		PaymentMethod: c.PaymentMethod,
		Status:        string(c.Status),
	}
	if !c.PaidDate.IsZero() {
		resp.PaidDate = c.PaidDate.Format(dateLayout)
	}
	return resp
}

func toContributionResponses(contributions []*models.Contribution) []contributionResponse {
	out := make([]contributionResponse, len(contributions))
	for i, c := range contributions {
		out[i] = toContributionResponse(c)
	}
	return out
}

type distributionResponse struct {
	ID               string  `json:"id"`
	GroupID          string  `json:"group_id"`
	RecipientID      string  `json:"recipient_id"`
	Cycle            int     `json:"cycle"`
	Amount           float64 `json:"amount"`
	ExpectedAmount   float64 `json:"expected_amount"`
	DistributionDate string  `json:"distribution_date"`
	Status           string  `json:"status"`
	Notes            string  `json:"notes,omitempty"`
}

func toDistributionResponse(d *models.Distribution) distributionResponse {
	return distributionResponse{
		ID:               d.ID,
		GroupID:          d.GroupID,
		RecipientID:      d.RecipientID,
		Cycle:            d.Cycle,
		Amount:           d.Amount,
		ExpectedAmount:   d.ExpectedAmount,
		DistributionDate: d.DistributionDate.Format(dateLayout),
		Status:           string(d.Status),
		Notes:            d.Notes,
	}
}

func toDistributionResponses(distributions []*models.Distribution) []distributionResponse {
	out := make([]distributionResponse, len(distributions))
	for i, d := range distributions {
		out[i] = toDistributionResponse(d)
	}
	return out
}

type invitationResponse struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	GroupID      string `json:"group_id"`
	InviteeEmail string `json:"invitee_email"`
	Status       string `json:"status"`
	ExpiresAt    string `json:"expires_at"`
}

func toInvitationResponse(inv *models.Invitation) invitationResponse {
	return invitationResponse{
		ID:           inv.ID,
		Code:         inv.Code,
		GroupID:      inv.GroupID,
		InviteeEmail: inv.InviteeEmail,
		Status:       string(inv.Status),
		ExpiresAt:    time.Unix(inv.ExpiresAt, 0).UTC().Format(time.RFC3339),
	}
}

type violationResponse struct {
	Kind     string `json:"kind"`
	UserID   string `json:"user_id,omitempty"`
	Position int    `json:"position,omitempty"`
	Message  string `json:"message"`
}

func toViolationResponses(violations []rotation.Violation) []violationResponse {
	out := make([]violationResponse, len(violations))
	for i, v := range violations {
		out[i] = violationResponse{
			Kind:     string(v.Kind),
			UserID:   v.UserID,
			Position: v.Position,
			Message:  v.String(),
		}
	}
	return out
}

type evaluationResponse struct {
	GroupID     string  `json:"group_id"`
	Cycle       int     `json:"cycle"`
	Verdict     string  `json:"verdict"`
	RecipientID string  `json:"recipient_id,omitempty"`
	Collected   float64 `json:"collected"`
	PaidCount   int     `json:"paid_count"`
	Outstanding int     `json:"outstanding"`
	Expected    float64 `json:"expected"`
}

func toEvaluationResponse(eval *service.Evaluation) evaluationResponse {
	resp := evaluationResponse{
		GroupID:     eval.GroupID,
		Cycle:       eval.Cycle,
		Verdict:     string(eval.Verdict),
		Collected:   eval.Collected,
		PaidCount:   eval.PaidCount,
		Outstanding: eval.Outstanding,
		Expected:    eval.Expected,
	}
	if eval.Recipient != nil {
		resp.RecipientID = eval.Recipient.UserID
	}
	return resp
}

type groupSummaryResponse struct {
	GroupID                string  `json:"group_id"`
	TotalMembers           int     `json:"total_members"`
	ActiveMembers          int     `json:"active_members"`
	PendingContributions   int     `json:"pending_contributions"`
	PaidContributions      int     `json:"paid_contributions"`
	OverdueContributions   int     `json:"overdue_contributions"`
	CancelledContributions int     `json:"cancelled_contributions"`
	TotalCollected         float64 `json:"total_collected"`
	TotalPending           float64 `json:"total_pending"`
	TotalOverdue           float64 `json:"total_overdue"`
	CompletedDistributions int     `json:"completed_distributions"`
	FailedDistributions    int     `json:"failed_distributions"`
	TotalDistributed       float64 `json:"total_distributed"`
	ContributionRate       float64 `json:"contribution_rate"`
	CyclesElapsed          int     `json:"cycles_elapsed"`
}

func toGroupSummaryResponse(s *models.GroupSummary) groupSummaryResponse {
	return groupSummaryResponse{
		GroupID:                s.GroupID,
		TotalMembers:           s.TotalMembers,
		ActiveMembers:          s.ActiveMembers,
		PendingContributions:   s.PendingContributions,
		PaidContributions:      s.PaidContributions,
		OverdueContributions:   s.OverdueContributions,
		CancelledContributions: s.CancelledContributions,
		TotalCollected:         s.TotalCollected,
		TotalPending:           s.TotalPending,
		TotalOverdue:           s.TotalOverdue,
		CompletedDistributions: s.CompletedDistributions,
		FailedDistributions:    s.FailedDistributions,
		TotalDistributed:       s.TotalDistributed,
		ContributionRate:       s.ContributionRate,
		CyclesElapsed:          s.CyclesElapsed,
	}
}

type memberSummaryResponse struct {
	UserID               string  `json:"user_id"`
	GroupCount           int     `json:"group_count"`
	TotalContributions   int     `json:"total_contributions"`
	PaidContributions    int     `json:"paid_contributions"`
	OverdueContributions int     `json:"overdue_contributions"`
	PaymentRate          float64 `json:"payment_rate"`
	OverdueRate          float64 `json:"overdue_rate"`
	TotalContributed     float64 `json:"total_contributed"`
	TotalReceived        float64 `json:"total_received"`
	NetPosition          float64 `json:"net_position"`
}

func toMemberSummaryResponse(s *models.MemberSummary) memberSummaryResponse {
	return memberSummaryResponse{
		UserID:               s.UserID,
		GroupCount:           s.GroupCount,
		TotalContributions:   s.TotalContributions,
		PaidContributions:    s.PaidContributions,
		OverdueContributions: s.OverdueContributions,
		PaymentRate:          s.PaymentRate,
		OverdueRate:          s.OverdueRate,
		TotalContributed:     s.TotalContributed,
		TotalReceived:        s.TotalReceived,
		NetPosition:          s.NetPosition,
	}
}

type healthReportResponse struct {
	GroupID          string  `json:"group_id"`
	Score            float64 `json:"score"`
	ContributionRate float64 `json:"contribution_rate"`
	OverdueRate      float64 `json:"overdue_rate"`
}

func toHealthReportResponse(r *service.HealthReport) healthReportResponse {
	return healthReportResponse{
		GroupID:          r.GroupID,
		Score:            r.Score,
		ContributionRate: r.ContributionRate,
		OverdueRate:      r.OverdueRate,
	}
}
