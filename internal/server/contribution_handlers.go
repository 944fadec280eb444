package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/ajoledger/internal/middleware"
	"github.com/mmynk/ajoledger/internal/models"
)

func (s *Server) handleOpenCycle(w http.ResponseWriter, r *http.Request) {
	cycle, ok := cycleParam(w, r)
	if !ok {
		return
	}

	created, err := s.contributions.OpenCycle(r.Context(), chi.URLParam(r, "groupID"), cycle)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": created})
}

type markPaidRequest struct {
	PaidDate      string `json:"paid_date"`
	PaymentMethod string `json:"payment_method"`
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	var req markPaidRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var paidDate time.Time
	if req.PaidDate != "" {
		var err error
		if paidDate, err = time.Parse(dateLayout, req.PaidDate); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "paid_date must be YYYY-MM-DD", Kind: "validation"})
			return
		}
	}

	contribution, err := s.contributions.MarkPaid(r.Context(),
		chi.URLParam(r, "contributionID"), paidDate, req.PaymentMethod)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContributionResponse(contribution))
}

func (s *Server) handleCancelContribution(w http.ResponseWriter, r *http.Request) {
	if err := s.contributions.Cancel(r.Context(), chi.URLParam(r, "contributionID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

func (s *Server) handleMarkOverdue(w http.ResponseWriter, r *http.Request) {
	swept, err := s.contributions.MarkOverdue(r.Context(), chi.URLParam(r, "groupID"), time.Time{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"marked_overdue": swept})
}

func (s *Server) handleListGroupContributions(w http.ResponseWriter, r *http.Request) {
	var cycle int
	if raw := r.URL.Query().Get("cycle"); raw != "" {
		var err error
		if cycle, err = strconv.Atoi(raw); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "cycle query parameter must be an integer", Kind: "validation"})
			return
		}
	}
	status := models.ContributionStatus(r.URL.Query().Get("status"))

	contributions, err := s.contributions.ListForGroup(r.Context(), chi.URLParam(r, "groupID"), cycle, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContributionResponses(contributions))
}

func (s *Server) handleListUserContributions(w http.ResponseWriter, r *http.Request) {
	contributions, err := s.contributions.ListForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContributionResponses(contributions))
}

func cycleParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	cycle, err := strconv.Atoi(chi.URLParam(r, "cycle"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "cycle must be an integer", Kind: "validation"})
		return 0, false
	}
	return cycle, true
}
