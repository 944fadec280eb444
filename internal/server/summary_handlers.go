package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/ajoledger/internal/middleware"
)

func (s *Server) handleGroupSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.summaries.GroupSummary(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupSummaryResponse(summary))
}

func (s *Server) handleGroupHealth(w http.ResponseWriter, r *http.Request) {
	report, err := s.summaries.HealthScore(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHealthReportResponse(report))
}

func (s *Server) handleMemberSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.summaries.MemberSummary(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberSummaryResponse(summary))
}
