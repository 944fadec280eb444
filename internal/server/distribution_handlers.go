package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/ajoledger/internal/middleware"
	"github.com/mmynk/ajoledger/internal/models"
)

func (s *Server) handleEvaluateCycle(w http.ResponseWriter, r *http.Request) {
	cycle, ok := cycleParam(w, r)
	if !ok {
		return
	}

	eval, err := s.distributions.Evaluate(r.Context(), chi.URLParam(r, "groupID"), cycle)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEvaluationResponse(eval))
}

func (s *Server) handleExecuteDistribution(w http.ResponseWriter, r *http.Request) {
	cycle, ok := cycleParam(w, r)
	if !ok {
		return
	}

	dist, err := s.distributions.Execute(r.Context(), chi.URLParam(r, "groupID"), cycle)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDistributionResponse(dist))
}

type failDistributionRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleFailDistribution(w http.ResponseWriter, r *http.Request) {
	var req failDistributionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.distributions.MarkFailed(r.Context(), chi.URLParam(r, "distributionID"), req.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"failed": true})
}

func (s *Server) handleListGroupDistributions(w http.ResponseWriter, r *http.Request) {
	status := models.DistributionStatus(r.URL.Query().Get("status"))
	distributions, err := s.distributions.ListForGroup(r.Context(), chi.URLParam(r, "groupID"), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDistributionResponses(distributions))
}

func (s *Server) handleListUserDistributions(w http.ResponseWriter, r *http.Request) {
	distributions, err := s.distributions.ListForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDistributionResponses(distributions))
}
