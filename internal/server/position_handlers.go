package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleAssignRandom(w http.ResponseWriter, r *http.Request) {
	positions, err := s.positions.AssignRandom(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": positions})
}

func (s *Server) handleAssignMissing(w http.ResponseWriter, r *http.Request) {
	assigned, err := s.positions.AssignMissing(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assigned": assigned})
}

type swapRequest struct {
	UserA string `json:"user_a"`
	UserB string `json:"user_b"`
}

func (s *Server) handleSwapPositions(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.positions.Swap(r.Context(), chi.URLParam(r, "groupID"), req.UserA, req.UserB); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"swapped": true})
}

func (s *Server) handleClearPositions(w http.ResponseWriter, r *http.Request) {
	if err := s.positions.Clear(r.Context(), chi.URLParam(r, "groupID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (s *Server) handleValidatePositions(w http.ResponseWriter, r *http.Request) {
	violations, err := s.positions.Validate(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":      len(violations) == 0,
		"violations": toViolationResponses(violations),
	})
}

func (s *Server) handleNextRecipient(w http.ResponseWriter, r *http.Request) {
	cycle, err := strconv.Atoi(r.URL.Query().Get("cycle"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "cycle query parameter must be an integer", Kind: "validation"})
		return
	}

	member, err := s.positions.NextRecipient(r.Context(), chi.URLParam(r, "groupID"), cycle)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberResponse(member))
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	members, err := s.positions.Schedule(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberResponses(members))
}
