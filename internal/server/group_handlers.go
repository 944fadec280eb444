package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/ajoledger/internal/middleware"
	"github.com/mmynk/ajoledger/internal/service"
)

type createGroupRequest struct {
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	ContributionAmount float64 `json:"contribution_amount"`
	Frequency          string  `json:"frequency"`
	StartDate          string  `json:"start_date"`
	DurationCycles     int     `json:"duration_cycles"`
	MaxMembers         int     `json:"max_members"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "start_date must be YYYY-MM-DD", Kind: "validation"})
		return
	}

	group, err := s.groups.Create(r.Context(), service.CreateGroupInput{
		Name:               req.Name,
		Description:        req.Description,
		ContributionAmount: req.ContributionAmount,
		Frequency:          req.Frequency,
		StartDate:          startDate,
		DurationCycles:     req.DurationCycles,
		MaxMembers:         req.MaxMembers,
		CreatedBy:          middleware.GetUserID(r.Context()),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupResponse(group))
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.groups.Get(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

type joinGroupRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	var req joinGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	member, err := s.members.Join(r.Context(), req.Code, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberResponse(member))
}

func (s *Server) handleActivateGroup(w http.ResponseWriter, r *http.Request) {
	s.groupTransition(w, r, s.groups.Activate)
}

func (s *Server) handlePauseGroup(w http.ResponseWriter, r *http.Request) {
	s.groupTransition(w, r, s.groups.Pause)
}

func (s *Server) handleResumeGroup(w http.ResponseWriter, r *http.Request) {
	s.groupTransition(w, r, s.groups.Resume)
}

func (s *Server) handleCancelGroup(w http.ResponseWriter, r *http.Request) {
	s.groupTransition(w, r, s.groups.Cancel)
}

func (s *Server) groupTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, groupID string) error) {
	groupID := chi.URLParam(r, "groupID")
	if err := fn(r.Context(), groupID); err != nil {
		writeError(w, err)
		return
	}

	group, err := s.groups.Get(r.Context(), groupID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}
