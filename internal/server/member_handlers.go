package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/ajoledger/internal/middleware"
	"github.com/mmynk/ajoledger/internal/models"
)

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	members, err := s.members.List(r.Context(), chi.URLParam(r, "groupID"), activeOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberResponses(members))
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role := models.MemberRole(req.Role)
	if role == "" {
		role = models.RoleMember
	}

	member, err := s.members.AddMember(r.Context(), chi.URLParam(r, "groupID"), req.UserID, role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberResponse(member))
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	violations, err := s.members.Remove(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"removed":    true,
		"violations": toViolationResponses(violations),
	})
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) handleUpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	groupID, userID := chi.URLParam(r, "groupID"), chi.URLParam(r, "userID")
	if err := s.members.UpdateRole(r.Context(), groupID, userID, models.MemberRole(req.Role)); err != nil {
		writeError(w, err)
		return
	}

	member, err := s.members.Get(r.Context(), groupID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberResponse(member))
}

type inviteRequest struct {
	InviteeEmail string `json:"invitee_email"`
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	inv, err := s.members.Invite(r.Context(),
		chi.URLParam(r, "groupID"), middleware.GetUserID(r.Context()), req.InviteeEmail)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvitationResponse(inv))
}

func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	member, err := s.members.AcceptInvitation(r.Context(),
		chi.URLParam(r, "code"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberResponse(member))
}

func (s *Server) handleDeclineInvitation(w http.ResponseWriter, r *http.Request) {
	if err := s.members.DeclineInvitation(r.Context(), chi.URLParam(r, "code")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"declined": true})
}
