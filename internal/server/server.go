// Package server exposes the ledger over HTTP: a chi router serving JSON
// under /api/v1 with JWT auth, request logging, rate-limited mutations and
// Prometheus metrics.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/ajoledger/internal/auth"
	"github.com/mmynk/ajoledger/internal/ledger"
	"github.com/mmynk/ajoledger/internal/middleware"
	"github.com/mmynk/ajoledger/internal/models"
	"github.com/mmynk/ajoledger/internal/service"
)

// Server wires the ledger services into an HTTP handler.
type Server struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager

	groups        *service.GroupService
	members       *service.MembershipService
	positions     *service.PositionService
	contributions *service.ContributionService
	distributions *service.DistributionService
	summaries     *service.SummaryService

	rateLimitRequests int
	rateLimitWindow   time.Duration
}

// Options carries the server's dependencies.
type Options struct {
	Authenticator auth.Authenticator
	JWTManager    *auth.JWTManager

	Groups        *service.GroupService
	Members       *service.MembershipService
	Positions     *service.PositionService
	Contributions *service.ContributionService
	Distributions *service.DistributionService
	Summaries     *service.SummaryService

	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// New creates a Server.
func New(opts Options) *Server {
	return &Server{
		authenticator:     opts.Authenticator,
		jwtManager:        opts.JWTManager,
		groups:            opts.Groups,
		members:           opts.Members,
		positions:         opts.Positions,
		contributions:     opts.Contributions,
		distributions:     opts.Distributions,
		summaries:         opts.Summaries,
		rateLimitRequests: opts.RateLimitRequests,
		rateLimitWindow:   opts.RateLimitWindow,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.rateLimitRequests > 0 {
			r.Use(httprate.LimitByIP(s.rateLimitRequests, s.rateLimitWindow))
		}

		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.jwtManager))

			r.Get("/auth/me", s.handleCurrentUser)

			r.Route("/groups", func(r chi.Router) {
				r.Post("/", s.handleCreateGroup)
				r.Post("/join", s.handleJoinGroup)

				r.Route("/{groupID}", func(r chi.Router) {
					r.Get("/", s.handleGetGroup)
					r.Get("/members", s.handleListMembers)
					r.Get("/positions/validate", s.handleValidatePositions)
					r.Get("/positions/next-recipient", s.handleNextRecipient)
					r.Get("/schedule", s.handleSchedule)
					r.Get("/cycles/{cycle}/evaluate", s.handleEvaluateCycle)
					r.Get("/contributions", s.handleListGroupContributions)
					r.Get("/distributions", s.handleListGroupDistributions)
					r.Get("/summary", s.handleGroupSummary)
					r.Get("/health", s.handleGroupHealth)

					// Mutations are reserved for the group's active admins.
					r.Group(func(r chi.Router) {
						r.Use(s.requireGroupAdmin)

						r.Post("/activate", s.handleActivateGroup)
						r.Post("/pause", s.handlePauseGroup)
						r.Post("/resume", s.handleResumeGroup)
						r.Post("/cancel", s.handleCancelGroup)

						r.Post("/members", s.handleAddMember)
						r.Delete("/members/{userID}", s.handleRemoveMember)
						r.Put("/members/{userID}/role", s.handleUpdateMemberRole)

						r.Post("/positions/assign-random", s.handleAssignRandom)
						r.Post("/positions/assign-missing", s.handleAssignMissing)
						r.Post("/positions/swap", s.handleSwapPositions)
						r.Post("/positions/clear", s.handleClearPositions)

						r.Post("/cycles/{cycle}/open", s.handleOpenCycle)
						r.Post("/cycles/{cycle}/distribute", s.handleExecuteDistribution)

						r.Post("/contributions/overdue", s.handleMarkOverdue)

						r.Post("/invitations", s.handleInvite)
					})
				})
			})

			r.Post("/contributions/{contributionID}/pay", s.handleMarkPaid)
			r.Post("/contributions/{contributionID}/cancel", s.handleCancelContribution)

			r.Post("/distributions/{distributionID}/fail", s.handleFailDistribution)

			r.Post("/invitations/{code}/accept", s.handleAcceptInvitation)
			r.Post("/invitations/{code}/decline", s.handleDeclineInvitation)

			r.Get("/users/me/summary", s.handleMemberSummary)
			r.Get("/users/me/contributions", s.handleListUserContributions)
			r.Get("/users/me/distributions", s.handleListUserDistributions)
		})
	})

	return r
}

// requireGroupAdmin admits only active admins of the route's group.
// Outsiders get the same 403 as non-admin members, so group membership is
// not probeable by ID.
func (s *Server) requireGroupAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		member, err := s.members.Get(r.Context(), chi.URLParam(r, "groupID"), middleware.GetUserID(r.Context()))
		if err != nil && !errors.Is(err, ledger.ErrNotFound) {
			writeError(w, err)
			return
		}
		if err != nil || member.Role != models.RoleAdmin || member.Status != models.MemberActive {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "admin membership in this group required", Kind: "forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
