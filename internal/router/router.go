package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"freelance-market/internal/config"
	"freelance-market/internal/handler"
	"freelance-market/internal/middleware"
	"freelance-market/internal/model"
)

const (
	downloadMaxDuration = 10 * time.Minute
	downloadIdleTimeout = time.Minute
)

type Handlers struct {
	Auth        *handler.AuthHandler
	Project     *handler.ProjectHandler
	Bid         *handler.BidHandler
	Deliverable *handler.DeliverableHandler
	Audit       *handler.AuditHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.RealIP(cfg.TrustedProxies))
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	auth := authMiddleware.RequireAuth
	can := authMiddleware.RequireCapability
	owner := authMiddleware.RequireProjectOwner("id")

	r.Route("/api", func(api chi.Router) {
		// Deliverable downloads stream, so they sit outside the buffering timeout.
		api.With(auth, can(model.OpViewDeliverable), owner, middleware.StreamingTimeout(downloadMaxDuration, downloadIdleTimeout)).
			Get("/deliverable/projects/{id}/deliverables/file", h.Deliverable.Download)

		api.Group(func(api chi.Router) {
			api.Use(middleware.Timeout(cfg.RequestTimeout))

			api.Route("/auth", func(r chi.Router) {
				r.Post("/register", h.Auth.Register)
				r.Post("/login", h.Auth.Login)
				r.Post("/token", h.Auth.Refresh)
				r.Post("/logout", h.Auth.Logout)
				r.With(auth).Get("/me", h.Auth.Me)
			})

			api.Route("/project/projects", func(r chi.Router) {
				r.Use(auth)
				r.With(can(model.OpCreateProject)).Post("/", h.Project.Create)
				r.Get("/", h.Project.ListMine)
				r.With(can(model.OpListOpenProjects)).Get("/open", h.Project.ListOpen)
				r.With(can(model.OpListAssigned)).Get("/my", h.Project.ListAssigned)
				r.Get("/{id}", h.Project.Get)
				r.With(can(model.OpAssignSeller), owner).Put("/{id}", h.Project.AssignSeller)
				r.Put("/{id}/status", h.Project.UpdateStatus)
				r.With(can(model.OpDeleteProject), owner).Delete("/{id}", h.Project.Delete)
				r.With(can(model.OpViewHistory), owner).Get("/{id}/history", h.Audit.ProjectHistory)
			})

			api.Route("/bid", func(r chi.Router) {
				r.Use(auth)
				r.With(can(model.OpPlaceBid)).Post("/bids", h.Bid.Place)
				r.With(can(model.OpListOwnBids)).Get("/bids/mine", h.Bid.Mine)
				r.With(can(model.OpListProjectBids), owner).Get("/projects/{id}/bids", h.Bid.ListForProject)
				r.With(authMiddleware.RequireRoles(model.RoleSeller)).Get("/projects/{id}/hasBid", h.Bid.HasBid)
				r.With(can(model.OpViewBidDetails)).Get("/projects/{id}/details", h.Bid.ProjectDetails)
			})

			api.Route("/deliverable/projects/{id}/deliverables", func(r chi.Router) {
				r.Use(auth)
				r.With(can(model.OpUploadDeliverable)).Post("/", h.Deliverable.Upload)
				r.With(can(model.OpViewDeliverable), owner).Get("/", h.Deliverable.View)
			})
		})
	})

	return r
}
