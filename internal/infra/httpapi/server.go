// internal/infra/httpapi/server.go
package httpapi

import (
	"net/http"
	"time"

	"outreach_automation/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Server exposes the automation HTTP surface: manual scheduler triggers,
// lifecycle transitions, draft review and lead enrollment.
type Server struct {
	schedulerSvc *app.SchedulerService
	campaignSvc  *app.CampaignService
	leadSvc      *app.LeadService
	logger       *logrus.Logger
}

func NewServer(
	schedulerSvc *app.SchedulerService,
	campaignSvc *app.CampaignService,
	leadSvc *app.LeadService,
	logger *logrus.Logger,
) *Server {
	return &Server{
		schedulerSvc: schedulerSvc,
		campaignSvc:  campaignSvc,
		leadSvc:      leadSvc,
		logger:       logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/stats/overview", s.handleOverview)

	r.Route("/automation", func(r chi.Router) {
		r.Post("/run", s.handleRunAll)
		r.Post("/campaigns/{campaignID}/run", s.handleRunOne)
	})

	r.Route("/campaigns/{campaignID}", func(r chi.Router) {
		r.Patch("/status", s.handleChangeStatus)
		r.Get("/drafts", s.handleListDrafts)
		r.Post("/drafts/{draftID}/approve", s.handleApproveDraft)
		r.Post("/leads", s.handleEnrollLeads)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
