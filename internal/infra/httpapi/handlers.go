// internal/infra/httpapi/handlers.go
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"outreach_automation/internal/app"
	"outreach_automation/internal/domain/campaign"
	idb "outreach_automation/internal/infra/database"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleRunAll(w http.ResponseWriter, r *http.Request) {
	result, err := s.schedulerSvc.EvaluateAll(r.Context(), time.Now().UTC())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRunOne(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	result, err := s.schedulerSvc.EvaluateOne(r.Context(), time.Now().UTC(), campaignID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	next := campaign.Status(req.Status)
	if !next.IsValid() {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status " + req.Status})
		return
	}

	c, err := s.campaignSvc.ChangeStatus(r.Context(), chi.URLParam(r, "campaignID"), next)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := s.campaignSvc.ListDrafts(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, drafts)
}

func (s *Server) handleApproveDraft(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	draftID := chi.URLParam(r, "draftID")
	if err := s.campaignSvc.ApproveDraft(r.Context(), campaignID, draftID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

type enrollLeadsRequest struct {
	Emails []string `json:"emails"`
}

func (s *Server) handleEnrollLeads(w http.ResponseWriter, r *http.Request) {
	var req enrollLeadsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	enrolled, err := s.leadSvc.Enroll(r.Context(), chi.URLParam(r, "campaignID"), req.Emails)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, enrolled)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	stats, err := s.campaignSvc.Overview(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Errorf("http: failed to encode response: %v", err)
	}
}

// writeError maps domain errors onto status codes. Anything unrecognized is a
// 500 with a generic message; the underlying cause only goes to the log.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var validationErr *campaign.ValidationError
	switch {
	case errors.Is(err, idb.ErrCampaignNotFound),
		errors.Is(err, idb.ErrLeadNotFound),
		errors.Is(err, idb.ErrCampaignLeadNotFound),
		errors.Is(err, idb.ErrDraftNotFound):
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, campaign.ErrTerminalState):
		s.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, campaign.ErrInvalidTransition),
		errors.Is(err, app.ErrCampaignNotActive),
		errors.Is(err, app.ErrNoEmails),
		errors.As(err, &validationErr):
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		s.logger.Errorf("http: request failed: %v", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
