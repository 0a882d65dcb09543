package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/rfp-cli/internal/model"
	"github.com/sells-group/rfp-cli/internal/score"
	"github.com/sells-group/rfp-cli/internal/store"
)

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	filter := store.ProposalFilter{
		RfpID:    r.URL.Query().Get("rfpId"),
		VendorID: r.URL.Query().Get("vendorId"),
	}

	proposals, err := s.store.ListProposals(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch proposals", err)
		return
	}
	if proposals == nil {
		proposals = []model.Proposal{}
	}
	respondData(w, http.StatusOK, proposals)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	proposal, err := s.store.GetProposal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "Proposal not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch proposal", err)
		return
	}
	respondData(w, http.StatusOK, proposal)
}

type scoreRequest struct {
	Score float64 `json:"score"`
}

func (s *Server) handleScoreProposal(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.store.UpdateProposalScore(r.Context(), id, score.Clamp(req.Score)); err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "Proposal not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to update score", err)
		return
	}

	proposal, err := s.store.GetProposal(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch proposal", err)
		return
	}
	respondData(w, http.StatusOK, proposal)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	jobID := s.tracker.Start(r.Context())

	writeJSON(w, http.StatusOK, struct {
		Success   bool   `json:"success"`
		Message   string `json:"message"`
		JobID     string `json:"jobId"`
		StatusURL string `json:"statusUrl"`
	}{true, "Refresh started in background", jobID, "/api/proposals/refresh/status/" + jobID})
}

func (s *Server) handleRefreshStatus(w http.ResponseWriter, r *http.Request) {
	j, ok := s.tracker.Get(chi.URLParam(r, "jobID"))
	if !ok {
		respondError(w, http.StatusNotFound, "Job not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool             `json:"success"`
		Job     *model.IngestJob `json:"job"`
	}{true, j})
}

func (s *Server) handleRefreshSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.tracker.RunSync(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to refresh proposals", err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Data    any    `json:"data"`
	}{true, result.Message, result})
}
