package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-cli/internal/model"
	"github.com/sells-group/rfp-cli/internal/store"
)

type generateRfpRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleGenerateRfp(w http.ResponseWriter, r *http.Request) {
	var req generateRfpRequest
	if !decodeBody(w, r, &req) {
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		respondError(w, http.StatusBadRequest, "Query is required and must be a non-empty string", nil)
		return
	}

	generated, err := s.producer.GenerateRFP(r.Context(), query)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate structured RFP", err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success       bool   `json:"success"`
		Data          any    `json:"data"`
		OriginalQuery string `json:"originalQuery"`
	}{true, generated, query})
}

type createRfpRequest struct {
	Title                string              `json:"title"`
	NaturalLanguageQuery string              `json:"naturalLanguageQuery"`
	StructuredData       *model.Requirements `json:"structuredData"`
	Budget               *float64            `json:"budget"`
	Status               string              `json:"status"`
}

func (s *Server) handleCreateRfp(w http.ResponseWriter, r *http.Request) {
	var req createRfpRequest
	if !decodeBody(w, r, &req) {
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		respondError(w, http.StatusBadRequest, "Title is required", nil)
		return
	}

	rfp := &model.Rfp{
		Title:                title,
		NaturalLanguageQuery: req.NaturalLanguageQuery,
		Budget:               req.Budget,
		Status:               model.RfpStatus(req.Status),
	}
	if req.StructuredData != nil {
		rfp.Requirements = *req.StructuredData
	}
	if rfp.Budget == nil {
		rfp.Budget = rfp.Requirements.Budget
	}

	created, err := s.store.CreateRfp(r.Context(), rfp)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create RFP", err)
		return
	}
	respondData(w, http.StatusCreated, created)
}

func (s *Server) handleListRfps(w http.ResponseWriter, r *http.Request) {
	rfps, err := s.store.ListRfps(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch RFPs", err)
		return
	}
	if rfps == nil {
		rfps = []model.Rfp{}
	}
	respondData(w, http.StatusOK, rfps)
}

func (s *Server) handleGetRfp(w http.ResponseWriter, r *http.Request) {
	rfp, err := s.store.GetRfp(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "RFP not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch RFP", err)
		return
	}
	respondData(w, http.StatusOK, rfp)
}

type sendRfpRequest struct {
	VendorIDs []string `json:"vendorIds"`
}

func (s *Server) handleSendRfp(w http.ResponseWriter, r *http.Request) {
	var req sendRfpRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.VendorIDs) == 0 {
		respondError(w, http.StatusBadRequest, "vendorIds is required and must be a non-empty array", nil)
		return
	}

	rfp, err := s.store.GetRfp(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "RFP not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch RFP", err)
		return
	}

	var vendors []model.Vendor
	for _, id := range req.VendorIDs {
		v, err := s.store.GetVendor(r.Context(), id)
		if err != nil {
			if store.IsNotFound(err) {
				continue
			}
			respondError(w, http.StatusInternalServerError, "Failed to fetch vendors", err)
			return
		}
		vendors = append(vendors, *v)
	}
	if len(vendors) == 0 {
		respondError(w, http.StatusNotFound, "No valid vendors found", nil)
		return
	}

	report, err := s.sender.SendRFP(r.Context(), rfp, vendors)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to send RFP", err)
		return
	}

	if report.TotalSent > 0 {
		if err := s.store.UpdateRfpStatus(r.Context(), rfp.ID, model.RfpStatusSent); err != nil {
			// A later lifecycle stage already holds; sending again does
			// not move the status backwards.
			if !errors.Is(err, store.ErrInvalidTransition) {
				zap.L().Warn("server: update rfp status after send",
					zap.String("rfp_id", rfp.ID),
					zap.Error(err),
				)
			}
		}
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Results any    `json:"results"`
	}{true, fmt.Sprintf("RFP sent to %d vendor(s)", report.TotalSent), report})
}

func (s *Server) handleCompareRfp(w http.ResponseWriter, r *http.Request) {
	result, err := s.comparer.Compare(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "RFP not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to compare proposals", err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success    bool   `json:"success"`
		Rfp        any    `json:"rfp"`
		Proposals  any    `json:"proposals"`
		Comparison any    `json:"comparison"`
		Message    string `json:"message,omitempty"`
	}{true, result.Rfp, result.Proposals, result.Comparison, result.Message})
}
