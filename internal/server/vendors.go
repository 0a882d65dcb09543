package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/rfp-cli/internal/model"
	"github.com/sells-group/rfp-cli/internal/store"
)

func (s *Server) handleListVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := s.store.ListVendors(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch vendors", err)
		return
	}
	if vendors == nil {
		vendors = []model.Vendor{}
	}
	respondData(w, http.StatusOK, vendors)
}

func (s *Server) handleGetVendor(w http.ResponseWriter, r *http.Request) {
	vendor, err := s.store.GetVendor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "Vendor not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch vendor", err)
		return
	}
	respondData(w, http.StatusOK, vendor)
}

type vendorRequest struct {
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	ContactInfo map[string]string `json:"contactInfo"`
}

func (s *Server) handleCreateVendor(w http.ResponseWriter, r *http.Request) {
	var req vendorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		respondError(w, http.StatusBadRequest, "Email is required", nil)
		return
	}

	vendor := &model.Vendor{
		Name:        name,
		Email:       email,
		ContactInfo: req.ContactInfo,
	}
	created, err := s.store.CreateVendor(r.Context(), vendor)
	if err != nil {
		if store.IsDuplicate(err) {
			respondError(w, http.StatusConflict, "A vendor with this email already exists", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to create vendor", err)
		return
	}
	respondData(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateVendor(w http.ResponseWriter, r *http.Request) {
	vendor, err := s.store.GetVendor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "Vendor not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to fetch vendor", err)
		return
	}

	var req vendorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		vendor.Name = name
	}
	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" {
		vendor.Email = email
	}
	if req.ContactInfo != nil {
		vendor.ContactInfo = req.ContactInfo
	}

	if err := s.store.UpdateVendor(r.Context(), vendor); err != nil {
		if store.IsDuplicate(err) {
			respondError(w, http.StatusConflict, "A vendor with this email already exists", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to update vendor", err)
		return
	}
	respondData(w, http.StatusOK, vendor)
}

func (s *Server) handleDeleteVendor(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteVendor(r.Context(), chi.URLParam(r, "id")); err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "Vendor not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to delete vendor", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Vendor deleted successfully"})
}
