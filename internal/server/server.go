// Package server exposes the HTTP API: RFP and vendor management,
// proposal queries, and the mailbox refresh endpoints.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-cli/internal/extract"
	"github.com/sells-group/rfp-cli/internal/ingest"
	"github.com/sells-group/rfp-cli/internal/model"
	"github.com/sells-group/rfp-cli/internal/outbound"
	"github.com/sells-group/rfp-cli/internal/score"
	"github.com/sells-group/rfp-cli/internal/store"
)

// RFPGenerator converts natural language queries into structured RFPs.
type RFPGenerator interface {
	GenerateRFP(ctx context.Context, query string) (*extract.GeneratedRFP, error)
}

// RFPSender delivers an RFP to vendors.
type RFPSender interface {
	SendRFP(ctx context.Context, rfp *model.Rfp, vendors []model.Vendor) (*outbound.SendReport, error)
}

// Comparer evaluates all proposals for an RFP.
type Comparer interface {
	Compare(ctx context.Context, rfpID string) (*score.Result, error)
}

// JobTracker drives ingestion runs.
type JobTracker interface {
	Start(ctx context.Context) string
	Get(id string) (*model.IngestJob, bool)
	RunSync(ctx context.Context) (*ingest.Result, error)
}

// Server wires the API handlers to their backing services.
type Server struct {
	store    store.Store
	producer RFPGenerator
	sender   RFPSender
	comparer Comparer
	tracker  JobTracker
	port     int
}

// New creates a Server.
func New(st store.Store, producer RFPGenerator, sender RFPSender, comparer Comparer, tracker JobTracker, port int) *Server {
	return &Server{
		store:    st,
		producer: producer,
		sender:   sender,
		comparer: comparer,
		tracker:  tracker,
		port:     port,
	}
}

// Router builds the chi router with all API routes mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"message": "RFP Management System API"})
		})

		r.Route("/rfps", func(r chi.Router) {
			r.Post("/generate", s.handleGenerateRfp)
			r.Post("/", s.handleCreateRfp)
			r.Get("/", s.handleListRfps)
			r.Get("/{id}", s.handleGetRfp)
			r.Post("/{id}/send", s.handleSendRfp)
			r.Get("/{id}/compare", s.handleCompareRfp)
		})

		r.Route("/vendors", func(r chi.Router) {
			r.Get("/", s.handleListVendors)
			r.Post("/", s.handleCreateVendor)
			r.Get("/{id}", s.handleGetVendor)
			r.Put("/{id}", s.handleUpdateVendor)
			r.Delete("/{id}", s.handleDeleteVendor)
		})

		r.Route("/proposals", func(r chi.Router) {
			r.Get("/", s.handleListProposals)
			r.Post("/refresh", s.handleRefresh)
			r.Get("/refresh/status/{jobID}", s.handleRefreshStatus)
			r.Post("/refresh-sync", s.handleRefreshSync)
			r.Get("/{id}", s.handleGetProposal)
			r.Put("/{id}/score", s.handleScoreProposal)
		})
	})

	return r
}

// Start runs the HTTP server until the context is canceled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server: listening", zap.Int("port", s.port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
