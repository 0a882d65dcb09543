package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rfp-cli/internal/correlate"
	"github.com/sells-group/rfp-cli/internal/extract"
	"github.com/sells-group/rfp-cli/internal/ingest"
	"github.com/sells-group/rfp-cli/internal/job"
	"github.com/sells-group/rfp-cli/internal/mailbox"
	"github.com/sells-group/rfp-cli/internal/outbound"
	"github.com/sells-group/rfp-cli/internal/score"
	"github.com/sells-group/rfp-cli/internal/store"
	anthropicpkg "github.com/sells-group/rfp-cli/pkg/anthropic"
)

// appEnv holds the initialized store and services needed by the serve,
// ingest, send, and compare commands.
type appEnv struct {
	Store      store.Store
	Extract    *extract.Client
	Sender     *outbound.Sender
	Comparator *score.Comparator
	Tracker    *job.Tracker
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "rfp.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv sets up the store, the Anthropic extraction client, the mail
// sender, the comparator, and the ingestion job tracker. Callers should
// defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	extractClient := extract.New(anthropicClient, cfg.Anthropic)

	gateway := mailbox.NewIMAP(cfg.IMAP)
	resolver := correlate.NewResolver(st, st)
	orchestrator := ingest.New(gateway, resolver, extractClient, st)
	tracker := job.NewTracker(orchestrator, cfg.Ingest.MaxJobHistory)

	return &appEnv{
		Store:      st,
		Extract:    extractClient,
		Sender:     outbound.NewSender(cfg.SMTP),
		Comparator: score.NewComparator(st, extractClient),
		Tracker:    tracker,
	}, nil
}
