package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rfp-cli/internal/model"
)

// Pool is the slice of pgxpool.Pool the store uses. pgxmock.PgxPoolIface
// satisfies it, which is how the driver is unit tested.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot ingestion-path operations.
var preparedStatements = map[string]string{
	"insert_proposal":            `INSERT INTO proposals (id, rfp_id, vendor_id, email_content, extracted_terms, score, summary, received_at, email_message_id, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
	"get_proposal_by_message_id": `SELECT id, rfp_id, vendor_id, email_content, extracted_terms, score, summary, received_at, email_message_id, created_at FROM proposals WHERE email_message_id = $1`,
	"get_vendor_by_email":        `SELECT id, name, email, contact_info, created_at FROM vendors WHERE lower(email) = lower($1)`,
	"get_rfp":                    `SELECT id, title, natural_language_query, requirements, budget, status, created_at, updated_at FROM rfps WHERE id = $1`,
	"update_proposal_score":      `UPDATE proposals SET score = $1 WHERE id = $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS rfps (
	id                     TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	title                  TEXT NOT NULL,
	natural_language_query TEXT,
	requirements           JSONB NOT NULL DEFAULT '{}'::jsonb,
	budget                 DOUBLE PRECISION,
	status                 TEXT NOT NULL DEFAULT 'draft',
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS vendors (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name         TEXT NOT NULL,
	email        TEXT NOT NULL,
	contact_info JSONB,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_vendors_email_lower ON vendors (lower(email));

CREATE TABLE IF NOT EXISTS proposals (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	rfp_id           TEXT NOT NULL REFERENCES rfps(id),
	vendor_id        TEXT NOT NULL REFERENCES vendors(id),
	email_content    TEXT NOT NULL,
	extracted_terms  JSONB,
	score            DOUBLE PRECISION,
	summary          TEXT,
	received_at      TIMESTAMPTZ NOT NULL,
	email_message_id TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_proposals_email_message_id ON proposals (email_message_id);
CREATE INDEX IF NOT EXISTS idx_proposals_rfp_id ON proposals (rfp_id);
CREATE INDEX IF NOT EXISTS idx_proposals_vendor_id ON proposals (vendor_id);
CREATE INDEX IF NOT EXISTS idx_rfps_status ON rfps (status);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// mapPgUnique translates a unique-violation error into the matching
// sentinel, keyed by the violated index name.
func mapPgUnique(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	switch pgErr.ConstraintName {
	case "idx_proposals_email_message_id":
		return ErrDuplicateMessage
	case "idx_vendors_email_lower":
		return ErrDuplicateEmail
	}
	return nil
}

func (s *PostgresStore) CreateRfp(ctx context.Context, rfp *model.Rfp) (*model.Rfp, error) {
	now := time.Now().UTC()
	out := *rfp
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	if out.Status == "" {
		out.Status = model.RfpStatusDraft
	}
	out.CreatedAt = now
	out.UpdatedAt = now

	reqJSON, err := json.Marshal(out.Requirements)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal requirements")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO rfps (id, title, natural_language_query, requirements, budget, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		out.ID, out.Title, out.NaturalLanguageQuery, reqJSON, out.Budget, string(out.Status), out.CreatedAt, out.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert rfp")
	}
	return &out, nil
}

func (s *PostgresStore) GetRfp(ctx context.Context, id string) (*model.Rfp, error) {
	var r model.Rfp
	var reqJSON []byte
	var status string

	err := s.pool.QueryRow(ctx,
		`SELECT id, title, natural_language_query, requirements, budget, status, created_at, updated_at FROM rfps WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.Title, &r.NaturalLanguageQuery, &reqJSON, &r.Budget, &status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: rfp %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get rfp %s", id)
	}

	if err := json.Unmarshal(reqJSON, &r.Requirements); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal requirements")
	}
	r.Status = model.RfpStatus(status)
	return &r, nil
}

func (s *PostgresStore) ListRfps(ctx context.Context) ([]model.Rfp, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, natural_language_query, requirements, budget, status, created_at, updated_at FROM rfps ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list rfps")
	}
	defer rows.Close()

	var rfps []model.Rfp
	for rows.Next() {
		var r model.Rfp
		var reqJSON []byte
		var status string

		if err := rows.Scan(&r.ID, &r.Title, &r.NaturalLanguageQuery, &reqJSON, &r.Budget, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan rfp")
		}
		if err := json.Unmarshal(reqJSON, &r.Requirements); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal requirements")
		}
		r.Status = model.RfpStatus(status)
		rfps = append(rfps, r)
	}
	return rfps, eris.Wrap(rows.Err(), "postgres: list rfps iterate")
}

func (s *PostgresStore) UpdateRfpStatus(ctx context.Context, id string, status model.RfpStatus) error {
	current, err := s.GetRfp(ctx, id)
	if err != nil {
		return err
	}
	if !current.Status.CanTransition(status) {
		return eris.Wrapf(ErrInvalidTransition, "postgres: rfp %s: %s -> %s", id, current.Status, status)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE rfps SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update rfp status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: rfp %s", id)
	}
	return nil
}

func (s *PostgresStore) CreateVendor(ctx context.Context, vendor *model.Vendor) (*model.Vendor, error) {
	out := *vendor
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	out.CreatedAt = time.Now().UTC()

	var contactJSON []byte
	if out.ContactInfo != nil {
		var err error
		contactJSON, err = json.Marshal(out.ContactInfo)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal contact info")
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO vendors (id, name, email, contact_info, created_at) VALUES ($1, $2, $3, $4, $5)`,
		out.ID, out.Name, out.Email, contactJSON, out.CreatedAt,
	)
	if err != nil {
		if mapped := mapPgUnique(err); mapped != nil {
			return nil, eris.Wrapf(mapped, "postgres: vendor %s", out.Email)
		}
		return nil, eris.Wrap(err, "postgres: insert vendor")
	}
	return &out, nil
}

func (s *PostgresStore) GetVendor(ctx context.Context, id string) (*model.Vendor, error) {
	v, err := s.scanVendorRow(s.pool.QueryRow(ctx,
		`SELECT id, name, email, contact_info, created_at FROM vendors WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: vendor %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get vendor %s", id)
	}
	return v, nil
}

func (s *PostgresStore) GetVendorByEmail(ctx context.Context, email string) (*model.Vendor, error) {
	v, err := s.scanVendorRow(s.pool.QueryRow(ctx,
		`SELECT id, name, email, contact_info, created_at FROM vendors WHERE lower(email) = lower($1)`,
		email,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get vendor by email")
	}
	return v, nil
}

func (s *PostgresStore) scanVendorRow(row pgx.Row) (*model.Vendor, error) {
	var v model.Vendor
	var contactJSON []byte

	if err := row.Scan(&v.ID, &v.Name, &v.Email, &contactJSON, &v.CreatedAt); err != nil {
		return nil, err
	}
	if len(contactJSON) > 0 {
		if err := json.Unmarshal(contactJSON, &v.ContactInfo); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal contact info")
		}
	}
	return &v, nil
}

func (s *PostgresStore) UpdateVendor(ctx context.Context, vendor *model.Vendor) error {
	var contactJSON []byte
	if vendor.ContactInfo != nil {
		var err error
		contactJSON, err = json.Marshal(vendor.ContactInfo)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal contact info")
		}
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE vendors SET name = $1, email = $2, contact_info = $3 WHERE id = $4`,
		vendor.Name, vendor.Email, contactJSON, vendor.ID,
	)
	if err != nil {
		if mapped := mapPgUnique(err); mapped != nil {
			return eris.Wrapf(mapped, "postgres: vendor %s", vendor.Email)
		}
		return eris.Wrapf(err, "postgres: update vendor %s", vendor.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: vendor %s", vendor.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteVendor(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM vendors WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete vendor %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: vendor %s", id)
	}
	return nil
}

func (s *PostgresStore) ListVendors(ctx context.Context) ([]model.Vendor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, email, contact_info, created_at FROM vendors ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list vendors")
	}
	defer rows.Close()

	var vendors []model.Vendor
	for rows.Next() {
		var v model.Vendor
		var contactJSON []byte
		if err := rows.Scan(&v.ID, &v.Name, &v.Email, &contactJSON, &v.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan vendor")
		}
		if len(contactJSON) > 0 {
			if err := json.Unmarshal(contactJSON, &v.ContactInfo); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal contact info")
			}
		}
		vendors = append(vendors, v)
	}
	return vendors, eris.Wrap(rows.Err(), "postgres: list vendors iterate")
}

func (s *PostgresStore) CreateProposal(ctx context.Context, p *model.Proposal) (*model.Proposal, error) {
	out := *p
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	out.CreatedAt = time.Now().UTC()
	if out.ReceivedAt.IsZero() {
		out.ReceivedAt = out.CreatedAt
	}

	var termsJSON []byte
	if out.ExtractedTerms != nil {
		var err error
		termsJSON, err = json.Marshal(out.ExtractedTerms)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal extracted terms")
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO proposals (id, rfp_id, vendor_id, email_content, extracted_terms, score, summary, received_at, email_message_id, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		out.ID, out.RfpID, out.VendorID, out.EmailContent, termsJSON, out.Score, out.Summary, out.ReceivedAt, out.EmailMessageID, out.CreatedAt,
	)
	if err != nil {
		if mapped := mapPgUnique(err); mapped != nil {
			return nil, eris.Wrapf(mapped, "postgres: proposal message %s", out.EmailMessageID)
		}
		return nil, eris.Wrap(err, "postgres: insert proposal")
	}
	return &out, nil
}

const proposalColumns = `id, rfp_id, vendor_id, email_content, extracted_terms, score, summary, received_at, email_message_id, created_at`

func (s *PostgresStore) GetProposal(ctx context.Context, id string) (*model.Proposal, error) {
	p, err := scanProposalRow(s.pool.QueryRow(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: proposal %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get proposal %s", id)
	}
	return p, nil
}

func (s *PostgresStore) GetProposalByMessageID(ctx context.Context, messageID string) (*model.Proposal, error) {
	p, err := scanProposalRow(s.pool.QueryRow(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE email_message_id = $1`,
		messageID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get proposal by message id")
	}
	return p, nil
}

func scanProposalRow(row pgx.Row) (*model.Proposal, error) {
	var p model.Proposal
	var termsJSON []byte

	if err := row.Scan(&p.ID, &p.RfpID, &p.VendorID, &p.EmailContent, &termsJSON, &p.Score, &p.Summary, &p.ReceivedAt, &p.EmailMessageID, &p.CreatedAt); err != nil {
		return nil, err
	}
	if len(termsJSON) > 0 {
		p.ExtractedTerms = &model.ExtractedTerms{}
		if err := json.Unmarshal(termsJSON, p.ExtractedTerms); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal extracted terms")
		}
	}
	return &p, nil
}

func (s *PostgresStore) ListProposals(ctx context.Context, filter ProposalFilter) ([]model.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE true`
	args := []any{}
	argIdx := 1

	if filter.RfpID != "" {
		query += fmt.Sprintf(` AND rfp_id = $%d`, argIdx)
		args = append(args, filter.RfpID)
		argIdx++
	}
	if filter.VendorID != "" {
		query += fmt.Sprintf(` AND vendor_id = $%d`, argIdx)
		args = append(args, filter.VendorID)
		argIdx++
	}
	query += ` ORDER BY received_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list proposals")
	}
	defer rows.Close()

	var proposals []model.Proposal
	for rows.Next() {
		p, err := scanProposalRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan proposal")
		}
		proposals = append(proposals, *p)
	}
	return proposals, eris.Wrap(rows.Err(), "postgres: list proposals iterate")
}

func (s *PostgresStore) UpdateProposalScore(ctx context.Context, id string, score float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE proposals SET score = $1 WHERE id = $2`,
		score, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update proposal score %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: proposal %s", id)
	}
	return nil
}
