package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/rfp-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS rfps (
	id                     TEXT PRIMARY KEY,
	title                  TEXT NOT NULL,
	natural_language_query TEXT,
	requirements           TEXT NOT NULL DEFAULT '{}',
	budget                 REAL,
	status                 TEXT NOT NULL DEFAULT 'draft',
	created_at             DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at             DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS vendors (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	email        TEXT NOT NULL,
	contact_info TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_vendors_email_lower ON vendors (lower(email));

CREATE TABLE IF NOT EXISTS proposals (
	id               TEXT PRIMARY KEY,
	rfp_id           TEXT NOT NULL REFERENCES rfps(id),
	vendor_id        TEXT NOT NULL REFERENCES vendors(id),
	email_content    TEXT NOT NULL,
	extracted_terms  TEXT,
	score            REAL,
	summary          TEXT,
	received_at      DATETIME NOT NULL,
	email_message_id TEXT NOT NULL,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_proposals_email_message_id ON proposals (email_message_id);
CREATE INDEX IF NOT EXISTS idx_proposals_rfp_id ON proposals (rfp_id);
CREATE INDEX IF NOT EXISTS idx_proposals_vendor_id ON proposals (vendor_id);
CREATE INDEX IF NOT EXISTS idx_rfps_status ON rfps (status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// mapSQLiteUnique translates a UNIQUE constraint failure into the matching
// sentinel, keyed by the violated column or index named in the message.
func mapSQLiteUnique(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") && !strings.Contains(msg, "constraint failed") {
		return nil
	}
	switch {
	case strings.Contains(msg, "proposals.email_message_id"),
		strings.Contains(msg, "idx_proposals_email_message_id"):
		return ErrDuplicateMessage
	case strings.Contains(msg, "vendors.email"),
		strings.Contains(msg, "idx_vendors_email_lower"):
		return ErrDuplicateEmail
	}
	return nil
}

func (s *SQLiteStore) CreateRfp(ctx context.Context, rfp *model.Rfp) (*model.Rfp, error) {
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
		return nil, eris.Wrap(err, "sqlite: marshal requirements")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rfps (id, title, natural_language_query, requirements, budget, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.Title, out.NaturalLanguageQuery, string(reqJSON), out.Budget, string(out.Status), out.CreatedAt, out.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert rfp")
	}
	return &out, nil
}

func (s *SQLiteStore) GetRfp(ctx context.Context, id string) (*model.Rfp, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, natural_language_query, requirements, budget, status, created_at, updated_at FROM rfps WHERE id = ?`,
		id,
	)
	r, err := scanRfp(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: rfp %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get rfp %s", id)
	}
	return r, nil
}

func (s *SQLiteStore) ListRfps(ctx context.Context) ([]model.Rfp, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, natural_language_query, requirements, budget, status, created_at, updated_at FROM rfps ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list rfps")
	}
	defer rows.Close()

	var rfps []model.Rfp
	for rows.Next() {
		r, err := scanRfp(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan rfp")
		}
		rfps = append(rfps, *r)
	}
	return rfps, eris.Wrap(rows.Err(), "sqlite: list rfps iterate")
}

func (s *SQLiteStore) UpdateRfpStatus(ctx context.Context, id string, status model.RfpStatus) error {
	current, err := s.GetRfp(ctx, id)
	if err != nil {
		return err
	}
	if !current.Status.CanTransition(status) {
		return eris.Wrapf(ErrInvalidTransition, "sqlite: rfp %s: %s -> %s", id, current.Status, status)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE rfps SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update rfp status %s", id)
	}
	return checkRowsAffected(res, "rfp", id)
}

func (s *SQLiteStore) CreateVendor(ctx context.Context, vendor *model.Vendor) (*model.Vendor, error) {
	out := *vendor
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	out.CreatedAt = time.Now().UTC()

	var contactJSON any
	if out.ContactInfo != nil {
		b, err := json.Marshal(out.ContactInfo)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal contact info")
		}
		contactJSON = string(b)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO vendors (id, name, email, contact_info, created_at) VALUES (?, ?, ?, ?, ?)`,
		out.ID, out.Name, out.Email, contactJSON, out.CreatedAt,
	)
	if err != nil {
		if mapped := mapSQLiteUnique(err); mapped != nil {
			return nil, eris.Wrapf(mapped, "sqlite: vendor %s", out.Email)
		}
		return nil, eris.Wrap(err, "sqlite: insert vendor")
	}
	return &out, nil
}

func (s *SQLiteStore) GetVendor(ctx context.Context, id string) (*model.Vendor, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, contact_info, created_at FROM vendors WHERE id = ?`,
		id,
	)
	v, err := scanVendor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: vendor %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get vendor %s", id)
	}
	return v, nil
}

func (s *SQLiteStore) GetVendorByEmail(ctx context.Context, email string) (*model.Vendor, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, contact_info, created_at FROM vendors WHERE lower(email) = lower(?)`,
		email,
	)
	v, err := scanVendor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get vendor by email")
	}
	return v, nil
}

func (s *SQLiteStore) UpdateVendor(ctx context.Context, vendor *model.Vendor) error {
	var contactJSON any
	if vendor.ContactInfo != nil {
		b, err := json.Marshal(vendor.ContactInfo)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal contact info")
		}
		contactJSON = string(b)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE vendors SET name = ?, email = ?, contact_info = ? WHERE id = ?`,
		vendor.Name, vendor.Email, contactJSON, vendor.ID,
	)
	if err != nil {
		if mapped := mapSQLiteUnique(err); mapped != nil {
			return eris.Wrapf(mapped, "sqlite: vendor %s", vendor.Email)
		}
		return eris.Wrapf(err, "sqlite: update vendor %s", vendor.ID)
	}
	return checkRowsAffected(res, "vendor", vendor.ID)
}

func (s *SQLiteStore) DeleteVendor(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM vendors WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete vendor %s", id)
	}
	return checkRowsAffected(res, "vendor", id)
}

func (s *SQLiteStore) ListVendors(ctx context.Context) ([]model.Vendor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, contact_info, created_at FROM vendors ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list vendors")
	}
	defer rows.Close()

	var vendors []model.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan vendor")
		}
		vendors = append(vendors, *v)
	}
	return vendors, eris.Wrap(rows.Err(), "sqlite: list vendors iterate")
}

func (s *SQLiteStore) CreateProposal(ctx context.Context, p *model.Proposal) (*model.Proposal, error) {
	out := *p
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	out.CreatedAt = time.Now().UTC()
	if out.ReceivedAt.IsZero() {
		out.ReceivedAt = out.CreatedAt
	}

	var termsJSON any
	if out.ExtractedTerms != nil {
		b, err := json.Marshal(out.ExtractedTerms)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal extracted terms")
		}
		termsJSON = string(b)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO proposals (id, rfp_id, vendor_id, email_content, extracted_terms, score, summary, received_at, email_message_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.RfpID, out.VendorID, out.EmailContent, termsJSON, out.Score, out.Summary, out.ReceivedAt, out.EmailMessageID, out.CreatedAt,
	)
	if err != nil {
		if mapped := mapSQLiteUnique(err); mapped != nil {
			return nil, eris.Wrapf(mapped, "sqlite: proposal message %s", out.EmailMessageID)
		}
		return nil, eris.Wrap(err, "sqlite: insert proposal")
	}
	return &out, nil
}

func (s *SQLiteStore) GetProposal(ctx context.Context, id string) (*model.Proposal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE id = ?`,
		id,
	)
	p, err := scanProposal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: proposal %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get proposal %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) GetProposalByMessageID(ctx context.Context, messageID string) (*model.Proposal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE email_message_id = ?`,
		messageID,
	)
	p, err := scanProposal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get proposal by message id")
	}
	return p, nil
}

func (s *SQLiteStore) ListProposals(ctx context.Context, filter ProposalFilter) ([]model.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE 1=1`
	var args []any

	if filter.RfpID != "" {
		query += ` AND rfp_id = ?`
		args = append(args, filter.RfpID)
	}
	if filter.VendorID != "" {
		query += ` AND vendor_id = ?`
		args = append(args, filter.VendorID)
	}
	query += ` ORDER BY received_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list proposals")
	}
	defer rows.Close()

	var proposals []model.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan proposal")
		}
		proposals = append(proposals, *p)
	}
	return proposals, eris.Wrap(rows.Err(), "sqlite: list proposals iterate")
}

func (s *SQLiteStore) UpdateProposalScore(ctx context.Context, id string, score float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE proposals SET score = ? WHERE id = ?`,
		score, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update proposal score %s", id)
	}
	return checkRowsAffected(res, "proposal", id)
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRfp(row scannable) (*model.Rfp, error) {
	var r model.Rfp
	var reqJSON string
	var nlq sql.NullString
	var status string

	if err := row.Scan(&r.ID, &r.Title, &nlq, &reqJSON, &r.Budget, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(reqJSON), &r.Requirements); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal requirements")
	}
	r.NaturalLanguageQuery = nlq.String
	r.Status = model.RfpStatus(status)
	return &r, nil
}

func scanVendor(row scannable) (*model.Vendor, error) {
	var v model.Vendor
	var contactJSON sql.NullString

	if err := row.Scan(&v.ID, &v.Name, &v.Email, &contactJSON, &v.CreatedAt); err != nil {
		return nil, err
	}
	if contactJSON.Valid && contactJSON.String != "" {
		if err := json.Unmarshal([]byte(contactJSON.String), &v.ContactInfo); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal contact info")
		}
	}
	return &v, nil
}

func scanProposal(row scannable) (*model.Proposal, error) {
	var p model.Proposal
	var termsJSON sql.NullString

	if err := row.Scan(&p.ID, &p.RfpID, &p.VendorID, &p.EmailContent, &termsJSON, &p.Score, &p.Summary, &p.ReceivedAt, &p.EmailMessageID, &p.CreatedAt); err != nil {
		return nil, err
	}
	if termsJSON.Valid && termsJSON.String != "" {
		p.ExtractedTerms = &model.ExtractedTerms{}
		if err := json.Unmarshal([]byte(termsJSON.String), p.ExtractedTerms); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal extracted terms")
		}
	}
	return &p, nil
}
