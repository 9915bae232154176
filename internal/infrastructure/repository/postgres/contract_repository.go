package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/clauselens/clauselens/internal/core/domain"
)

type ContractRepository struct {
	db *sql.DB
}

func NewContractRepository(db *sql.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ContractRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS contracts (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	content_type TEXT NOT NULL,
	blob_ref TEXT NOT NULL,
	status TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	clauses JSONB NOT NULL DEFAULT '[]'::jsonb,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contracts_owner_created ON contracts(owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts(status);

CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ContractRepository) Create(ctx context.Context, record *domain.ContractRecord) error {
	clausesJSON, err := json.Marshal(record.Clauses)
	if err != nil {
		return fmt.Errorf("marshal clauses: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO contracts (
	id, owner_id, filename, content_type, blob_ref, status, summary, clauses, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		record.ID, record.OwnerID, record.Filename, record.ContentType, record.BlobRef,
		string(record.Status), record.Summary, clausesJSON, record.Error, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

const contractColumns = `id, owner_id, filename, content_type, blob_ref, status, summary, clauses, error_message, created_at, updated_at`

func (r *ContractRepository) GetByID(ctx context.Context, id, ownerID string) (*domain.ContractRecord, error) {
	// Ownership is part of the predicate: a record owned by someone else is
	// indistinguishable from a missing one.
	row := r.db.QueryRowContext(ctx, `
SELECT `+contractColumns+`
FROM contracts
WHERE id = $1 AND owner_id = $2
`, id, ownerID)
	return scanContract(row)
}

func (r *ContractRepository) GetForProcessing(ctx context.Context, id string) (*domain.ContractRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+contractColumns+`
FROM contracts
WHERE id = $1
`, id)
	return scanContract(row)
}

func (r *ContractRepository) List(ctx context.Context, ownerID string) ([]domain.ContractRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+contractColumns+`
FROM contracts
WHERE owner_id = $1
ORDER BY created_at DESC
`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	records := []domain.ContractRecord{}
	for rows.Next() {
		record, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contracts: %w", err)
	}
	return records, nil
}

func (r *ContractRepository) UpdateStatus(ctx context.Context, id string, status domain.Status, errMessage string) error {
	// The status predicate enforces the one-directional lifecycle at the
	// storage layer: a terminal row is never rewritten.
	res, err := r.db.ExecContext(ctx, `
UPDATE contracts
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1 AND status NOT IN ('completed', 'failed')
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update contract status: %w", err)
	}
	return requireRow(res, "update contract status", id)
}

func (r *ContractRepository) SaveAnalysis(ctx context.Context, id string, analysis domain.Analysis) error {
	clausesJSON, err := json.Marshal(analysis.Clauses)
	if err != nil {
		return fmt.Errorf("marshal clauses: %w", err)
	}

	// Summary and the full clause list land in one terminal write; readers
	// see either the empty pre-completion list or the final one.
	res, err := r.db.ExecContext(ctx, `
UPDATE contracts
SET status = $2, summary = $3, clauses = $4, error_message = '', updated_at = $5
WHERE id = $1 AND status NOT IN ('completed', 'failed')
`, id, string(domain.StatusCompleted), analysis.Summary, clausesJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return requireRow(res, "save analysis", id)
}

func (r *ContractRepository) UpdateClauseNote(ctx context.Context, id, ownerID, clauseID string, note []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin note tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var clausesRaw []byte
	err = tx.QueryRowContext(ctx, `
SELECT clauses
FROM contracts
WHERE id = $1 AND owner_id = $2
FOR UPDATE
`, id, ownerID).Scan(&clausesRaw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WrapError(domain.ErrContractNotFound, "update clause note", fmt.Errorf("contract %s", id))
		}
		return fmt.Errorf("load clauses: %w", err)
	}

	var clauses []domain.Clause
	if err := json.Unmarshal(clausesRaw, &clauses); err != nil {
		return fmt.Errorf("unmarshal clauses: %w", err)
	}

	found := false
	for i := range clauses {
		if clauses[i].ID == clauseID {
			clauses[i].Note = append([]byte(nil), note...)
			found = true
			break
		}
	}
	if !found {
		return domain.WrapError(domain.ErrContractNotFound, "update clause note", fmt.Errorf("clause %s", clauseID))
	}

	clausesJSON, err := json.Marshal(clauses)
	if err != nil {
		return fmt.Errorf("marshal clauses: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE contracts
SET clauses = $2, updated_at = $3
WHERE id = $1
`, id, clausesJSON, time.Now().UTC()); err != nil {
		return fmt.Errorf("store clauses: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit note tx: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (*domain.ContractRecord, error) {
	var record domain.ContractRecord
	var clausesRaw []byte
	var status string

	err := row.Scan(
		&record.ID, &record.OwnerID, &record.Filename, &record.ContentType, &record.BlobRef,
		&status, &record.Summary, &clausesRaw, &record.Error, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrContractNotFound, "get contract", err)
		}
		return nil, fmt.Errorf("scan contract: %w", err)
	}

	if err := json.Unmarshal(clausesRaw, &record.Clauses); err != nil {
		return nil, fmt.Errorf("unmarshal clauses: %w", err)
	}
	if record.Clauses == nil {
		record.Clauses = []domain.Clause{}
	}
	record.Status = domain.Status(status)
	return &record, nil
}

func requireRow(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrContractNotFound, operation, fmt.Errorf("no non-terminal contract %s", id))
	}
	return nil
}
