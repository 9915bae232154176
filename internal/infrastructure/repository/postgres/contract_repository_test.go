package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/clauselens/clauselens/internal/core/domain"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func contractRows(t *testing.T, record domain.ContractRecord) *sqlmock.Rows {
	t.Helper()
	clausesJSON, err := json.Marshal(record.Clauses)
	if err != nil {
		t.Fatalf("marshal clauses: %v", err)
	}
	return sqlmock.NewRows([]string{
		"id", "owner_id", "filename", "content_type", "blob_ref",
		"status", "summary", "clauses", "error_message", "created_at", "updated_at",
	}).AddRow(
		record.ID, record.OwnerID, record.Filename, record.ContentType, record.BlobRef,
		string(record.Status), record.Summary, clausesJSON, record.Error, record.CreatedAt, record.UpdatedAt,
	)
}

func TestContractRepositoryGetByIDScopesOwner(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContractRepository(db)

	now := time.Now().UTC()
	record := domain.ContractRecord{
		ID:          "c-1",
		OwnerID:     "u-1",
		Filename:    "nda.pdf",
		ContentType: domain.ContentTypePDF,
		BlobRef:     "blob-1",
		Status:      domain.StatusCompleted,
		Summary:     "mutual nda",
		Clauses: []domain.Clause{
			{ID: "clause_0", Text: "Either party may terminate.", RiskLevel: domain.RiskLow, RiskReason: "standard"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectQuery(`SELECT .+ FROM contracts\s+WHERE id = \$1 AND owner_id = \$2`).
		WithArgs("c-1", "u-1").
		WillReturnRows(contractRows(t, record))

	got, err := repo.GetByID(context.Background(), "c-1", "u-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if len(got.Clauses) != 1 || got.Clauses[0].ID != "clause_0" {
		t.Errorf("clauses not restored: %+v", got.Clauses)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestContractRepositoryGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContractRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM contracts`).
		WithArgs("missing", "u-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing", "u-1")
	if !domain.IsKind(err, domain.ErrContractNotFound) {
		t.Fatalf("err = %v, want contract not found kind", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestContractRepositoryListReturnsEmptySlice(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContractRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM contracts\s+WHERE owner_id = \$1\s+ORDER BY created_at DESC`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_id", "filename", "content_type", "blob_ref",
			"status", "summary", "clauses", "error_message", "created_at", "updated_at",
		}))

	records, err := repo.List(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if records == nil {
		t.Fatal("List returned nil, want empty slice")
	}
	if len(records) != 0 {
		t.Errorf("len = %d, want 0", len(records))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestContractRepositoryUpdateStatusSkipsTerminalRows(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContractRepository(db)

	mock.ExpectExec(`UPDATE contracts\s+SET status = \$2, error_message = \$3, updated_at = \$4\s+WHERE id = \$1 AND status NOT IN`).
		WithArgs("c-1", string(domain.StatusFailed), "boom", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "c-1", domain.StatusFailed, "boom")
	if !domain.IsKind(err, domain.ErrContractNotFound) {
		t.Fatalf("err = %v, want contract not found kind on zero rows", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestContractRepositorySaveAnalysisWritesTerminalRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContractRepository(db)

	analysis := domain.Analysis{
		Summary: "service agreement",
		Clauses: []domain.Clause{
			{ID: "clause_0", Text: "Auto-renews yearly.", RiskLevel: domain.RiskMedium, RiskReason: "renewal trap"},
		},
	}
	clausesJSON, err := json.Marshal(analysis.Clauses)
	if err != nil {
		t.Fatalf("marshal clauses: %v", err)
	}

	mock.ExpectExec(`UPDATE contracts\s+SET status = \$2, summary = \$3, clauses = \$4, error_message = '', updated_at = \$5`).
		WithArgs("c-1", string(domain.StatusCompleted), "service agreement", clausesJSON, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveAnalysis(context.Background(), "c-1", analysis); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestContractRepositoryUpdateClauseNote(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContractRepository(db)

	stored := []domain.Clause{
		{ID: "clause_0", Text: "Confidentiality survives termination.", RiskLevel: domain.RiskLow},
		{ID: "clause_1", Text: "Unlimited liability.", RiskLevel: domain.RiskHigh},
	}
	storedJSON, err := json.Marshal(stored)
	if err != nil {
		t.Fatalf("marshal clauses: %v", err)
	}

	note := json.RawMessage(`{"text":"flag for legal"}`)
	updated := append([]domain.Clause(nil), stored...)
	updated[1].Note = note
	updatedJSON, err := json.Marshal(updated)
	if err != nil {
		t.Fatalf("marshal clauses: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT clauses\s+FROM contracts\s+WHERE id = \$1 AND owner_id = \$2\s+FOR UPDATE`).
		WithArgs("c-1", "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"clauses"}).AddRow(storedJSON))
	mock.ExpectExec(`UPDATE contracts\s+SET clauses = \$2, updated_at = \$3\s+WHERE id = \$1`).
		WithArgs("c-1", updatedJSON, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.UpdateClauseNote(context.Background(), "c-1", "u-1", "clause_1", note); err != nil {
		t.Fatalf("UpdateClauseNote: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestContractRepositoryUpdateClauseNoteUnknownClause(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContractRepository(db)

	storedJSON, err := json.Marshal([]domain.Clause{{ID: "clause_0", Text: "x"}})
	if err != nil {
		t.Fatalf("marshal clauses: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT clauses\s+FROM contracts`).
		WithArgs("c-1", "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"clauses"}).AddRow(storedJSON))
	mock.ExpectRollback()

	err = repo.UpdateClauseNote(context.Background(), "c-1", "u-1", "clause_9", []byte(`"note"`))
	if !domain.IsKind(err, domain.ErrContractNotFound) {
		t.Fatalf("err = %v, want contract not found kind", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
