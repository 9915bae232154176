package ports

import (
	"context"

	"github.com/clauselens/clauselens/internal/core/domain"
)

// ContractIngestor is the inbound contract for upload orchestration.
type ContractIngestor interface {
	Ingest(ctx context.Context, ownerID, filename, contentType string, data []byte) (*domain.ContractRecord, error)
}

// ContractReader is the inbound read model for contract records.
type ContractReader interface {
	GetByID(ctx context.Context, id, ownerID string) (*domain.ContractRecord, error)
	List(ctx context.Context, ownerID string) ([]domain.ContractRecord, error)
}

// ContractProcessor is the inbound contract for the asynchronous analysis task.
type ContractProcessor interface {
	ProcessByID(ctx context.Context, contractID string) error
}

// ClauseNoteWriter replaces the opaque note payload on one clause.
type ClauseNoteWriter interface {
	UpdateNote(ctx context.Context, contractID, ownerID, clauseID string, note []byte) error
}
