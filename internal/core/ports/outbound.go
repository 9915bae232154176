package ports

import (
	"context"
	"io"

	"github.com/clauselens/clauselens/internal/core/domain"
)

// ContractRepository persists and reads contract record state.
type ContractRepository interface {
	Create(ctx context.Context, record *domain.ContractRecord) error
	GetByID(ctx context.Context, id, ownerID string) (*domain.ContractRecord, error)
	List(ctx context.Context, ownerID string) ([]domain.ContractRecord, error)
	// GetForProcessing reads a record without ownership scoping. Worker only.
	GetForProcessing(ctx context.Context, id string) (*domain.ContractRecord, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status, errMessage string) error
	// SaveAnalysis finalizes a record to completed with summary and the full
	// clause list in a single write.
	SaveAnalysis(ctx context.Context, id string, analysis domain.Analysis) error
	UpdateClauseNote(ctx context.Context, id, ownerID, clauseID string, note []byte) error
}

// UserRepository persists account records.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// ObjectStorage stores raw uploaded documents.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue hands contract ids from the api to the analysis workers.
type MessageQueue interface {
	PublishContractUploaded(ctx context.Context, contractID string) error
	SubscribeContractUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor maps raw document bytes to plain text, dispatched by content type.
type TextExtractor interface {
	Extract(data []byte, contentType string) (string, error)
}

// ContractAnalyzer submits extracted text to the external analysis capability.
type ContractAnalyzer interface {
	Analyze(ctx context.Context, text string) (domain.Analysis, error)
}
