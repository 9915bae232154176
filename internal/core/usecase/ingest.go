package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clauselens/clauselens/internal/core/domain"
	"github.com/clauselens/clauselens/internal/core/ports"
)

type IngestContractUseCase struct {
	repo           ports.ContractRepository
	storage        ports.ObjectStorage
	queue          ports.MessageQueue
	maxUploadBytes int
}

func NewIngestContractUseCase(
	repo ports.ContractRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	maxUploadBytes int,
) *IngestContractUseCase {
	return &IngestContractUseCase{
		repo:           repo,
		storage:        storage,
		queue:          queue,
		maxUploadBytes: maxUploadBytes,
	}
}

// Ingest validates the upload, writes the raw bytes durably, creates the
// record in status processing and hands the analysis off to the worker queue.
// It returns before any extraction or analysis starts; from here on the
// caller observes the outcome only by polling the record.
func (uc *IngestContractUseCase) Ingest(
	ctx context.Context,
	ownerID, filename, contentType string,
	data []byte,
) (*domain.ContractRecord, error) {
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate upload", fmt.Errorf("empty file"))
	}
	if len(data) > uc.maxUploadBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate upload",
			fmt.Errorf("file size %d exceeds limit %d", len(data), uc.maxUploadBytes))
	}
	if !domain.SupportedContentType(contentType) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate upload",
			fmt.Errorf("unsupported content type %q", contentType))
	}

	id := uuid.NewString()
	blobRef := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))

	if err := uc.storage.Put(ctx, blobRef, bytes.NewReader(data)); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "store upload", err)
	}

	now := time.Now().UTC()
	record := &domain.ContractRecord{
		ID:          id,
		OwnerID:     ownerID,
		Filename:    filename,
		ContentType: contentType,
		BlobRef:     blobRef,
		Status:      domain.StatusProcessing,
		Clauses:     []domain.Clause{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create contract record: %w", err)
	}

	if err := uc.queue.PublishContractUploaded(ctx, record.ID); err != nil {
		// The record already exists, so the failure belongs to the analysis
		// task, not the upload: finalize to failed and let the caller see it
		// through polling.
		slog.Error("publish analysis job", "contract_id", record.ID, "error", err)
		if failErr := uc.repo.UpdateStatus(ctx, record.ID, domain.StatusFailed, "analysis task could not be queued"); failErr != nil {
			slog.Error("mark contract failed after publish error", "contract_id", record.ID, "error", failErr)
		}
		record.Status = domain.StatusFailed
	}

	return record, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
