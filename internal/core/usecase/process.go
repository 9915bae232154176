package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/clauselens/clauselens/internal/core/domain"
	"github.com/clauselens/clauselens/internal/core/ports"
)

type ProcessContractUseCase struct {
	repo      ports.ContractRepository
	storage   ports.ObjectStorage
	extractor ports.TextExtractor
	analyzer  ports.ContractAnalyzer
}

func NewProcessContractUseCase(
	repo ports.ContractRepository,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	analyzer ports.ContractAnalyzer,
) *ProcessContractUseCase {
	return &ProcessContractUseCase{
		repo:      repo,
		storage:   storage,
		extractor: extractor,
		analyzer:  analyzer,
	}
}

// ProcessByID runs the analysis task for one contract: read the stored bytes,
// extract text, submit to the analysis capability and finalize the record.
// Every failure ends in status failed; the worker is the single terminal
// writer for a record.
func (uc *ProcessContractUseCase) ProcessByID(ctx context.Context, contractID string) error {
	record, err := uc.repo.GetForProcessing(ctx, contractID)
	if err != nil {
		return fmt.Errorf("fetch contract by id: %w", err)
	}
	if record.Status.Terminal() {
		// Queue redelivery after a terminal write. The lifecycle is
		// one-directional, so there is nothing left to do.
		slog.Warn("skip already finalized contract", "contract_id", record.ID, "status", record.Status)
		return nil
	}
	if record.Status == domain.StatusUploaded {
		if err := uc.repo.UpdateStatus(ctx, record.ID, domain.StatusProcessing, ""); err != nil {
			return fmt.Errorf("set status=processing: %w", err)
		}
	}

	analysis, err := uc.analysisPipeline(ctx, record)
	if err != nil {
		if failErr := uc.markFailed(ctx, record.ID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveAnalysis(ctx, record.ID, analysis); err != nil {
		saveErr := fmt.Errorf("save analysis: %w", err)
		if failErr := uc.markFailed(ctx, record.ID, saveErr); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", saveErr, failErr)
		}
		return saveErr
	}
	return nil
}

func (uc *ProcessContractUseCase) analysisPipeline(ctx context.Context, record *domain.ContractRecord) (domain.Analysis, error) {
	data, err := uc.readBlob(ctx, record.BlobRef)
	if err != nil {
		return domain.Analysis{}, err
	}

	text, err := uc.extractor.Extract(data, record.ContentType)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return domain.Analysis{}, domain.WrapError(domain.ErrExtraction, "extract text", errors.New("empty extracted text"))
	}

	analysis, err := uc.analyzer.Analyze(ctx, text)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("analyze contract: %w", err)
	}

	normalizeClauses(&analysis)
	return analysis, nil
}

func (uc *ProcessContractUseCase) readBlob(ctx context.Context, blobRef string) ([]byte, error) {
	reader, err := uc.storage.Get(ctx, blobRef)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "open stored document", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "read stored document", err)
	}
	return data, nil
}

func (uc *ProcessContractUseCase) markFailed(ctx context.Context, contractID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.repo.UpdateStatus(ctx, contractID, domain.StatusFailed, processErr.Error())
}

// normalizeClauses applies the data-model defaults before the terminal write:
// unrecognized risk levels become low, absent clause ids get stable
// positional ids so user notes have an address.
func normalizeClauses(analysis *domain.Analysis) {
	if analysis.Clauses == nil {
		analysis.Clauses = []domain.Clause{}
	}
	for i := range analysis.Clauses {
		clause := &analysis.Clauses[i]
		clause.RiskLevel = domain.NormalizeRiskLevel(string(clause.RiskLevel))
		if clause.ID == "" {
			clause.ID = fmt.Sprintf("clause_%d", i+1)
		}
	}
}
