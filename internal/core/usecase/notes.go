package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/clauselens/clauselens/internal/core/domain"
	"github.com/clauselens/clauselens/internal/core/ports"
)

// ClauseNoteUseCase replaces the opaque note payload on one clause. It never
// touches status, summary or any other clause.
type ClauseNoteUseCase struct {
	repo ports.ContractRepository
}

func NewClauseNoteUseCase(repo ports.ContractRepository) *ClauseNoteUseCase {
	return &ClauseNoteUseCase{repo: repo}
}

func (uc *ClauseNoteUseCase) UpdateNote(ctx context.Context, contractID, ownerID, clauseID string, note []byte) error {
	if clauseID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "update clause note", errors.New("clause id is required"))
	}
	// The payload is opaque to the service but is embedded into the stored
	// clause list, so it must at least be well-formed JSON.
	if len(note) > 0 && !json.Valid(note) {
		return domain.WrapError(domain.ErrInvalidInput, "update clause note", errors.New("note payload is not valid json"))
	}
	if err := uc.repo.UpdateClauseNote(ctx, contractID, ownerID, clauseID, note); err != nil {
		return fmt.Errorf("update clause note: %w", err)
	}
	return nil
}
