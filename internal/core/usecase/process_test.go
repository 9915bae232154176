package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/clauselens/clauselens/internal/core/domain"
)

type statusCall struct {
	status domain.Status
	errMsg string
}

type processRepoFake struct {
	record      *domain.ContractRecord
	getErr      error
	saveErr     error
	statusCalls []statusCall
	saved       *domain.Analysis
	savedID     string
}

func (f *processRepoFake) Create(context.Context, *domain.ContractRecord) error { return nil }
func (f *processRepoFake) GetByID(context.Context, string, string) (*domain.ContractRecord, error) {
	return nil, errors.New("not implemented")
}
func (f *processRepoFake) List(context.Context, string) ([]domain.ContractRecord, error) {
	return nil, errors.New("not implemented")
}

func (f *processRepoFake) GetForProcessing(context.Context, string) (*domain.ContractRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyRecord := *f.record
	return &copyRecord, nil
}

func (f *processRepoFake) UpdateStatus(_ context.Context, _ string, status domain.Status, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	return nil
}

func (f *processRepoFake) SaveAnalysis(_ context.Context, id string, analysis domain.Analysis) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedID = id
	f.saved = &analysis
	return nil
}

func (f *processRepoFake) UpdateClauseNote(context.Context, string, string, string, []byte) error {
	return errors.New("not implemented")
}

type processStorageFake struct {
	body string
	err  error
}

func (f *processStorageFake) Put(context.Context, string, io.Reader) error {
	return errors.New("not implemented")
}

func (f *processStorageFake) Get(context.Context, string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

type extractorFake struct {
	text string
	err  error
	got  []byte
}

func (f *extractorFake) Extract(data []byte, _ string) (string, error) {
	f.got = data
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type analyzerFake struct {
	analysis domain.Analysis
	err      error
	gotText  string
}

func (f *analyzerFake) Analyze(_ context.Context, text string) (domain.Analysis, error) {
	f.gotText = text
	if f.err != nil {
		return domain.Analysis{}, f.err
	}
	return f.analysis, nil
}

func processingRecord() *domain.ContractRecord {
	return &domain.ContractRecord{
		ID:          "c-1",
		OwnerID:     "user-1",
		ContentType: domain.ContentTypePDF,
		BlobRef:     "c-1_a.pdf",
		Status:      domain.StatusProcessing,
	}
}

func TestProcessByIDFinalizesCompleted(t *testing.T) {
	repo := &processRepoFake{record: processingRecord()}
	storage := &processStorageFake{body: "%PDF raw"}
	extractor := &extractorFake{text: "the contract text"}
	analyzer := &analyzerFake{analysis: domain.Analysis{
		Summary: "A short summary.",
		Clauses: []domain.Clause{
			{ID: "clause_1", Text: "Party A indemnifies...", RiskLevel: domain.RiskHigh, RiskReason: "broad indemnity"},
			{Text: "Term renews automatically.", RiskLevel: "severe"},
		},
	}}
	uc := NewProcessContractUseCase(repo, storage, extractor, analyzer)

	if err := uc.ProcessByID(context.Background(), "c-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if repo.saved == nil || repo.savedID != "c-1" {
		t.Fatalf("expected SaveAnalysis for c-1")
	}
	if len(repo.statusCalls) != 0 {
		t.Fatalf("record already processing, expected no extra status writes, got %v", repo.statusCalls)
	}
	if string(extractor.got) != "%PDF raw" {
		t.Fatalf("extractor received %q", extractor.got)
	}
	if analyzer.gotText != "the contract text" {
		t.Fatalf("analyzer received %q", analyzer.gotText)
	}
	if repo.saved.Clauses[1].RiskLevel != domain.RiskLow {
		t.Fatalf("unrecognized risk level must normalize to low, got %s", repo.saved.Clauses[1].RiskLevel)
	}
	if repo.saved.Clauses[1].ID != "clause_2" {
		t.Fatalf("missing clause id must get a positional id, got %q", repo.saved.Clauses[1].ID)
	}
}

func TestProcessByIDMarksFailedOnExtractError(t *testing.T) {
	repo := &processRepoFake{record: processingRecord()}
	uc := NewProcessContractUseCase(
		repo,
		&processStorageFake{body: "raw"},
		&extractorFake{err: domain.WrapError(domain.ErrExtraction, "parse pdf", errors.New("corrupt xref"))},
		&analyzerFake{},
	)

	err := uc.ProcessByID(context.Background(), "c-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	if len(repo.statusCalls) != 1 || repo.statusCalls[0].status != domain.StatusFailed {
		t.Fatalf("expected single failed status write, got %v", repo.statusCalls)
	}
	if repo.saved != nil {
		t.Fatalf("failed record must not carry analysis content")
	}
}

func TestProcessByIDMarksFailedOnAnalyzerError(t *testing.T) {
	repo := &processRepoFake{record: processingRecord()}
	uc := NewProcessContractUseCase(
		repo,
		&processStorageFake{body: "raw"},
		&extractorFake{text: "text"},
		&analyzerFake{err: domain.WrapError(domain.ErrAnalysisParse, "decode analysis", errors.New("not json"))},
	)

	err := uc.ProcessByID(context.Background(), "c-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.statusCalls) != 1 || repo.statusCalls[0].status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %v", repo.statusCalls)
	}
	if repo.statusCalls[0].errMsg == "" {
		t.Fatalf("expected diagnostic error message on failed record")
	}
}

func TestProcessByIDMarksFailedOnBlobReadError(t *testing.T) {
	repo := &processRepoFake{record: processingRecord()}
	uc := NewProcessContractUseCase(
		repo,
		&processStorageFake{err: errors.New("object missing")},
		&extractorFake{text: "text"},
		&analyzerFake{},
	)

	err := uc.ProcessByID(context.Background(), "c-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if len(repo.statusCalls) != 1 || repo.statusCalls[0].status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %v", repo.statusCalls)
	}
}

func TestProcessByIDSkipsTerminalRecord(t *testing.T) {
	record := processingRecord()
	record.Status = domain.StatusCompleted
	repo := &processRepoFake{record: record}
	storage := &processStorageFake{err: errors.New("must not be read")}
	uc := NewProcessContractUseCase(repo, storage, &extractorFake{}, &analyzerFake{})

	if err := uc.ProcessByID(context.Background(), "c-1"); err != nil {
		t.Fatalf("ProcessByID() on terminal record error = %v", err)
	}
	if len(repo.statusCalls) != 0 || repo.saved != nil {
		t.Fatalf("terminal record must not be touched")
	}
}

func TestProcessByIDMovesUploadedToProcessingFirst(t *testing.T) {
	record := processingRecord()
	record.Status = domain.StatusUploaded
	repo := &processRepoFake{record: record}
	uc := NewProcessContractUseCase(
		repo,
		&processStorageFake{body: "raw"},
		&extractorFake{text: "text"},
		&analyzerFake{analysis: domain.Analysis{Summary: "s"}},
	)

	if err := uc.ProcessByID(context.Background(), "c-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(repo.statusCalls) != 1 || repo.statusCalls[0].status != domain.StatusProcessing {
		t.Fatalf("expected uploaded -> processing transition, got %v", repo.statusCalls)
	}
}

func TestProcessByIDMarksFailedOnEmptyExtractedText(t *testing.T) {
	repo := &processRepoFake{record: processingRecord()}
	uc := NewProcessContractUseCase(
		repo,
		&processStorageFake{body: "raw"},
		&extractorFake{text: ""},
		&analyzerFake{},
	)

	err := uc.ProcessByID(context.Background(), "c-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}
