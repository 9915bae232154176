package domain

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further status transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving to next respects the one-directional
// lifecycle uploaded → processing → {completed, failed}.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusUploaded:
		return next == StatusProcessing || next == StatusCompleted || next == StatusFailed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskUnknown RiskLevel = "unknown"
)

// NormalizeRiskLevel maps anything outside the enumerated set to RiskLow.
// The safe default is deliberate: an unrecognized level from the analysis
// capability must not fail the whole record.
func NormalizeRiskLevel(raw string) RiskLevel {
	switch RiskLevel(raw) {
	case RiskLow, RiskMedium, RiskHigh, RiskUnknown:
		return RiskLevel(raw)
	default:
		return RiskLow
	}
}

// Clause is one risk-annotated snippet of a completed analysis. Note is an
// opaque client-owned payload; the service stores and returns it verbatim.
type Clause struct {
	ID         string          `json:"id"`
	Text       string          `json:"text"`
	RiskLevel  RiskLevel       `json:"riskLevel"`
	RiskReason string          `json:"riskReason,omitempty"`
	Note       json.RawMessage `json:"note,omitempty"`
}

// Analysis is the structured result returned by the analysis capability.
type Analysis struct {
	Summary string   `json:"summary"`
	Clauses []Clause `json:"clauses"`
}

type ContractRecord struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	BlobRef     string    `json:"blob_ref"`
	Status      Status    `json:"status"`
	Summary     string    `json:"summary,omitempty"`
	Clauses     []Clause  `json:"clauses"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
