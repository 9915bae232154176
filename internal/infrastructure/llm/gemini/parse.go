package gemini

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/clauselens/clauselens/internal/core/domain"
)

// FallbackSummary replaces an absent summary field. Partial structured
// success is preferred over failing the whole analysis.
const FallbackSummary = "No summary available"

// stripFences removes Markdown code-fence markers the model sometimes wraps
// around the payload despite instructions. Required normalization, not a
// nicety.
func stripFences(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

func decodeAnalysis(raw string) (domain.Analysis, error) {
	cleaned := stripFences(raw)

	var analysis domain.Analysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		slog.Error("analysis response is not valid json", "raw", cleaned)
		return domain.Analysis{}, domain.WrapError(domain.ErrAnalysisParse, "decode analysis", err)
	}

	if analysis.Summary == "" {
		analysis.Summary = FallbackSummary
	}
	if analysis.Clauses == nil {
		analysis.Clauses = []domain.Clause{}
	}
	return analysis, nil
}
