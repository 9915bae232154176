// Package extractor turns stored document bytes into plain text.
//
// Dispatch is strictly on the declared content type; exactly two formats are
// supported. Output length is unbounded here; truncation for the prompt is
// the analyzer's concern.
package extractor

import (
	"fmt"

	"github.com/clauselens/clauselens/internal/core/domain"
)

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(data []byte, contentType string) (string, error) {
	switch contentType {
	case domain.ContentTypePDF:
		text, err := extractPDF(data)
		if err != nil {
			return "", domain.WrapError(domain.ErrExtraction, "parse pdf", err)
		}
		return text, nil
	case domain.ContentTypeDOCX:
		text, err := extractDOCX(data)
		if err != nil {
			return "", domain.WrapError(domain.ErrExtraction, "parse docx", err)
		}
		return text, nil
	default:
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract text",
			fmt.Errorf("content type %q", contentType))
	}
}
