package domain

// Exactly two document formats are accepted. Anything else is rejected at
// upload time and again by the extractor as a hard failure.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

func SupportedContentType(contentType string) bool {
	return contentType == ContentTypePDF || contentType == ContentTypeDOCX
}
