package llm

import (
	"context"

	"github.com/shora051/Digital-Faxing-Simulation/internal/classify"
)

// ExtractRequest carries one document to the reasoning service. Exactly
// one of Text or Document holds the content: Document is the raw file
// for document-direct runs, Text is recognized text otherwise.
type ExtractRequest struct {
	Text     string
	Document []byte
	Template classify.Template
	Filename string
}

// FieldExtractor is the interface the pipeline depends on. The raw
// response bytes are returned alongside the parsed fields so that
// callers can log or persist what the service actually said, parse
// failures included.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (map[string]any, []byte, error)
}
