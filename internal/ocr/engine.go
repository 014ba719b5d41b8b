// Package ocr turns ad-creative images into text. The default engine shells
// out to the tesseract binary; a noop engine exists for deployments without
// OCR support.
package ocr

import "context"

// Engine extracts readable text from image bytes.
type Engine interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// Noop is an Engine that recognizes nothing. Image creatives still flow
// through the pipeline, their extracted text is just empty.
type Noop struct{}

func (Noop) ExtractText(context.Context, []byte) (string, error) { return "", nil }

// New selects the engine implementation by name.
func New(engine, binary, language string) (Engine, error) {
	switch engine {
	case "", "none":
		return Noop{}, nil
	case "tesseract":
		return NewTesseract(binary, language)
	default:
		return nil, &UnknownEngineError{Name: engine}
	}
}

// UnknownEngineError reports an engine name with no implementation.
type UnknownEngineError struct {
	Name string
}

func (e *UnknownEngineError) Error() string {
	return "unknown ocr engine: " + e.Name + " (use 'tesseract' or 'none')"
}
