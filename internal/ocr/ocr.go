// Package ocr recognizes raw text on rendered invoice page images. It is
// the fallback input for the pattern extractor when the question-answering
// model produces nothing usable.
package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-cli/internal/config"
)

// Recognizer extracts text content from page images.
type Recognizer interface {
	RecognizeText(ctx context.Context, imagePath string) (string, error)
}

// NewRecognizer creates a Recognizer based on config.
func NewRecognizer(cfg config.OCRConfig) (Recognizer, error) {
	switch cfg.Provider {
	case "tesseract", "":
		return NewTesseract(cfg.TesseractPath, cfg.Languages), nil
	case "remote":
		if cfg.Endpoint == "" {
			return nil, eris.New("ocr: remote provider requires endpoint")
		}
		return NewRemote(cfg.Endpoint), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}
