package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dropaudit/internal/config"
)

// Extractor extracts text content from PDF documents. Implementations take
// the raw bytes of an uploaded document; nothing is assumed to live on disk.
type Extractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires mistral_api_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}
