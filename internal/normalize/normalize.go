// Package normalize converts heterogeneous uploaded documents into plain
// text for address extraction. Normalization is best-effort: a document that
// cannot be decoded yields empty text and a log line, never an error, so one
// bad file cannot abort a batch.
package normalize

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/dropaudit/internal/ocr"
)

// Format identifies how a document's bytes should be turned into text.
type Format int

const (
	FormatText Format = iota
	FormatCSV
	FormatJSON
	FormatXLSX
	FormatXLS
	FormatPDF
	FormatUnknown
)

// DetectFormat maps a filename extension to a Format. Unknown extensions
// fall back to FormatUnknown, which is normalized as verbatim UTF-8 text.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return FormatText
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	case ".xlsx":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	case ".pdf":
		return FormatPDF
	default:
		return FormatUnknown
	}
}

// Normalizer turns raw documents into plain text.
type Normalizer struct {
	pdf ocr.Extractor
}

// New creates a Normalizer. pdf may be nil, in which case PDF documents
// normalize to empty text.
func New(pdf ocr.Extractor) *Normalizer {
	return &Normalizer{pdf: pdf}
}

// Normalize converts a document to plain text, dispatching on the filename
// extension. It never fails; decode errors are logged and yield "".
func (n *Normalizer) Normalize(ctx context.Context, filename string, data []byte) string {
	switch DetectFormat(filename) {
	case FormatPDF:
		if n.pdf == nil {
			zap.L().Warn("normalize: no pdf extractor configured", zap.String("file", filename))
			return ""
		}
		text, err := n.pdf.ExtractText(ctx, data)
		if err != nil {
			zap.L().Warn("normalize: pdf extraction failed", zap.String("file", filename), zap.Error(err))
			return ""
		}
		return text

	case FormatXLSX, FormatXLS:
		text, err := sheetText(data)
		if err != nil {
			zap.L().Warn("normalize: spreadsheet decode failed", zap.String("file", filename), zap.Error(err))
			return ""
		}
		return text

	case FormatJSON:
		return jsonText(data)

	default:
		// csv, txt, and anything unrecognized: the bytes are the text.
		return string(data)
	}
}
