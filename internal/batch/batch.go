// Package batch orchestrates normalization and extraction over a bounded
// set of uploaded files with per-file failure isolation.
package batch

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dropaudit/internal/extract"
	"github.com/sells-group/dropaudit/internal/normalize"
)

// DefaultMaxFiles caps how many files one batch may carry.
const DefaultMaxFiles = 100

// Sentinel validation errors, mapped to 400 at the HTTP boundary.
var (
	ErrNoFiles      = eris.New("batch: no files supplied")
	ErrTooManyFiles = eris.New("batch: too many files")
)

// File is one uploaded document. Err carries a read failure from the
// transport layer; such files are logged and skipped rather than failing
// the batch.
type File struct {
	Name string
	Data []byte
	Err  error
}

// Result aggregates a batch run. Addresses is the union of all per-file
// sets, deduplicated in first-seen order across the whole batch.
type Result struct {
	Addresses          []string `json:"addresses"`
	FilesProcessed     int      `json:"filesProcessed"`
	FilesWithAddresses int      `json:"filesWithAddresses"`
}

// Processor runs batches of files through the normalizer and extractor.
type Processor struct {
	normalizer *normalize.Normalizer
	maxFiles   int
}

// NewProcessor creates a Processor. maxFiles <= 0 selects DefaultMaxFiles.
func NewProcessor(n *normalize.Normalizer, maxFiles int) *Processor {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	return &Processor{normalizer: n, maxFiles: maxFiles}
}

// Process normalizes and extracts each file independently. A file that
// failed to read is skipped; it does not abort the batch and does not count
// as processed. Files are handled sequentially so memory stays bounded and
// failure attribution stays simple.
func (p *Processor) Process(ctx context.Context, files []File) (*Result, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if len(files) > p.maxFiles {
		return nil, eris.Wrapf(ErrTooManyFiles, "%d files exceeds limit of %d", len(files), p.maxFiles)
	}

	res := &Result{}
	seen := make(map[string]struct{})

	for _, f := range files {
		if f.Err != nil {
			zap.L().Warn("batch: skipping unreadable file",
				zap.String("file", f.Name),
				zap.Error(f.Err),
			)
			continue
		}

		text := p.normalizer.Normalize(ctx, f.Name, f.Data)
		addrs := extract.Addresses(text)

		res.FilesProcessed++
		if len(addrs) > 0 {
			res.FilesWithAddresses++
		}

		for _, a := range addrs {
			if _, dup := seen[a]; dup {
				continue
			}
			seen[a] = struct{}{}
			res.Addresses = append(res.Addresses, a)
		}
	}

	return res, nil
}
