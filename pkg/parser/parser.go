// Package parser matches a log file against a recipe, splitting lines into
// fixed-size chunks processed by a bounded worker pool when beneficial.
// Per-line failures are collected, never fatal; only file-level problems
// return an error.
package parser

import (
	"runtime"
	"strings"
	"sync"

	"github.com/m-mizutani/logsherpa/internal"
	"github.com/m-mizutani/logsherpa/pkg/models"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultChunkSize is the number of lines per worker chunk; files
	// shorter than one chunk are parsed sequentially.
	DefaultChunkSize = 10000

	maxReportedFailures = 10
	maxFailureLineWidth = 100
)

var logger = internal.Logger

// Options controls the parallel execution of one parse call. The zero
// value enables the worker pool with default sizing.
type Options struct {
	// Sequential disables the worker pool.
	Sequential bool
	// Workers bounds the pool; 0 auto-sizes from CPU count and chunk count.
	Workers int
	// ChunkSize is lines per chunk; 0 uses DefaultChunkSize.
	ChunkSize int
}

// Result is the merged outcome of one parse call.
type Result struct {
	Records  []models.ParsedRecord
	Failures []models.FailureEntry
	Stats    models.ParseStats
}

type chunkResult struct {
	records  []models.ParsedRecord
	failures []models.FailureEntry
	blanks   int
}

// Parse reads the whole input (gzip or plain), tags every line with its
// 1-based ordinal, and matches each non-blank line against the recipe.
// Records keep chunk-submission order, which equals file order.
func Parse(inputFile string, recipe *models.Recipe, opts Options) (*Result, error) {
	m, err := newMatcher(recipe)
	if err != nil {
		return nil, err
	}

	lines, err := ReadLines(inputFile, 0)
	if err != nil {
		return nil, err
	}
	total := len(lines)

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var results []chunkResult
	if opts.Sequential || total < chunkSize {
		logger.WithFields(logrus.Fields{
			"input": inputFile,
			"lines": total,
		}).Debug("Sequential parse")
		results = []chunkResult{parseChunk(models.Chunk(lines), m)}
	} else {
		chunks := models.SplitChunks(lines, chunkSize)
		workers := poolSize(opts.Workers, total, chunkSize, len(chunks))
		logger.WithFields(logrus.Fields{
			"input":   inputFile,
			"lines":   total,
			"chunks":  len(chunks),
			"workers": workers,
		}).Debug("Parallel parse")

		results = runPool(chunks, m, workers)
	}

	res := &Result{Stats: models.ParseStats{TotalLines: total}}
	for _, cr := range results {
		res.Records = append(res.Records, cr.records...)
		res.Failures = append(res.Failures, cr.failures...)
		res.Stats.Blank += cr.blanks
	}
	res.Stats.Success = len(res.Records)
	res.Stats.Failed = len(res.Failures)

	reportFailures(res.Failures)
	logger.WithFields(logrus.Fields{
		"parsed": res.Stats.Success,
		"failed": res.Stats.Failed,
		"blank":  res.Stats.Blank,
	}).Info("Parse completed")

	return res, nil
}

// poolSize bounds the worker pool by CPU count and chunk count.
func poolSize(requested, total, chunkSize, chunkCount int) int {
	workers := requested
	if workers <= 0 {
		workers = runtime.NumCPU()
		if n := total / chunkSize; n < workers {
			workers = n
		}
	}
	if workers > chunkCount {
		workers = chunkCount
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// runPool fans chunk indices out to the workers. Each worker writes only
// its own result slots, so the merge needs no further synchronization
// beyond the final join.
func runPool(chunks []models.Chunk, m *matcher, workers int) []chunkResult {
	results := make([]chunkResult, len(chunks))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = parseChunk(chunks[idx], m)
			}
		}()
	}

	for idx := range chunks {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return results
}

// parseChunk is a pure function of an immutable chunk and matcher. Order
// is preserved within a chunk; each record keeps its original line number
// under models.LineNumColumn.
func parseChunk(chunk models.Chunk, m *matcher) chunkResult {
	var cr chunkResult
	for _, line := range chunk {
		trimmed := strings.TrimSpace(line.Raw)
		if trimmed == "" {
			cr.blanks++
			continue
		}

		if record, ok := m.parseLine(trimmed); ok {
			record[models.LineNumColumn] = line.Num
			cr.records = append(cr.records, record)
		} else {
			cr.failures = append(cr.failures, models.FailureEntry{
				LineNum: line.Num,
				Raw:     strings.TrimRight(line.Raw, "\r\n"),
			})
		}
	}
	return cr
}

// reportFailures surfaces the first few failing lines and counts the rest.
func reportFailures(failures []models.FailureEntry) {
	if len(failures) == 0 {
		return
	}

	logger.WithField("count", len(failures)).Warn("Lines failed to parse")
	for i, f := range failures {
		if i >= maxReportedFailures {
			logger.Warnf("... and %d more failed lines", len(failures)-maxReportedFailures)
			break
		}
		raw := f.Raw
		if len(raw) > maxFailureLineWidth {
			raw = raw[:maxFailureLineWidth] + "..."
		}
		logger.Warnf("Line %d: %s", f.LineNum, raw)
	}
}
