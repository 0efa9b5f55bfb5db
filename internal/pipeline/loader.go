package pipeline

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/billcheck/internal/model"
	"github.com/theirongolddev/billcheck/internal/source"
)

// ImportResult holds the output of a batch import.
type ImportResult struct {
	Analyses   []*model.BillAnalysis
	TotalFiles int
	Analyzed   int
	Unchanged  int
	FileErrors []FileError
}

// FileError records a file that couldn't be analyzed.
type FileError struct {
	Path string
	Err  error
}

// ProgressFunc is called during an import to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

type fileResult struct {
	analysis *model.BillAnalysis
	err      error
}

// analyzeAll runs AnalyzeFile over files with a bounded worker pool. Results
// keep the order of files. offset is added to the reported progress.
func (a *Analyzer) analyzeAll(ctx context.Context, files []source.DiscoveredFile, offset, total int, progressFn ProgressFunc) []fileResult {
	results := make([]fileResult, len(files))
	if len(files) == 0 {
		return results
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range files {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				if err := ctx.Err(); err != nil {
					results[idx] = fileResult{err: err}
				} else {
					analysis, err := a.AnalyzeFile(ctx, files[idx])
					results[idx] = fileResult{analysis: analysis, err: err}
				}
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n)+offset, total)
				}
			}
		}()
	}

	wg.Wait()
	return results
}

// Import analyzes every file in files in parallel.
func (a *Analyzer) Import(ctx context.Context, files []source.DiscoveredFile, progressFn ProgressFunc) *ImportResult {
	result := &ImportResult{TotalFiles: len(files)}
	for i, r := range a.analyzeAll(ctx, files, 0, len(files), progressFn) {
		if r.err != nil {
			result.FileErrors = append(result.FileErrors, FileError{Path: files[i].Path, Err: r.err})
			continue
		}
		result.Analyzed++
		result.Analyses = append(result.Analyses, r.analysis)
	}
	return result
}
