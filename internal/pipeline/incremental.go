package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/theirongolddev/billcheck/internal/source"
	"github.com/theirongolddev/billcheck/internal/store"
)

// FileTracker remembers which files were imported and at what mtime and size.
type FileTracker interface {
	GetTrackedFiles() (map[string]store.FileInfo, error)
	TrackFile(path string, fi store.FileInfo) error
}

// ImportDir discovers bill files under dir, skips files unchanged since
// their last import, and analyzes the rest. With force every file is
// analyzed again.
func (a *Analyzer) ImportDir(ctx context.Context, dir string, tracker FileTracker, force bool, progressFn ProgressFunc) (*ImportResult, error) {
	files, err := source.ScanDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	result := &ImportResult{TotalFiles: len(files)}
	if len(files) == 0 {
		return result, nil
	}

	tracked := map[string]store.FileInfo{}
	if tracker != nil && !force {
		tracked, err = tracker.GetTrackedFiles()
		if err != nil {
			return nil, fmt.Errorf("reading file tracker: %w", err)
		}
	}

	// Diff: partition into changed and unchanged
	var toAnalyze []source.DiscoveredFile
	for _, f := range files {
		cached, ok := tracked[f.Path]
		if ok && cached.MtimeNs == f.ModTime.UnixNano() && cached.SizeBytes == f.Size {
			result.Unchanged++
			continue
		}
		toAnalyze = append(toAnalyze, f)
	}

	for i, r := range a.analyzeAll(ctx, toAnalyze, result.Unchanged, result.TotalFiles, progressFn) {
		f := toAnalyze[i]
		if r.err != nil {
			result.FileErrors = append(result.FileErrors, FileError{Path: f.Path, Err: r.err})
			continue
		}
		result.Analyzed++
		result.Analyses = append(result.Analyses, r.analysis)

		if tracker == nil {
			continue
		}
		info, err := os.Stat(f.Path)
		if err != nil {
			continue
		}
		if err := tracker.TrackFile(f.Path, store.FileInfo{
			MtimeNs:    info.ModTime().UnixNano(),
			SizeBytes:  info.Size(),
			AnalysisID: r.analysis.ID,
		}); err != nil {
			a.Logger.Warn("tracking imported file failed", "path", f.Path, "err", err)
		}
	}

	return result, nil
}
