package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/theirongolddev/billcheck/internal/config"
	"github.com/theirongolddev/billcheck/internal/logger"
	"github.com/theirongolddev/billcheck/internal/model"
	"github.com/theirongolddev/billcheck/internal/source"
)

// ErrExtraction wraps every failure to turn an uploaded document into a bill
// record: transport, service status and payload shape.
var ErrExtraction = errors.New("bill extraction failed")

// Extractor turns a bill document into a JSON bill record.
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) ([]byte, error)
}

// AnalysisStore persists finished analyses.
type AnalysisStore interface {
	SaveAnalysisFrom(a *model.BillAnalysis, sourcePath string) error
}

// Analyzer runs one analysis end to end: obtain a raw record, normalize it,
// then persist it best-effort.
type Analyzer struct {
	Normalizer *Normalizer
	Estimator  *Estimator
	Extractor  Extractor
	Store      AnalysisStore
	Logger     logger.Logger

	now   func() time.Time
	newID func() string
}

// NewAnalyzer wires an Analyzer from config. ext and st may be nil: without
// an extractor documents can't be analyzed, without a store nothing is saved.
func NewAnalyzer(cfg config.Config, ext Extractor, st AnalysisStore, log logger.Logger) *Analyzer {
	if log == nil {
		log = logger.Default()
	}
	policy := cfg.Policy()
	catalog := cfg.Catalog()
	return &Analyzer{
		Normalizer: NewNormalizer(policy, catalog),
		Estimator:  NewEstimator(policy, catalog),
		Extractor:  ext,
		Store:      st,
		Logger:     log,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// AnalyzeDocument sends a bill document to the extraction service and
// normalizes what comes back. Every failure wraps ErrExtraction.
func (a *Analyzer) AnalyzeDocument(ctx context.Context, filename string, data []byte) (*model.BillAnalysis, error) {
	return a.analyzeDocument(ctx, filename, data, filename)
}

func (a *Analyzer) analyzeDocument(ctx context.Context, filename string, data []byte, sourcePath string) (*model.BillAnalysis, error) {
	if a.Extractor == nil {
		return nil, fmt.Errorf("%w: no extraction service configured", ErrExtraction)
	}
	payload, err := a.Extractor.Extract(ctx, filename, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	rec, err := source.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	return a.finish(ctx, rec, sourcePath), nil
}

// AnalyzeRecord decodes a JSON bill record and normalizes it.
func (a *Analyzer) AnalyzeRecord(ctx context.Context, data []byte, sourcePath string) (*model.BillAnalysis, error) {
	rec, err := source.Decode(data)
	if err != nil {
		return nil, err
	}
	return a.finish(ctx, rec, sourcePath), nil
}

// AnalyzeRaw normalizes an already decoded record.
func (a *Analyzer) AnalyzeRaw(ctx context.Context, rec source.RawBillRecord) *model.BillAnalysis {
	return a.finish(ctx, rec, "")
}

// AnalyzeManual validates a manual entry and normalizes it. Validation
// failures return ErrCarrierRequired or ErrInvalidEntry and nothing is saved.
func (a *Analyzer) AnalyzeManual(ctx context.Context, entry ManualEntry) (*model.BillAnalysis, error) {
	rec, err := entry.ToRaw()
	if err != nil {
		return nil, err
	}
	return a.finish(ctx, rec, ""), nil
}

// AnalyzeFile reads a discovered file and analyzes it by kind.
func (a *Analyzer) AnalyzeFile(ctx context.Context, df source.DiscoveredFile) (*model.BillAnalysis, error) {
	data, err := os.ReadFile(df.Path)
	if err != nil {
		return nil, err
	}
	if df.Kind == source.KindDocument {
		return a.analyzeDocument(ctx, filepath.Base(df.Path), data, df.Path)
	}
	return a.AnalyzeRecord(ctx, data, df.Path)
}

// Quote estimates savings for carrierID with the analyzer's policy.
func (a *Analyzer) Quote(carrierID string, analysis *model.BillAnalysis) model.SavingsQuote {
	return a.Estimator.Estimate(carrierID, analysis)
}

func (a *Analyzer) finish(ctx context.Context, rec source.RawBillRecord, sourcePath string) *model.BillAnalysis {
	analysis := a.Normalizer.Normalize(rec)
	analysis.ID = a.newID()
	analysis.CreatedAt = a.now().UTC()

	log := logger.FromContextOr(ctx, a.Logger)
	log.Debug("bill normalized",
		"id", analysis.ID,
		"variant", analysis.Variant,
		"lines", len(analysis.PhoneLines),
		"total", analysis.TotalAmount,
	)

	if a.Store != nil {
		if err := a.Store.SaveAnalysisFrom(&analysis, sourcePath); err != nil {
			log.Warn("persisting analysis failed",
				"id", analysis.ID,
				"account", analysis.AccountNumber,
				"err", err,
			)
		}
	}
	return &analysis
}
