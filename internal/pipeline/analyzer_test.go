package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/billcheck/internal/config"
	"github.com/theirongolddev/billcheck/internal/logger"
	"github.com/theirongolddev/billcheck/internal/model"
	"github.com/theirongolddev/billcheck/internal/source"
	"github.com/theirongolddev/billcheck/internal/store"
)

type fakeExtractor struct {
	payload []byte
	err     error
	calls   int
	mu      sync.Mutex
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, _ []byte) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.payload, f.err
}

type fakeStore struct {
	mu    sync.Mutex
	saved []*model.BillAnalysis
	err   error
}

func (f *fakeStore) SaveAnalysisFrom(a *model.BillAnalysis, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, a)
	return nil
}

func newTestAnalyzer(ext Extractor, st AnalysisStore) *Analyzer {
	a := NewAnalyzer(config.DefaultConfig(), ext, st, logger.Nop())
	a.now = func() time.Time { return time.Date(2025, 5, 4, 10, 0, 0, 0, time.UTC) }
	return a
}

func TestAnalyzeDocument(t *testing.T) {
	ext := &fakeExtractor{payload: []byte(`{"analysisType":"enhanced","totalAmount":150,"phoneLines":[{"deviceName":"Pixel 8","monthlyTotal":150}]}`)}
	st := &fakeStore{}
	a := newTestAnalyzer(ext, st)

	got, err := a.AnalyzeDocument(context.Background(), "bill.pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "enhanced", got.Variant)
	assert.Equal(t, 150.0, got.TotalAmount)
	assert.True(t, got.CreatedAt.Equal(time.Date(2025, 5, 4, 10, 0, 0, 0, time.UTC)))
	require.Len(t, st.saved, 1)
	assert.Equal(t, got.ID, st.saved[0].ID)
}

func TestAnalyzeDocument_ExtractionFailures(t *testing.T) {
	boom := errors.New("connection refused")
	tests := []struct {
		name string
		ext  Extractor
	}{
		{"no extractor", nil},
		{"transport error", &fakeExtractor{err: boom}},
		{"not json", &fakeExtractor{payload: []byte(`<html>`)}},
		{"array payload", &fakeExtractor{payload: []byte(`[1,2]`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeStore{}
			a := newTestAnalyzer(tt.ext, st)
			got, err := a.AnalyzeDocument(context.Background(), "bill.pdf", nil)
			assert.ErrorIs(t, err, ErrExtraction)
			assert.Nil(t, got)
			assert.Empty(t, st.saved)
		})
	}
}

func TestAnalyzeDocument_WrapsCause(t *testing.T) {
	boom := errors.New("connection refused")
	a := newTestAnalyzer(&fakeExtractor{err: boom}, nil)
	_, err := a.AnalyzeDocument(context.Background(), "bill.pdf", nil)
	assert.ErrorIs(t, err, boom)
}

func TestAnalyze_PersistenceFailureSwallowed(t *testing.T) {
	st := &fakeStore{err: errors.New("disk full")}
	a := newTestAnalyzer(nil, st)

	got, err := a.AnalyzeRecord(context.Background(), []byte(`{"totalAmount":80}`), "")
	require.NoError(t, err)
	assert.Equal(t, 80.0, got.TotalAmount)
}

func TestAnalyzeManual(t *testing.T) {
	st := &fakeStore{}
	a := newTestAnalyzer(nil, st)

	got, err := a.AnalyzeManual(context.Background(), validEntry())
	require.NoError(t, err)
	assert.Equal(t, 113.4, got.TotalAmount)
	assert.Len(t, st.saved, 1)

	bad := validEntry()
	bad.CarrierPreference = ""
	got, err = a.AnalyzeManual(context.Background(), bad)
	assert.ErrorIs(t, err, ErrCarrierRequired)
	assert.Nil(t, got)
	assert.Len(t, st.saved, 1)
}

func TestAnalyzer_QuoteUsesConfiguredPolicy(t *testing.T) {
	cfg := config.DefaultConfig()
	rate := 40.0
	cfg.Pricing.PerLineRate = &rate

	a := NewAnalyzer(cfg, nil, nil, logger.Nop())
	got := a.Quote("att", analysisWithLines(100, 2))
	assert.Equal(t, 80.0, got.Price)
	assert.Equal(t, 20.0, got.MonthlySavings)
}

func writeBill(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	writeBill(t, dir, "may.json", `{"accountNumber":"A1","totalAmount":100,"phoneLines":[{"monthlyTotal":100}]}`)
	writeBill(t, dir, "june.json", `{"accountNumber":"A1","totalAmount":120,"phoneLines":[{"monthlyTotal":120}]}`)
	writeBill(t, dir, "scan.pdf", "%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")

	files, err := source.ScanDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)

	ext := &fakeExtractor{payload: []byte(`{"accountNumber":"A2","totalAmount":55}`)}
	a := newTestAnalyzer(ext, nil)

	var mu sync.Mutex
	var last, calls int
	result := a.Import(context.Background(), files, func(current, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		last = current
		assert.Equal(t, 3, total)
	})

	assert.Equal(t, 3, result.TotalFiles)
	assert.Equal(t, 3, result.Analyzed)
	assert.Empty(t, result.FileErrors)
	assert.Equal(t, 1, ext.calls)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, last)
}

func TestImport_CollectsFileErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeBill(t, dir, "good.json", `{"totalAmount":10}`)
	bad := writeBill(t, dir, "bad.json", `{"totalAmount":`)

	files := []source.DiscoveredFile{
		{Path: good, Kind: source.KindRecord},
		{Path: bad, Kind: source.KindRecord},
		{Path: filepath.Join(dir, "gone.json"), Kind: source.KindRecord},
	}
	result := newTestAnalyzer(nil, nil).Import(context.Background(), files, nil)

	assert.Equal(t, 1, result.Analyzed)
	require.Len(t, result.FileErrors, 2)
	assert.Equal(t, bad, result.FileErrors[0].Path)
	assert.ErrorIs(t, result.FileErrors[0].Err, source.ErrInvalidJSON)
}

func TestImport_Cancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeBill(t, dir, "a.json", `{}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := newTestAnalyzer(nil, nil).Import(ctx, []source.DiscoveredFile{{Path: path}}, nil)

	assert.Zero(t, result.Analyzed)
	require.Len(t, result.FileErrors, 1)
	assert.ErrorIs(t, result.FileErrors[0].Err, context.Canceled)
}

func TestImportDir_SkipsUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	writeBill(t, dir, "may.json", `{"accountNumber":"A1","totalAmount":100}`)
	writeBill(t, dir, "nested/june.json", `{"accountNumber":"A1","totalAmount":120}`)
	writeBill(t, dir, ".cache/skip.json", `{"accountNumber":"A9"}`)

	st, err := store.Open(filepath.Join(t.TempDir(), "analyses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	a := newTestAnalyzer(nil, st)
	ctx := context.Background()

	first, err := a.ImportDir(ctx, dir, st, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, first.TotalFiles)
	assert.Equal(t, 2, first.Analyzed)
	assert.Zero(t, first.Unchanged)

	n, err := st.AnalysisCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	second, err := a.ImportDir(ctx, dir, st, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Unchanged)
	assert.Zero(t, second.Analyzed)

	forced, err := a.ImportDir(ctx, dir, st, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, forced.Analyzed)

	// re-importing the same bill replaces the stored row
	n, err = st.AnalysisCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestImportDir_MissingDir(t *testing.T) {
	result, err := newTestAnalyzer(nil, nil).ImportDir(context.Background(), filepath.Join(t.TempDir(), "nope"), nil, false, nil)
	require.NoError(t, err)
	assert.Zero(t, result.TotalFiles)
}
