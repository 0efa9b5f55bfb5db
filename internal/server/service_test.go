package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/billcheck/internal/config"
	"github.com/theirongolddev/billcheck/internal/logger"
	"github.com/theirongolddev/billcheck/internal/model"
	"github.com/theirongolddev/billcheck/internal/pipeline"
	"github.com/theirongolddev/billcheck/internal/store"
)

type stubExtractor struct {
	payload []byte
	err     error
}

func (s stubExtractor) Extract(context.Context, string, []byte) ([]byte, error) {
	return s.payload, s.err
}

func newTestService(t *testing.T, ext pipeline.Extractor) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "analyses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	a := pipeline.NewAnalyzer(config.DefaultConfig(), ext, st, logger.Nop())
	return New(Config{EventsBuffer: 10, Extraction: ext != nil}, a, st, logger.Nop()), st
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func uploadBody(t *testing.T, filename string, data []byte, carrier string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	if carrier != "" {
		require.NoError(t, mw.WriteField("carrier", carrier))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	s, _ := newTestService(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAnalyze_Upload(t *testing.T) {
	ext := stubExtractor{payload: []byte(`{"analysisType":"enhanced","totalAmount":210,"phoneLines":[{"deviceName":"Pixel 8"},{"deviceName":"iPad"},{"deviceName":"Watch"}]}`)}
	s, st := newTestService(t, ext)

	body, ct := uploadBody(t, "bill.pdf", []byte("%PDF-1.7"), "verizon")
	rec := do(t, s.Handler(), http.MethodPost, "/v1/analyze", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Analysis)
	assert.Equal(t, "enhanced", resp.Analysis.Variant)
	assert.Len(t, resp.Analysis.PhoneLines, 3)
	require.NotNil(t, resp.Quote)
	assert.Equal(t, 132.0, resp.Quote.Price)
	assert.Equal(t, 78.0, resp.Quote.MonthlySavings)

	n, err := st.AnalysisCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	status := s.snapshotStatus()
	assert.Equal(t, int64(1), status.Analyses)
	assert.Equal(t, int64(1), status.Quotes)
	assert.True(t, status.Extraction)
}

func TestAnalyze_ExtractionFailure(t *testing.T) {
	s, st := newTestService(t, stubExtractor{err: errors.New("upstream returned 500")})

	body, ct := uploadBody(t, "bill.pdf", []byte("%PDF-1.7"), "")
	rec := do(t, s.Handler(), http.MethodPost, "/v1/analyze", body, ct)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "bill extraction failed")

	n, err := st.AnalysisCount()
	require.NoError(t, err)
	assert.Zero(t, n)

	status := s.snapshotStatus()
	assert.Equal(t, int64(1), status.Failures)
	assert.Contains(t, status.LastError, "upstream returned 500")
}

func TestAnalyze_MissingFile(t *testing.T) {
	s, _ := newTestService(t, stubExtractor{})
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("carrier", "att"))
	require.NoError(t, mw.Close())

	rec := do(t, s.Handler(), http.MethodPost, "/v1/analyze", &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNormalize(t *testing.T) {
	s, _ := newTestService(t, nil)

	rec := do(t, s.Handler(), http.MethodPost, "/v1/normalize?carrier=tmobile", strings.NewReader(`{}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Analysis.PhoneLines, 2)
	assert.Equal(t, "iPhone 15", resp.Analysis.PhoneLines[0].DeviceName)
	assert.Equal(t, "Unlimited on T-Mobile", resp.Quote.PlanName)
	assert.Equal(t, 87.0, resp.Quote.MonthlySavings)

	rec = do(t, s.Handler(), http.MethodPost, "/v1/normalize", strings.NewReader(`[1,2,3]`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestManual(t *testing.T) {
	s, st := newTestService(t, nil)

	entry := `{"carrierPreference":"att","accountNumber":"88","lines":[{"deviceName":"iPhone 13","planCost":60,"devicePayment":20}]}`
	rec := do(t, s.Handler(), http.MethodPost, "/v1/manual", strings.NewReader(entry), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "88", resp.Analysis.AccountNumber)
	assert.Equal(t, 80.0, resp.Analysis.TotalAmount)
	require.NotNil(t, resp.Quote)
	assert.Equal(t, "Unlimited on AT&T", resp.Quote.PlanName)
	assert.Equal(t, 36.0, resp.Quote.MonthlySavings)

	n, err := st.AnalysisCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestManual_ValidationFailure(t *testing.T) {
	s, st := newTestService(t, nil)

	entry := `{"lines":[{"deviceName":"iPhone 13","planCost":60}]}`
	rec := do(t, s.Handler(), http.MethodPost, "/v1/manual", strings.NewReader(entry), "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "carrier preference is required")

	n, err := st.AnalysisCount()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQuote(t *testing.T) {
	s, _ := newTestService(t, nil)

	body := `{"carrierId":"verizon","analysis":{"totalAmount":200,"phoneLines":[{},{},{}]}}`
	rec := do(t, s.Handler(), http.MethodPost, "/v1/quote", strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	var q model.SavingsQuote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.Equal(t, model.SavingsQuote{MonthlySavings: 68, AnnualSavings: 816, PlanName: "Unlimited on Verizon", Price: 132}, q)

	rec = do(t, s.Handler(), http.MethodPost, "/v1/quote", strings.NewReader(`{"carrierId":"verizon"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.Equal(t, model.SavingsQuote{PlanName: "N/A"}, q)
}

func TestAnalyses(t *testing.T) {
	s, _ := newTestService(t, nil)
	h := s.Handler()

	for _, body := range []string{`{"accountNumber":"1","totalAmount":50}`, `{"accountNumber":"2","totalAmount":60}`} {
		rec := do(t, h, http.MethodPost, "/v1/normalize", strings.NewReader(body), "application/json")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/v1/analyses?account=2", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.BillAnalysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "2", list[0].AccountNumber)

	rec = do(t, h, http.MethodGet, "/v1/analyses?limit=zero", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyses_NoHistory(t *testing.T) {
	a := pipeline.NewAnalyzer(config.DefaultConfig(), nil, nil, logger.Nop())
	s := New(Config{}, a, nil, logger.Nop())

	rec := do(t, s.Handler(), http.MethodGet, "/v1/analyses", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestService(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/v1/quote", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{EventsBuffer: 2}, nil, nil, logger.Nop())

	s.publishEvent(Event{Type: EventQuote})
	s.publishEvent(Event{Type: EventQuote})
	s.publishEvent(Event{Type: EventQuote})

	s.mu.RLock()
	defer s.mu.RUnlock()

	require.Len(t, s.events, 2)
	assert.Equal(t, int64(2), s.events[0].Seq)
	assert.Equal(t, int64(3), s.events[1].Seq)
	assert.NotEmpty(t, s.events[0].ID)
	assert.NotEqual(t, s.events[0].ID, s.events[1].ID)
}

func TestEventsEndpoint(t *testing.T) {
	s, _ := newTestService(t, nil)
	h := s.Handler()

	do(t, h, http.MethodPost, "/v1/normalize", strings.NewReader(`{"totalAmount":75}`), "application/json")
	do(t, h, http.MethodPost, "/v1/manual", strings.NewReader(`{"lines":[]}`), "application/json")

	rec := do(t, h, http.MethodGet, "/v1/events", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, EventAnalysis, events[0].Type)
	assert.Equal(t, 75.0, events[0].Total)
	assert.Equal(t, EventFailure, events[1].Type)
	assert.Equal(t, "manual", events[1].Source)
}

func TestStream(t *testing.T) {
	s, _ := newTestService(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/v1/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	readEvent := func() string {
		for lines.Scan() {
			if name, ok := strings.CutPrefix(lines.Text(), "event: "); ok {
				return name
			}
		}
		return ""
	}
	require.Equal(t, EventHello, readEvent())

	post, err := http.Post(ts.URL+"/v1/normalize", "application/json", strings.NewReader(`{"totalAmount":40}`))
	require.NoError(t, err)
	_ = post.Body.Close()

	assert.Equal(t, EventAnalysis, readEvent())
}

func TestMetrics(t *testing.T) {
	s, _ := newTestService(t, nil)
	h := s.Handler()
	do(t, h, http.MethodPost, "/v1/normalize", strings.NewReader(`{}`), "application/json")

	rec := do(t, h, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `billcheck_analyses_total{source="record",variant="minimal"} 1`)
	assert.Contains(t, body, `billcheck_http_requests_total{code="200",handler="normalize",method="post"} 1`)
}
