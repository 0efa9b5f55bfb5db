// Package server exposes bill analysis and quoting over HTTP, with a live
// event feed of completed analyses.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/theirongolddev/billcheck/internal/logger"
	"github.com/theirongolddev/billcheck/internal/model"
	"github.com/theirongolddev/billcheck/internal/pipeline"
	"github.com/theirongolddev/billcheck/internal/source"
	"github.com/theirongolddev/billcheck/internal/store"
)

// Config controls the service runtime behavior.
type Config struct {
	Addr           string
	EventsBuffer   int
	MaxUploadBytes int64
	Extraction     bool
}

// History lists stored analyses.
type History interface {
	ListAnalyses(opts store.ListOptions) ([]model.BillAnalysis, error)
}

// Event types.
const (
	EventAnalysis = "analysis"
	EventFailure  = "analysis_failed"
	EventQuote    = "quote"
	EventHello    = "hello"
)

// Event is emitted whenever an analysis completes or fails, and for quotes.
type Event struct {
	ID         string              `json:"id"`
	Seq        int64               `json:"seq"`
	Type       string              `json:"type"`
	Timestamp  time.Time           `json:"timestamp"`
	Source     string              `json:"source,omitempty"`
	AnalysisID string              `json:"analysisId,omitempty"`
	Account    string              `json:"accountNumber,omitempty"`
	Total      float64             `json:"totalAmount,omitempty"`
	Lines      int                 `json:"lines,omitempty"`
	Quote      *model.SavingsQuote `json:"quote,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"startedAt"`
	UptimeSec       int64     `json:"uptimeSec"`
	Extraction      bool      `json:"extractionConfigured"`
	Analyses        int64     `json:"analyses"`
	Failures        int64     `json:"failures"`
	Quotes          int64     `json:"quotes"`
	LastAnalysisAt  time.Time `json:"lastAnalysisAt,omitzero"`
	LastError       string    `json:"lastError,omitempty"`
	EventCount      int       `json:"eventCount"`
	SubscriberCount int       `json:"subscriberCount"`
}

// AnalysisResponse is returned by the analysis endpoints. Quote is set when
// the request names a carrier.
type AnalysisResponse struct {
	Analysis *model.BillAnalysis `json:"analysis"`
	Quote    *model.SavingsQuote `json:"quote,omitempty"`
}

// QuoteRequest is the body of POST /v1/quote.
type QuoteRequest struct {
	CarrierID string              `json:"carrierId"`
	Analysis  *model.BillAnalysis `json:"analysis"`
}

// Service provides the HTTP API.
type Service struct {
	cfg      Config
	analyzer *pipeline.Analyzer
	history  History
	log      logger.Logger
	metrics  *metrics

	mu             sync.RWMutex
	startedAt      time.Time
	analysesCount  int64
	failureCount   int64
	quoteCount     int64
	lastAnalysisAt time.Time
	lastError      string
	nextSeq        int64
	events         []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a service around analyzer. history may be nil, in which case
// /v1/analyses returns an empty list.
func New(cfg Config, analyzer *pipeline.Analyzer, history History, log logger.Logger) *Service {
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 25 << 20
	}
	if log == nil {
		log = logger.Default()
	}

	return &Service{
		cfg:       cfg,
		analyzer:  analyzer,
		history:   history,
		log:       log,
		metrics:   newMetrics(),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the service's routes.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /healthz", s.metrics.instrument("healthz", s.handleHealth))
	mux.Handle("GET /v1/status", s.metrics.instrument("status", s.handleStatus))
	mux.Handle("POST /v1/analyze", s.metrics.instrument("analyze", s.handleAnalyze))
	mux.Handle("POST /v1/normalize", s.metrics.instrument("normalize", s.handleNormalize))
	mux.Handle("POST /v1/manual", s.metrics.instrument("manual", s.handleManual))
	mux.Handle("POST /v1/quote", s.metrics.instrument("quote", s.handleQuote))
	mux.Handle("GET /v1/analyses", s.metrics.instrument("analyses", s.handleAnalyses))
	mux.Handle("GET /v1/events", s.metrics.instrument("events", s.handleEvents))
	mux.Handle("GET /v1/stream", s.metrics.instrument("stream", s.handleStream))
	mux.Handle("GET /metrics", s.metrics.handler())
	return s.logRequests(mux)
}

// Run serves HTTP until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info("billcheck server listening", "addr", s.cfg.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("billcheck http server: %w", err)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid upload: %v", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing form field \"file\"")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("reading upload: %v", err))
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}

	analysis, err := s.analyzer.AnalyzeDocument(r.Context(), header.Filename, data)
	if err != nil {
		s.recordFailure("upload", "extraction", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondAnalysis(w, "upload", analysis, r.FormValue("carrier"))
}

func (s *Service) handleNormalize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("reading body: %v", err))
		return
	}

	analysis, err := s.analyzer.AnalyzeRecord(r.Context(), data, "")
	if err != nil {
		s.recordFailure("record", "decode", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondAnalysis(w, "record", analysis, r.URL.Query().Get("carrier"))
}

func (s *Service) handleManual(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var entry pipeline.ManualEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	analysis, err := s.analyzer.AnalyzeManual(r.Context(), entry)
	if err != nil {
		s.recordFailure("manual", "validation", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.respondAnalysis(w, "manual", analysis, entry.Carrier())
}

func (s *Service) handleQuote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	quote := s.quote(req.CarrierID, req.Analysis)
	writeJSON(w, http.StatusOK, quote)
}

func (s *Service) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOptions{Account: r.URL.Query().Get("account"), Limit: 50}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		opts.Limit = n
	}

	analyses := []model.BillAnalysis{}
	if s.history != nil {
		list, err := s.history.ListAnalyses(opts)
		if err != nil {
			s.log.Error("listing analyses failed", "err", err)
			writeError(w, http.StatusInternalServerError, "listing analyses failed")
			return
		}
		if list != nil {
			analyses = list
		}
	}
	writeJSON(w, http.StatusOK, analyses)
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	writeSSE(w, Event{ID: uuid.NewString(), Type: EventHello, Timestamp: time.Now()})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func (s *Service) respondAnalysis(w http.ResponseWriter, src string, a *model.BillAnalysis, carrier string) {
	s.recordAnalysis(src, a)
	resp := AnalysisResponse{Analysis: a}
	if carrier != "" {
		q := s.quote(carrier, a)
		resp.Quote = &q
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) quote(carrier string, a *model.BillAnalysis) model.SavingsQuote {
	q := s.analyzer.Quote(carrier, a)
	s.metrics.quotes.WithLabelValues(q.PlanName).Inc()

	s.mu.Lock()
	s.quoteCount++
	s.mu.Unlock()

	ev := Event{Type: EventQuote, Quote: &q}
	if a != nil {
		ev.AnalysisID = a.ID
		ev.Account = a.AccountNumber
	}
	s.publishEvent(ev)
	return q
}

func (s *Service) recordAnalysis(src string, a *model.BillAnalysis) {
	s.metrics.analyses.WithLabelValues(src, a.Variant).Inc()
	s.metrics.billTotal.Observe(a.TotalAmount)

	s.mu.Lock()
	s.analysesCount++
	s.lastAnalysisAt = a.CreatedAt
	s.mu.Unlock()

	s.publishEvent(Event{
		Type:       EventAnalysis,
		Source:     src,
		AnalysisID: a.ID,
		Account:    a.AccountNumber,
		Total:      a.TotalAmount,
		Lines:      len(a.PhoneLines),
	})
}

func (s *Service) recordFailure(src, reason string, err error) {
	s.metrics.failures.WithLabelValues(src, reason).Inc()
	s.log.Warn("analysis rejected", "source", src, "reason", reason, "err", err)

	s.mu.Lock()
	s.failureCount++
	s.lastError = err.Error()
	s.mu.Unlock()

	s.publishEvent(Event{Type: EventFailure, Source: src, Error: err.Error()})
}

// publishEvent stamps ev and appends it to the ring buffer. Slow stream
// subscribers miss events rather than block publishers.
func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	ev.Seq = s.nextSeq
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		UptimeSec:       int64(time.Since(s.startedAt).Seconds()),
		Extraction:      s.cfg.Extraction,
		Analyses:        s.analysesCount,
		Failures:        s.failureCount,
		Quotes:          s.quoteCount,
		LastAnalysisAt:  s.lastAnalysisAt,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	s.metrics.subscribers.Inc()
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
	s.metrics.subscribers.Dec()
}

func writeSSE(w io.Writer, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "id: %s\n", ev.ID)
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
