package filter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mikey/phishing-filter/internal/core"
	"go.uber.org/zap"
)

// HTTPFilter serves the phishing service as a JSON API
type HTTPFilter struct {
	service        *core.PhishingService
	keywords       core.KeywordScorer
	reputation     core.ReputationLookup
	logger         *zap.Logger
	listenAddr     string
	maxRequestSize int64
	readTimeout    time.Duration
	writeTimeout   time.Duration
	server         *http.Server
}

// NewHTTPFilter creates a new HTTP filter
func NewHTTPFilter(
	service *core.PhishingService,
	keywords core.KeywordScorer,
	reputation core.ReputationLookup,
	logger *zap.Logger,
	listenAddr string,
	maxRequestSize int64,
	readTimeout time.Duration,
	writeTimeout time.Duration,
) *HTTPFilter {
	return &HTTPFilter{
		service:        service,
		keywords:       keywords,
		reputation:     reputation,
		logger:         logger,
		listenAddr:     listenAddr,
		maxRequestSize: maxRequestSize,
		readTimeout:    readTimeout,
		writeTimeout:   writeTimeout,
	}
}

// Routes returns the API router
func (f *HTTPFilter) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(f.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", f.handleHealth)
	r.Post("/analyze", f.handleAnalyze)
	r.Post("/analyze/eml", f.handleAnalyzeEML)
	r.Post("/keywords", f.handleKeywords)
	r.Get("/reputation", f.handleReputation)
	return r
}

// Start starts the HTTP server in the background
func (f *HTTPFilter) Start() error {
	f.server = &http.Server{
		Addr:         f.listenAddr,
		Handler:      f.Routes(),
		ReadTimeout:  f.readTimeout,
		WriteTimeout: f.writeTimeout,
	}

	f.logger.Info("HTTP filter starting", zap.String("address", f.listenAddr))

	go func() {
		if err := f.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts the server down
func (f *HTTPFilter) Stop() error {
	if f.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return f.server.Shutdown(ctx)
}

// analyzeRequest accepts any JSON value per field; non-string values are
// treated as absent rather than rejecting the request.
type analyzeRequest struct {
	Subject     json.RawMessage `json:"subject"`
	Body        json.RawMessage `json:"body"`
	SenderEmail json.RawMessage `json:"sender_email"`
	URL         json.RawMessage `json:"url"`
}

func (r analyzeRequest) record() core.EmailRecord {
	return core.EmailRecord{
		Subject:     textField(r.Subject),
		Body:        textField(r.Body),
		SenderEmail: textField(r.SenderEmail),
		URL:         textField(r.URL),
	}
}

func textField(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

type keywordsResponse struct {
	Score              int      `json:"score"`
	Label              string   `json:"label"`
	Keywords           []string `json:"keywords"`
	SubjectHighlighted string   `json:"subject_highlighted"`
	BodyHighlighted    string   `json:"body_highlighted"`
}

func (f *HTTPFilter) handleHealth(w http.ResponseWriter, _ *http.Request) {
	f.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (f *HTTPFilter) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, err := f.decodeRequest(w, r)
	if err != nil {
		f.writeJSON(w, http.StatusBadRequest, core.NewErrorResult(middleware.GetReqID(r.Context()), err))
		return
	}
	f.writeJSON(w, http.StatusOK, f.service.Evaluate(r.Context(), req.record()))
}

func (f *HTTPFilter) handleAnalyzeEML(w http.ResponseWriter, r *http.Request) {
	record, err := ParseMessage(http.MaxBytesReader(w, r.Body, f.maxRequestSize))
	if err != nil {
		f.logger.Warn("Rejected unparseable message", zap.Error(err))
		f.writeJSON(w, http.StatusBadRequest, core.NewErrorResult(middleware.GetReqID(r.Context()), err))
		return
	}
	f.writeJSON(w, http.StatusOK, f.service.Evaluate(r.Context(), record))
}

func (f *HTTPFilter) handleKeywords(w http.ResponseWriter, r *http.Request) {
	req, err := f.decodeRequest(w, r)
	if err != nil {
		f.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	record := req.record()
	ka := f.keywords.Analyze(record.Subject, record.Body)
	keywords := ka.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	f.writeJSON(w, http.StatusOK, keywordsResponse{
		Score:              ka.Score,
		Label:              ka.Label,
		Keywords:           keywords,
		SubjectHighlighted: ka.SubjectHighlighted,
		BodyHighlighted:    ka.BodyHighlighted,
	})
}

func (f *HTTPFilter) handleReputation(w http.ResponseWriter, r *http.Request) {
	sender := r.URL.Query().Get("sender")
	f.writeJSON(w, http.StatusOK, f.reputation.Lookup(r.Context(), sender))
}

func (f *HTTPFilter) decodeRequest(w http.ResponseWriter, r *http.Request) (analyzeRequest, error) {
	var req analyzeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, f.maxRequestSize))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		f.logger.Warn("Rejected malformed request", zap.Error(err))
		return req, err
	}
	return req, nil
}

func (f *HTTPFilter) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		f.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (f *HTTPFilter) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		f.logger.Debug("Request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
