package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/document-qa-bot/internal/config"
	"github.com/kirillkom/document-qa-bot/internal/core/domain"
	"github.com/kirillkom/document-qa-bot/internal/core/ports"
	"github.com/kirillkom/document-qa-bot/internal/observability/metrics"
)

const maxQueryBodyBytes = 1 << 20

type Router struct {
	cfg     config.Config
	query   ports.QueryService
	spec    *apiSpec
	logger  *slog.Logger
	metrics *metrics.HTTPServerMetrics
	mcp     http.Handler
}

type Option func(*Router)

func WithLogger(logger *slog.Logger) Option {
	return func(rt *Router) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

func WithMetrics(m *metrics.HTTPServerMetrics) Option {
	return func(rt *Router) { rt.metrics = m }
}

// WithMCPHandler mounts an MCP transport at /mcp.
func WithMCPHandler(h http.Handler) Option {
	return func(rt *Router) { rt.mcp = h }
}

// NewRouter fails only when the embedded API description is invalid.
func NewRouter(cfg config.Config, query ports.QueryService, opts ...Option) (*Router, error) {
	spec, err := loadAPISpec(context.Background())
	if err != nil {
		return nil, err
	}
	rt := &Router{
		cfg:    cfg,
		query:  query,
		spec:   spec,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", rt.root)
	mux.HandleFunc("GET /health", rt.health)
	mux.HandleFunc("POST /query", rt.queryDocuments)
	mux.HandleFunc("GET /history", rt.history)
	mux.HandleFunc("POST /reset", rt.reset)
	mux.HandleFunc("GET /openapi.json", rt.openAPI)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	if rt.mcp != nil {
		mux.Handle("/mcp", rt.mcp)
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIBackpressureMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = corsMiddleware(splitOrigins(rt.cfg.CORSAllowedOrigins), handler)
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Document QA Bot API",
		"status":  "running",
	})
}

func (rt *Router) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"qa_chain_ready": rt.query.Ready(),
	})
}

type queryRequest struct {
	Question string `json:"question"`
}

func (rt *Router) queryDocuments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, err := rt.decodeQueryRequest(r)
	if err != nil {
		rt.recordFailure("/query", err)
		writeError(w, err, "")
		return
	}

	resp, err := rt.query.Answer(r.Context(), req.Question)
	if err != nil {
		rt.recordFailure("/query", err)
		if mapErrorToHTTPStatus(err) == http.StatusInternalServerError {
			rt.logger.Error("query_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		}
		writeError(w, err, "Error processing query: ")
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordQuery("/query", len(resp.Sources), time.Since(start))
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeQueryRequest validates the body against the QueryRequest schema
// before binding it.
func (rt *Router) decodeQueryRequest(r *http.Request) (queryRequest, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxQueryBodyBytes+1))
	if err != nil {
		return queryRequest{}, domain.WrapError(domain.ErrInvalidInput, "read body", err)
	}
	if len(raw) > maxQueryBodyBytes {
		return queryRequest{}, domain.WrapError(domain.ErrInvalidInput, "read body", errors.New("request body too large"))
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return queryRequest{}, domain.WrapError(domain.ErrInvalidInput, "decode body", errors.New("invalid json"))
	}
	if err := rt.spec.validateBody("QueryRequest", generic); err != nil {
		return queryRequest{}, domain.WrapError(domain.ErrInvalidInput, "validate body", err)
	}

	var req queryRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return queryRequest{}, domain.WrapError(domain.ErrInvalidInput, "decode body", err)
	}
	return req, nil
}

func (rt *Router) history(w http.ResponseWriter, r *http.Request) {
	turns, err := rt.query.History(r.Context())
	if err != nil {
		writeError(w, err, "Error reading history: ")
		return
	}
	if turns == nil {
		turns = []domain.ConversationTurn{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

func (rt *Router) reset(w http.ResponseWriter, r *http.Request) {
	if err := rt.query.ResetConversation(r.Context()); err != nil {
		writeError(w, err, "Error resetting conversation: ")
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordReset("/reset")
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (rt *Router) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rt.spec.json)
}

func (rt *Router) recordFailure(endpoint string, err error) {
	if rt.metrics != nil {
		rt.metrics.RecordQueryFailure(endpoint, domain.KindLabel(err))
	}
}

func splitOrigins(raw string) []string {
	var out []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"detail":%q}`, "encode response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
