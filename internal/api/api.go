// Package api serves a factory's queries over HTTP.
//
// Every endpoint is read-only: it translates the request into a factory
// query message and runs it against committed state.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/factory/internal/factory"
	"github.com/roach88/factory/internal/ir"
	"github.com/roach88/factory/internal/store"
)

// Querier runs a query against a contract. *host.Host satisfies it.
type Querier interface {
	Query(ctx context.Context, contract string, msg json.RawMessage) (json.RawMessage, error)
}

// Handler serves one factory contract.
type Handler struct {
	querier  Querier
	contract string
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithGatherer exposes gatherer on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Handler) {
		h.gatherer = g
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// New creates a handler for the factory at contract.
func New(q Querier, contract string, opts ...Option) *Handler {
	h := &Handler{
		querier:  q,
		contract: contract,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router returns a router with every route registered.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	h.Register(r)
	return r
}

// Register registers the query routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/instances", h.handleListInstances)
	r.Get("/instances/{addr}", h.handleInstanceByAddr)
	r.Get("/admin", h.handleAdmin)
	r.Get("/status", h.handleStatus)
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
}

func (h *Handler) handleListInstances(w http.ResponseWriter, r *http.Request) {
	page := ir.Pagination{Limit: ir.MaxLimit}

	if v := r.URL.Query().Get("start"); v != "" {
		start, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("start: %v", err))
			return
		}
		page.Start = start
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("limit: %v", err))
			return
		}
		page.Limit = uint8(limit)
	}

	h.query(w, r, factory.QueryMsg{ListInstances: &factory.ListInstancesMsg{Pagination: page}})
}

func (h *Handler) handleInstanceByAddr(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "addr")
	out, ok := h.run(w, r, factory.QueryMsg{InstanceByAddr: &factory.InstanceByAddrMsg{Addr: addr}})
	if !ok {
		return
	}
	if string(out) == "null" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("no instance registered at %s", addr))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAdmin(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, factory.QueryMsg{Admin: &struct{}{}})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, factory.QueryMsg{Status: &struct{}{}})
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request, msg factory.QueryMsg) {
	if out, ok := h.run(w, r, msg); ok {
		writeJSON(w, http.StatusOK, out)
	}
}

// run executes msg and writes an error response on failure.
func (h *Handler) run(w http.ResponseWriter, r *http.Request, msg factory.QueryMsg) (json.RawMessage, bool) {
	ctx := r.Context()
	raw, err := json.Marshal(msg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "encode query")
		return nil, false
	}

	out, err := h.querier.Query(ctx, h.contract, raw)
	if err != nil {
		status, code := classify(err)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "query failed",
				"request_id", middleware.GetReqID(ctx),
				"path", r.URL.Path,
				"error", err,
			)
		}
		writeError(w, status, code, err.Error())
		return nil, false
	}
	return out, true
}

// classify maps a query error to an HTTP status and error code.
func classify(err error) (int, string) {
	switch code := factory.CodeOf(err); code {
	case factory.CodeInvalidAddress, factory.CodeInvalidMessage:
		return http.StatusBadRequest, string(code)
	case factory.CodeNotConfigured:
		return http.StatusNotFound, string(code)
	case "":
	default:
		return http.StatusInternalServerError, string(code)
	}
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound, "NOT_FOUND"
	}
	return http.StatusInternalServerError, "INTERNAL"
}

type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	body, _ := json.Marshal(errorBody{Code: code, Error: msg})
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
