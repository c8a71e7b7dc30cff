// Package server exposes the read-side query API: current spot prices
// joined with hardware specs, plus a health endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spotwatch/spotwatch/internal/database"
)

// PriceReader serves current-price queries.
type PriceReader interface {
	CurrentPrices(ctx context.Context, filter database.CurrentPriceFilter) ([]database.CurrentPriceRow, error)
}

// Pinger verifies storage connectivity for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds query API settings.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxPageSize  int
}

// DefaultLimit is the page size applied when the request names none.
const DefaultLimit = 100

// Server is the query API server.
type Server struct {
	cfg    Config
	reader PriceReader
	pinger Pinger
	logger *slog.Logger

	httpServer *http.Server
}

// New creates a server. pinger may be nil, in which case the health
// endpoint reports liveness only.
func New(cfg Config, reader PriceReader, pinger Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPageSize < 1 {
		cfg.MaxPageSize = 1000
	}
	return &Server{cfg: cfg, reader: reader, pinger: pinger, logger: logger}
}

// Handler returns the route tree.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/current", s.handleCurrent)
	mux.HandleFunc("/healthz", s.handleHealth)
	return s.loggingMiddleware(mux)
}

// Start runs the server until Stop is called. It returns nil after a
// clean shutdown.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.logger.Info("query api listening", "port", s.cfg.Port)
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("stopping query api")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	filter, err := s.parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := s.reader.CurrentPrices(r.Context(), filter)
	if err != nil {
		s.logger.Error("current prices query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	prices := make([]currentPriceResponse, 0, len(rows))
	for _, row := range rows {
		prices = append(prices, toResponse(row))
	}

	writeJSON(w, http.StatusOK, currentPricesEnvelope{
		Prices: prices,
		Count:  len(prices),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseFilter translates query parameters into a storage filter.
func (s *Server) parseFilter(r *http.Request) (database.CurrentPriceFilter, error) {
	q := r.URL.Query()
	filter := database.CurrentPriceFilter{
		InstanceTypes: splitParam(q.Get("instance_types")),
		Regions:       splitParam(q.Get("regions")),
		Limit:         DefaultLimit,
	}

	if sortBy := q.Get("sort_by"); sortBy != "" {
		if !database.ValidSortColumn(sortBy) {
			return filter, fmt.Errorf("unsupported sort_by %q", sortBy)
		}
		filter.SortBy = sortBy
	}

	switch order := q.Get("order"); order {
	case "", "asc":
	case "desc":
		filter.Descending = true
	default:
		return filter, fmt.Errorf("order must be asc or desc, got %q", order)
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, fmt.Errorf("limit must be a positive integer, got %q", raw)
		}
		filter.Limit = limit
	}
	if filter.Limit > s.cfg.MaxPageSize {
		filter.Limit = s.cfg.MaxPageSize
	}

	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filter, fmt.Errorf("offset must be a non-negative integer, got %q", raw)
		}
		filter.Offset = offset
	}

	return filter, nil
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
