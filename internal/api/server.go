// Package api exposes a small read-only HTTP surface over the crawl
// database: a health probe, Prometheus metrics, and a guarded SQL
// endpoint for ad-hoc analysis of harvested products.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fiberloom/fiberloom/internal/metrics"
)

const defaultRowLimit = 200

// Only SELECT-shaped statements get through; anything that could write
// is rejected before it reaches the database.
var (
	mutatingRe = regexp.MustCompile(`(?i)\b(insert|update|delete|replace|drop|alter|create|truncate|grant|revoke|copy|vacuum|attach|detach|pragma|call|do)\b`)
	limitRe    = regexp.MustCompile(`(?i)\blimit\b`)
)

// queryPool is the read-side subset of pgxpool.Pool; pgxmock satisfies
// it in tests.
type queryPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

// Server serves the query API.
type Server struct {
	pool   queryPool
	logger *zap.Logger
}

func NewServer(pool queryPool, logger *zap.Logger) *Server {
	return &Server{pool: pool, logger: logger}
}

// Router assembles the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/tools/run_sql", s.handleRunSQL)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.pool.Ping(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type runSQLRequest struct {
	SQL    string         `json:"sql"`
	Params map[string]any `json:"params"`
	Limit  int            `json:"limit"`
}

type runSQLResponse struct {
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

func (s *Server) handleRunSQL(w http.ResponseWriter, r *http.Request) {
	var req runSQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	query, err := sanitizeQuery(req.SQL, req.Limit)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var args []any
	if len(req.Params) > 0 {
		args = append(args, pgx.NamedArgs(req.Params))
	}
	rows, err := s.pool.Query(r.Context(), query, args...)
	if err != nil {
		s.logger.Warn("run_sql query failed", zap.Error(err))
		s.writeError(w, http.StatusBadRequest, "query failed: "+err.Error())
		return
	}
	defer rows.Close()

	out, err := collectRows(rows)
	if err != nil {
		s.logger.Warn("run_sql scan failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}
	s.writeJSON(w, http.StatusOK, runSQLResponse{Rows: out, RowCount: len(out)})
}

type queryError string

func (e queryError) Error() string { return string(e) }

// sanitizeQuery enforces the read-only contract and appends a row cap
// when the statement carries no LIMIT of its own.
func sanitizeQuery(raw string, limit int) (string, error) {
	query := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), ";"))
	if query == "" {
		return "", queryError("sql is required")
	}
	lowered := strings.ToLower(query)
	if !strings.HasPrefix(lowered, "select") && !strings.HasPrefix(lowered, "with") {
		return "", queryError("only SELECT statements are allowed")
	}
	if mutatingRe.MatchString(query) {
		return "", queryError("statement contains a mutating keyword")
	}
	if limit <= 0 {
		limit = defaultRowLimit
	}
	if !limitRe.MatchString(query) {
		query += " LIMIT " + strconv.Itoa(limit)
	}
	return query, nil
}

// collectRows materializes the result set keyed by column name.
func collectRows(rows pgx.Rows) ([]map[string]any, error) {
	fields := rows.FieldDescriptions()
	out := []map[string]any{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[fd.Name] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write response failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
