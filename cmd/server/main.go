// Package main serves the grouping analytics API over HTTP. It exposes
// group statistics, rankings, corpus summaries and sell-threshold
// simulations computed from stored token records.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hcrypto7/MigDBQuery/internal/analytics"
	"github.com/hcrypto7/MigDBQuery/internal/domain"
	"github.com/hcrypto7/MigDBQuery/internal/observability"
	"github.com/hcrypto7/MigDBQuery/internal/storage"
	chstore "github.com/hcrypto7/MigDBQuery/internal/storage/clickhouse"
	"github.com/hcrypto7/MigDBQuery/internal/storage/memory"
	"github.com/hcrypto7/MigDBQuery/internal/storage/migrations"
	pgstore "github.com/hcrypto7/MigDBQuery/internal/storage/postgres"
)

// Server wires the analytics engine into HTTP handlers.
type Server struct {
	engine  *analytics.Engine
	logger  *log.Logger
	started time.Time
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	backend := flag.String("backend", envOr("STORAGE_BACKEND", "postgres"), "Storage backend: memory, postgres, or clickhouse")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	runMigrations := flag.Bool("migrate", true, "Apply schema migrations on startup")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, cleanup, err := createStore(ctx, *backend, *postgresDSN, *clickhouseDSN, *runMigrations)
	if err != nil {
		logger.Fatalf("Failed to create store: %v", err)
	}
	defer cleanup()

	server := &Server{
		engine:  analytics.NewEngine(store),
		logger:  logger,
		started: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/groups", server.handleGroups)
	mux.HandleFunc("/api/groups/top", server.handleTopGroups)
	mux.HandleFunc("/api/summary", server.handleSummary)
	mux.HandleFunc("/api/thresholds", server.handleThresholds)
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", server.handleStatus)

	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: mux,
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
		cancel()
	}()

	logger.Printf("Listening on %s", *listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// handleGroups returns per-group statistics for the requested dimensions.
func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	spec, filter, err := parseQuery(r)
	if err != nil {
		s.badRequest(w, "groups", start, err)
		return
	}

	groups, err := s.engine.ComputeGroups(r.Context(), spec, filter)
	if err != nil {
		s.queryError(w, "groups", start, err)
		return
	}

	observability.RecordAnalyticsQuery("groups", "ok", time.Since(start).Seconds())
	observability.RecordGroupsComputed(len(groups))
	writeJSON(w, groupsResponse{Groups: toGroupViews(groups)})
}

// handleTopGroups returns groups ranked by migration rate.
func (s *Server) handleTopGroups(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	spec, filter, err := parseQuery(r)
	if err != nil {
		s.badRequest(w, "top_groups", start, err)
		return
	}

	limit, err := parseIntParam(r, "limit", 10)
	if err != nil {
		s.badRequest(w, "top_groups", start, err)
		return
	}

	groups, err := s.engine.TopGroups(r.Context(), spec, filter, limit)
	if err != nil {
		s.queryError(w, "top_groups", start, err)
		return
	}

	observability.RecordAnalyticsQuery("top_groups", "ok", time.Since(start).Seconds())
	writeJSON(w, groupsResponse{Groups: toGroupViews(groups)})
}

// handleSummary returns the cross-group roll-up.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	spec, filter, err := parseQuery(r)
	if err != nil {
		s.badRequest(w, "summary", start, err)
		return
	}

	summary, err := s.engine.Summary(r.Context(), spec, filter)
	if err != nil {
		s.queryError(w, "summary", start, err)
		return
	}

	observability.RecordAnalyticsQuery("summary", "ok", time.Since(start).Seconds())
	writeJSON(w, summary)
}

// handleThresholds runs the sell-threshold simulation per group.
func (s *Server) handleThresholds(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	spec, filter, err := parseQuery(r)
	if err != nil {
		s.badRequest(w, "thresholds", start, err)
		return
	}

	opts := analytics.SimulateOptions{}
	opts.MinRise, err = parseFloatParam(r, "min_rise")
	if err != nil {
		s.badRequest(w, "thresholds", start, err)
		return
	}
	opts.MinGroupSize, err = parseIntParam(r, "min_group_size", 0)
	if err != nil {
		s.badRequest(w, "thresholds", start, err)
		return
	}
	opts.Limit, err = parseIntParam(r, "limit", 0)
	if err != nil {
		s.badRequest(w, "thresholds", start, err)
		return
	}
	if sortBy := r.URL.Query().Get("sort_by"); sortBy != "" {
		field, err := analytics.ParseSortField(sortBy)
		if err != nil {
			s.badRequest(w, "thresholds", start, err)
			return
		}
		opts.SortBy = field
	}

	groups, err := s.engine.SimulateThresholds(r.Context(), spec, filter, opts)
	if err != nil {
		s.queryError(w, "thresholds", start, err)
		return
	}

	observability.RecordAnalyticsQuery("thresholds", "ok", time.Since(start).Seconds())
	observability.RecordPlansSimulated(len(groups))
	writeJSON(w, groupsResponse{Groups: toGroupViews(groups)})
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status": "running",
		"uptime": time.Since(s.started).String(),
	})
}

// badRequest writes a 400 response for invalid query parameters.
func (s *Server) badRequest(w http.ResponseWriter, op string, start time.Time, err error) {
	observability.RecordAnalyticsQuery(op, "bad_request", time.Since(start).Seconds())
	writeError(w, http.StatusBadRequest, err)
}

// queryError maps engine errors to HTTP status codes.
func (s *Server) queryError(w http.ResponseWriter, op string, start time.Time, err error) {
	if errors.Is(err, storage.ErrInvalidInput) {
		s.badRequest(w, op, start, err)
		return
	}
	s.logger.Printf("%s query failed: %v", op, err)
	observability.RecordAnalyticsQuery(op, "error", time.Since(start).Seconds())
	writeError(w, http.StatusInternalServerError, errors.New("internal error"))
}

// groupsResponse is the JSON envelope for group listings.
type groupsResponse struct {
	Groups []groupView `json:"groups"`
}

// groupView is the JSON shape of one group's statistics.
type groupView struct {
	Key               string              `json:"key"`
	KeyParts          map[string]string   `json:"key_parts,omitempty"`
	Members           int                 `json:"members"`
	Migrated          int                 `json:"migrated"`
	MigrationRate     float64             `json:"migration_rate"`
	TotalMaxSOL       float64             `json:"total_max_sol"`
	AvgMaxSOL         float64             `json:"avg_max_sol"`
	AvgRise           float64             `json:"avg_rise"`
	AvgBaseline       float64             `json:"avg_baseline"`
	ProfitableMembers int                 `json:"profitable_members"`
	CommonRise        float64             `json:"common_rise"`
	WinPercent        float64             `json:"win_percent"`
	Thresholds        *thresholdsView     `json:"thresholds,omitempty"`
}

// thresholdsView is the JSON shape of a threshold plan.
type thresholdsView struct {
	Candidates   []candidateView `json:"candidates"`
	Optimal      candidateView   `json:"optimal"`
	Conservative candidateView   `json:"conservative"`
	Aggressive   candidateView   `json:"aggressive"`
	RiskLevel    string          `json:"risk_level"`
	CV           float64         `json:"cv"`
	CVRiskLevel  string          `json:"cv_risk_level"`
}

// candidateView is the JSON shape of one threshold candidate.
type candidateView struct {
	Fraction    float64 `json:"fraction"`
	Threshold   float64 `json:"threshold"`
	SellLevel   float64 `json:"sell_level"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"win_rate"`
	TotalProfit float64 `json:"total_profit"`
	AvgProfit   float64 `json:"avg_profit"`
	Score       float64 `json:"score"`
}

func toGroupViews(groups []*domain.GroupStats) []groupView {
	views := make([]groupView, len(groups))
	for i, g := range groups {
		views[i] = groupView{
			Key:               g.Key,
			KeyParts:          keyPartsView(g.KeyParts),
			Members:           g.Members,
			Migrated:          g.Migrated,
			MigrationRate:     g.MigrationRate,
			TotalMaxSOL:       g.TotalMaxSOL,
			AvgMaxSOL:         g.AvgMaxSOL,
			AvgRise:           g.AvgRise,
			AvgBaseline:       g.AvgBaseline,
			ProfitableMembers: g.ProfitableMembers,
			CommonRise:        g.CommonRise,
			WinPercent:        g.WinPercent,
			Thresholds:        toThresholdsView(g.Thresholds),
		}
	}
	return views
}

func keyPartsView(parts map[domain.Dimension]string) map[string]string {
	if len(parts) == 0 {
		return nil
	}
	out := make(map[string]string, len(parts))
	for dim, val := range parts {
		out[string(dim)] = val
	}
	return out
}

func toThresholdsView(plan *domain.ThresholdPlan) *thresholdsView {
	if plan == nil {
		return nil
	}
	view := &thresholdsView{
		Candidates:   make([]candidateView, len(plan.Candidates)),
		Optimal:      toCandidateView(plan.Optimal),
		Conservative: toCandidateView(plan.Conservative),
		Aggressive:   toCandidateView(plan.Aggressive),
		RiskLevel:    string(plan.RiskLevel),
		CV:           plan.CV,
		CVRiskLevel:  string(plan.CVRiskLevel),
	}
	for i, c := range plan.Candidates {
		view.Candidates[i] = toCandidateView(c)
	}
	return view
}

func toCandidateView(c domain.ThresholdCandidate) candidateView {
	return candidateView{
		Fraction:    c.Fraction,
		Threshold:   c.Threshold,
		SellLevel:   c.SellLevel,
		Wins:        c.Wins,
		Losses:      c.Losses,
		WinRate:     c.WinRate,
		TotalProfit: c.TotalProfit,
		AvgProfit:   c.AvgProfit,
		Score:       c.Score,
	}
}

// parseQuery extracts the group spec and filter shared by all endpoints.
func parseQuery(r *http.Request) (domain.GroupSpec, analytics.QueryFilter, error) {
	q := r.URL.Query()

	var spec domain.GroupSpec
	if groupBy := q.Get("group_by"); groupBy != "" {
		names := strings.Split(groupBy, ",")
		for i := range names {
			names[i] = strings.TrimSpace(names[i])
		}
		parsed, err := domain.GroupSpecFromNames(names)
		if err != nil {
			return domain.GroupSpec{}, analytics.QueryFilter{}, err
		}
		spec = parsed
	}

	var filter analytics.QueryFilter
	var err error

	if filter.MinMaxSOL, err = parseFloatParam(r, "min_max_sol"); err != nil {
		return spec, filter, err
	}
	if filter.StartTime, err = parseTimeParam(r, "start_time"); err != nil {
		return spec, filter, err
	}
	if filter.EndTime, err = parseTimeParam(r, "end_time"); err != nil {
		return spec, filter, err
	}
	if pattern := q.Get("pattern"); pattern != "" {
		filter.Pattern = &pattern
	}
	if filter.PriceSOL, err = parseFloatParam(r, "price_sol"); err != nil {
		return spec, filter, err
	}
	if filter.LimitSOL, err = parseFloatParam(r, "limit_sol"); err != nil {
		return spec, filter, err
	}
	if filter.WinPercent, err = parseFloatParam(r, "win_percent"); err != nil {
		return spec, filter, err
	}

	return spec, filter, nil
}

// parseFloatParam reads an optional float query parameter.
func parseFloatParam(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return &v, nil
}

// parseIntParam reads an optional int query parameter with a default.
func parseIntParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return v, nil
}

// parseTimeParam reads an optional time parameter. Accepts RFC3339 or
// unix milliseconds.
func parseTimeParam(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		ms := t.UnixMilli()
		return &ms, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %s: expected RFC3339 or unix milliseconds", name)
	}
	return &ms, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// createStore builds the record store for the selected backend.
func createStore(ctx context.Context, backend, postgresDSN, clickhouseDSN string, migrate bool) (storage.TokenRecordStore, func(), error) {
	switch backend {
	case "memory":
		return memory.NewTokenRecordStore(), func() {}, nil

	case "postgres":
		if postgresDSN == "" {
			return nil, nil, fmt.Errorf("--postgres-dsn is required for the postgres backend")
		}
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
			}
		}
		return pgstore.NewTokenRecordStore(pool), pool.Close, nil

	case "clickhouse":
		if clickhouseDSN == "" {
			return nil, nil, fmt.Errorf("--clickhouse-dsn is required for the clickhouse backend")
		}
		var conn *chstore.Conn
		var err error
		if migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
			if err != nil {
				return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
			}
		} else {
			conn, err = chstore.NewConn(ctx, clickhouseDSN)
			if err != nil {
				return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
			}
		}
		return chstore.NewTokenRecordStore(conn), func() { conn.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %q", backend)
	}
}

// envOr returns the environment value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
