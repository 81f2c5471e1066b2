// Package main runs a one-shot grouping analysis against stored token
// records and prints the result as a table. It can also write CSV and
// Markdown reports.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/hcrypto7/MigDBQuery/internal/analytics"
	"github.com/hcrypto7/MigDBQuery/internal/domain"
	"github.com/hcrypto7/MigDBQuery/internal/observability"
	"github.com/hcrypto7/MigDBQuery/internal/reporting"
	"github.com/hcrypto7/MigDBQuery/internal/storage"
	chstore "github.com/hcrypto7/MigDBQuery/internal/storage/clickhouse"
	"github.com/hcrypto7/MigDBQuery/internal/storage/memory"
	pgstore "github.com/hcrypto7/MigDBQuery/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	op := flag.String("op", "groups", "Operation: groups, top, summary, or thresholds")
	groupBy := flag.String("group-by", "", "Comma-separated grouping dimensions (pattern, price, limit, bundle)")
	winPercent := flag.Float64("win-percent", -1, "Target win percentage for common rise (negative uses the default 70)")
	backend := flag.String("backend", envOr("STORAGE_BACKEND", "postgres"), "Storage backend: memory, postgres, or clickhouse")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")

	// Filter flags
	minMaxSOL := flag.Float64("min-max-sol", 0, "Minimum peak SOL value (0 disables)")
	startTime := flag.Int64("start-time", 0, "Mint time lower bound, unix ms (0 disables)")
	endTime := flag.Int64("end-time", 0, "Mint time upper bound, unix ms (0 disables)")
	pattern := flag.String("pattern", "", "Exact address pattern match")
	priceSOL := flag.Float64("price-sol", -1, "Exact launch price match (-1 disables)")
	limitSOL := flag.Float64("limit-sol", -1, "Exact launch limit match (-1 disables)")

	// Simulation / ranking flags
	minRise := flag.Float64("min-rise", -1, "Exclude records with rise below this before grouping (-1 disables)")
	minGroupSize := flag.Int("min-group-size", 0, "Drop groups with fewer members")
	sortBy := flag.String("sort-by", "", "Sort field: migration_rate, total_max_sol, avg_max_sol, members, common_rise")
	limit := flag.Int("limit", 0, "Truncate result to this many groups (0 keeps all)")

	// Output flags
	csvPath := flag.String("csv", "", "Write group rows as CSV to this path")
	markdownPath := flag.String("markdown", "", "Write a Markdown report to this path")

	flag.Parse()

	logger := log.New(os.Stderr, "[analyze] ", log.LstdFlags)

	spec, filter, err := buildQuery(*groupBy, *winPercent, *minMaxSOL, *startTime, *endTime, *pattern, *priceSOL, *limitSOL)
	if err != nil {
		logger.Fatalf("Invalid query: %v", err)
	}

	ctx := context.Background()

	store, cleanup, err := createStore(ctx, *backend, *postgresDSN, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("Failed to create store: %v", err)
	}
	defer cleanup()

	engine := analytics.NewEngine(store)

	var groups []*domain.GroupStats
	switch *op {
	case "groups":
		groups, err = engine.ComputeGroups(ctx, spec, filter)
	case "top":
		n := *limit
		if n == 0 {
			n = 10
		}
		groups, err = engine.TopGroups(ctx, spec, filter, n)
	case "summary":
		var summary *domain.Summary
		summary, err = engine.Summary(ctx, spec, filter)
		if err == nil {
			printSummary(summary)
			return
		}
	case "thresholds":
		opts := analytics.SimulateOptions{
			MinGroupSize: *minGroupSize,
			Limit:        *limit,
		}
		if *minRise >= 0 {
			opts.MinRise = minRise
		}
		if *sortBy != "" {
			opts.SortBy, err = analytics.ParseSortField(*sortBy)
			if err != nil {
				logger.Fatalf("Invalid query: %v", err)
			}
		}
		groups, err = engine.SimulateThresholds(ctx, spec, filter, opts)
	default:
		logger.Fatalf("Unknown operation: %s", *op)
	}
	if err != nil {
		logger.Fatalf("Query failed: %v", err)
	}

	printGroups(groups, *op == "thresholds")

	if *csvPath != "" || *markdownPath != "" {
		winPct := float64(analytics.DefaultWinPercent)
		if filter.WinPercent != nil {
			winPct = *filter.WinPercent
		}
		if err := writeReports(spec, winPct, groups, *csvPath, *markdownPath); err != nil {
			logger.Fatalf("Write reports: %v", err)
		}
	}
}

// buildQuery assembles the group spec and filter from flag values.
func buildQuery(groupBy string, winPercent, minMaxSOL float64, startTime, endTime int64, pattern string, priceSOL, limitSOL float64) (domain.GroupSpec, analytics.QueryFilter, error) {
	var spec domain.GroupSpec
	if groupBy != "" {
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

	filter := analytics.QueryFilter{}
	if winPercent >= 0 {
		filter.WinPercent = &winPercent
	}
	if minMaxSOL > 0 {
		filter.MinMaxSOL = &minMaxSOL
	}
	if startTime > 0 {
		filter.StartTime = &startTime
	}
	if endTime > 0 {
		filter.EndTime = &endTime
	}
	if pattern != "" {
		filter.Pattern = &pattern
	}
	if priceSOL >= 0 {
		filter.PriceSOL = &priceSOL
	}
	if limitSOL >= 0 {
		filter.LimitSOL = &limitSOL
	}
	return spec, filter, nil
}

// printGroups writes a tab-aligned group table to stdout.
func printGroups(groups []*domain.GroupStats, withThresholds bool) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	if withThresholds {
		fmt.Fprintln(w, "GROUP\tMEMBERS\tMIG%\tAVG RISE\tCOMMON RISE\tOPTIMAL\tSELL LEVEL\tWIN RATE\tSCORE\tRISK")
		for _, g := range groups {
			var threshold, sellLevel, winRate, score float64
			var risk string
			if g.Thresholds != nil {
				risk = string(g.Thresholds.RiskLevel)
				opt := g.Thresholds.Optimal
				threshold = opt.Threshold
				sellLevel = opt.SellLevel
				winRate = opt.WinRate
				score = opt.Score
			}
			fmt.Fprintf(w, "%s\t%d\t%.2f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%s\n",
				g.Key, g.Members, g.MigrationRate, g.AvgRise, g.CommonRise,
				threshold, sellLevel, winRate, score, risk)
		}
	} else {
		fmt.Fprintln(w, "GROUP\tMEMBERS\tMIGRATED\tMIG%\tTOTAL MAX\tAVG MAX\tAVG RISE\tPROFITABLE\tCOMMON RISE")
		for _, g := range groups {
			fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t%.4f\t%.4f\t%.4f\t%d\t%.4f\n",
				g.Key, g.Members, g.Migrated, g.MigrationRate,
				g.TotalMaxSOL, g.AvgMaxSOL, g.AvgRise,
				g.ProfitableMembers, g.CommonRise)
		}
	}

	w.Flush()
}

// printSummary writes the corpus roll-up to stdout.
func printSummary(s *domain.Summary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Total groups\t%d\n", s.TotalGroups)
	fmt.Fprintf(w, "Total records\t%d\n", s.TotalRecords)
	fmt.Fprintf(w, "Total migrated\t%d\n", s.TotalMigrated)
	fmt.Fprintf(w, "Migration rate\t%.2f%%\n", s.MigrationRate)
	fmt.Fprintf(w, "Avg records/group\t%.2f\n", s.AvgRecordsPerGroup)
	fmt.Fprintf(w, "Avg group migration rate\t%.2f%%\n", s.AvgMigrationRate)
	w.Flush()
}

// writeReports renders CSV and Markdown outputs for the result set.
func writeReports(spec domain.GroupSpec, winPercent float64, groups []*domain.GroupStats, csvPath, markdownPath string) error {
	report := reporting.NewGenerator().Generate(spec, winPercent, groups)

	if csvPath != "" {
		if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.Groups)), 0644); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		observability.RecordReportGenerated("csv")
	}
	if markdownPath != "" {
		if err := os.WriteFile(markdownPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
			return fmt.Errorf("write markdown: %w", err)
		}
		observability.RecordReportGenerated("markdown")
	}
	return nil
}

// createStore builds the record store for the selected backend. The
// analyze command never migrates; it reads what ingestion wrote.
func createStore(ctx context.Context, backend, postgresDSN, clickhouseDSN string) (storage.TokenRecordStore, func(), error) {
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
		return pgstore.NewTokenRecordStore(pool), pool.Close, nil

	case "clickhouse":
		if clickhouseDSN == "" {
			return nil, nil, fmt.Errorf("--clickhouse-dsn is required for the clickhouse backend")
		}
		conn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
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
