// Package export dumps the crawl database to CSV files, one per table,
// for spreadsheet users and downstream notebooks.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Tables lists every exported table in dump order.
var Tables = []string{"products", "variants", "reviews", "materials", "product_materials"}

type queryPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Exporter streams tables to CSV.
type Exporter struct {
	pool   queryPool
	logger *zap.Logger
}

func New(pool queryPool, logger *zap.Logger) *Exporter {
	return &Exporter{pool: pool, logger: logger}
}

// ExportAll writes <table>.csv for every table into dir, creating it if
// needed. It stops on the first failing table.
func (e *Exporter) ExportAll(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	for _, table := range Tables {
		path := filepath.Join(dir, table+".csv")
		n, err := e.ExportTable(ctx, table, path)
		if err != nil {
			return fmt.Errorf("export %s: %w", table, err)
		}
		e.logger.Info("table exported",
			zap.String("table", table),
			zap.String("path", path),
			zap.Int("rows", n))
	}
	return nil
}

// ExportTable writes one table to path and returns the row count. The
// header row comes from the result set's column names.
func (e *Exporter) ExportTable(ctx context.Context, table, path string) (int, error) {
	rows, err := e.pool.Query(ctx, "SELECT * FROM "+table+" ORDER BY id")
	if err != nil {
		return 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	fields := rows.FieldDescriptions()
	header := make([]string, len(fields))
	for i, fd := range fields {
		header[i] = fd.Name
	}
	if err := w.Write(header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	count := 0
	record := make([]string, len(fields))
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return count, fmt.Errorf("read row: %w", err)
		}
		for i, v := range values {
			record[i] = formatValue(v)
		}
		if err := w.Write(record); err != nil {
			return count, fmt.Errorf("write row: %w", err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return count, fmt.Errorf("iterate rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return count, fmt.Errorf("flush: %w", err)
	}
	return count, f.Close()
}

// formatValue renders a database value the way spreadsheets expect:
// NULL as empty, timestamps as RFC 3339, floats without trailing zeros.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
