package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/itohio/tracedown/pkg/series"
)

// SQLiteConfig selects a series stored as two columns of a SQLite table.
type SQLiteConfig struct {
	Source      string // Database path
	Table       string
	IndexColumn string
	ValueColumn string
	Timestamps  bool // Index column holds unix microseconds
}

// LoadSQLite reads the configured columns ordered by index.
// NULL values become null samples.
func LoadSQLite(ctx context.Context, cfg SQLiteConfig) (series.Series[float64], error) {
	if cfg.Source == "" {
		return series.Series[float64]{}, fmt.Errorf("sqlite: database path is empty")
	}
	if cfg.Table == "" || cfg.IndexColumn == "" || cfg.ValueColumn == "" {
		return series.Series[float64]{}, fmt.Errorf("sqlite: table, index and value columns are required")
	}

	db, err := sql.Open("sqlite", cfg.Source)
	if err != nil {
		return series.Series[float64]{}, fmt.Errorf("sqlite: open: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return series.Series[float64]{}, fmt.Errorf("sqlite: ping: %w", err)
	}

	idx, val := quoteIdent(cfg.IndexColumn), quoteIdent(cfg.ValueColumn)
	query := fmt.Sprintf("SELECT %s, %s FROM %s ORDER BY %s", idx, val, quoteIdent(cfg.Table), idx)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return series.Series[float64]{}, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()

	s := series.Series[float64]{Name: cfg.ValueColumn, IndexName: cfg.IndexColumn, Kind: series.Numeric}
	if cfg.Timestamps {
		s.Kind = series.Timestamp
	}

	for rows.Next() {
		var (
			smp   series.Sample[float64]
			value sql.NullFloat64
		)
		if cfg.Timestamps {
			var usec int64
			if err := rows.Scan(&usec, &value); err != nil {
				return series.Series[float64]{}, fmt.Errorf("sqlite: scan: %w", err)
			}
			smp.Index.T = time.UnixMicro(usec)
		} else {
			if err := rows.Scan(&smp.Index.X, &value); err != nil {
				return series.Series[float64]{}, fmt.Errorf("sqlite: scan: %w", err)
			}
		}
		smp.Value, smp.Null = value.Float64, !value.Valid
		s.Samples = append(s.Samples, smp)
	}
	if err := rows.Err(); err != nil {
		return series.Series[float64]{}, fmt.Errorf("sqlite: rows: %w", err)
	}

	return s, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
