package dataaccess

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"procurement-assistant/internal/models"
	"procurement-assistant/internal/pipeline/dataaccess/queries"
)

// PostgresStore runs parameterized read-only queries through lib/pq.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) QueryMatrix(ctx context.Context, filters models.Filters) (Result, error) {
	query, args := queries.Matrix(filters)
	return s.run(ctx, query, args, queries.MatrixColumns)
}

func (s *PostgresStore) PrioritySummary(ctx context.Context) (Result, error) {
	return s.run(ctx, queries.PrioritySummary(), nil, queries.SummaryColumns)
}

func (s *PostgresStore) SearchVendors(ctx context.Context, term string, limit int) (Result, error) {
	query, args := queries.VendorSearch(term, limit)
	return s.run(ctx, query, args, queries.SearchColumns)
}

func (s *PostgresStore) run(ctx context.Context, query string, args []interface{}, columns []string) (Result, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	out := []models.Row{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, fmt.Errorf("scan row: %w", err)
		}

		row := make(models.Row, len(columns))
		for i, col := range columns {
			row[col] = normalize(col, values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}
	return Result{Rows: out, Query: query}, nil
}

// normalize turns driver values into plain Go scalars. lib/pq hands NUMERIC
// columns back as text; a numeric column that does not parse is kept as a
// string so the facade can reject the row.
func normalize(column string, v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if !queries.NumericColumns[column] {
		return v
	}
	switch n := v.(type) {
	case int64:
		if column == "transaction_count" || column == "case_count" {
			return int(n)
		}
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
	}
	return v
}
