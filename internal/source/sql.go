package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mpawlak/statsync/pkg/logger"
	"github.com/mpawlak/statsync/pkg/models"
)

const sqlPageSize = 5000

// SQLSource reads a category's rows from a SQL Server staging table. The
// stats provider can land rows there instead of exporting CSV files; both
// paths feed the same normalize/partition/write sequence. Rows are paged
// out in stable key order so the sequence is identical across runs.
type SQLSource struct {
	DB *sql.DB
}

func NewSQLSource(db *sql.DB) *SQLSource {
	return &SQLSource{DB: db}
}

func (s *SQLSource) Rows(ctx context.Context, cat models.Category) ([]models.RawRecord, error) {
	table := stagingTable(cat)
	order := orderColumns(cat)

	var rows []models.RawRecord
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s OFFSET %d ROWS FETCH NEXT %d ROWS ONLY",
			table, order, offset, sqlPageSize)
		page, err := s.queryPage(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("reading staging table %s: %w", table, err)
		}
		if len(page) == 0 {
			break
		}
		rows = append(rows, page...)
		offset += len(page)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("staging table %s is empty", table)
	}
	logger.Infof("%s: read %d rows from staging table %s", cat, len(rows), table)
	return rows, nil
}

func (s *SQLSource) queryPage(ctx context.Context, query string) ([]models.RawRecord, error) {
	res, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	cols, err := res.Columns()
	if err != nil {
		return nil, err
	}

	var page []models.RawRecord
	for res.Next() {
		values := make([]sql.NullString, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := res.Scan(ptrs...); err != nil {
			return nil, err
		}

		rec := make(models.RawRecord, len(cols))
		for i, col := range cols {
			if values[i].Valid {
				rec[col] = values[i].String
			}
		}
		page = append(page, rec)
	}
	return page, res.Err()
}

func stagingTable(cat models.Category) string {
	return "staging_" + string(cat)
}

func orderColumns(cat models.Category) string {
	switch cat {
	case models.CategoryWeekly:
		return "season, week, player_id"
	default:
		return "season, player_id"
	}
}
