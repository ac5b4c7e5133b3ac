package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/edgarulg/orca/pkg/models"
)

// bodyRow is one raw execution or stage row as read from the store. When
// compression is disabled the query never selects the compression columns,
// so CompressionType and CompressedBody stay zero-valued.
type bodyRow struct {
	ID              string
	ExecutionID     string // stage rows only
	Body            sql.NullString
	CompressionType sql.NullString
	CompressedBody  []byte
	Partition       sql.NullString // execution rows only
}

// rowIterator streams store rows to the mapper. *sql.Rows is adapted below;
// tests feed the mapper from slices.
type rowIterator interface {
	Next() (bodyRow, bool, error)
	Close() error
}

type scanFunc func(rows *sql.Rows) (bodyRow, error)

type sqlRowIterator struct {
	rows *sql.Rows
	scan scanFunc
}

func (it *sqlRowIterator) Next() (bodyRow, bool, error) {
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			return bodyRow{}, false, fmt.Errorf("error iterating rows: %w", err)
		}

		return bodyRow{}, false, nil
	}

	row, err := it.scan(it.rows)
	if err != nil {
		return bodyRow{}, false, fmt.Errorf("failed to scan row: %w", err)
	}

	return row, true, nil
}

func (it *sqlRowIterator) Close() error {
	return it.rows.Close()
}

func scanExecutionRow(compressed bool) scanFunc {
	return func(rows *sql.Rows) (bodyRow, error) {
		var row bodyRow

		if compressed {
			err := rows.Scan(&row.ID, &row.Body, &row.CompressionType, &row.CompressedBody, &row.Partition)

			return row, err
		}

		err := rows.Scan(&row.ID, &row.Body, &row.Partition)

		return row, err
	}
}

func scanStageRow(compressed bool) scanFunc {
	return func(rows *sql.Rows) (bodyRow, error) {
		var row bodyRow

		if compressed {
			err := rows.Scan(&row.ID, &row.ExecutionID, &row.Body, &row.CompressionType, &row.CompressedBody)

			return row, err
		}

		err := rows.Scan(&row.ID, &row.ExecutionID, &row.Body)

		return row, err
	}
}

func executionColumns(compressed bool) string {
	if compressed {
		return "id, body, compression_type, compressed_body, partition"
	}

	return "id, body, partition"
}

func stageColumns(compressed bool) string {
	if compressed {
		return "id, execution_id, body, compression_type, compressed_body"
	}

	return "id, execution_id, body"
}

// executionRows reads execution rows for a type, optionally restricted to
// one storage id, newest first. limit <= 0 means no limit.
func (r *Repository) executionRows(ctx context.Context, executionType models.ExecutionType, id string, limit int) (rowIterator, error) {
	compressed := r.cfg.CompressionEnabled

	query := fmt.Sprintf("SELECT %s FROM pipeline_executions WHERE execution_type = $1", executionColumns(compressed))
	args := []any{string(executionType)}

	if id != "" {
		query += " AND id = $2"

		args = append(args, id)
	} else {
		query += " ORDER BY updated_at DESC"
	}

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	return &sqlRowIterator{rows: rows, scan: scanExecutionRow(compressed)}, nil
}

// stageRows reads all stage rows for a batch of execution storage ids in a
// single round-trip.
func (r *Repository) stageRows(ctx context.Context, executionType models.ExecutionType, storageIDs []string) (rowIterator, error) {
	compressed := r.cfg.CompressionEnabled

	query := fmt.Sprintf(
		"SELECT %s FROM pipeline_stages WHERE execution_type = $1 AND execution_id = ANY($2)",
		stageColumns(compressed),
	)

	rows, err := r.db.QueryContext(ctx, query, string(executionType), pq.Array(storageIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query stages: %w", err)
	}

	return &sqlRowIterator{rows: rows, scan: scanStageRow(compressed)}, nil
}
