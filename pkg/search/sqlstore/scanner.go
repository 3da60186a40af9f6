package sqlstore

import (
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

type (
	// Scanner abstracts row scanning so that tests can swap the mapping.
	Scanner interface {
		ScanAll(dst any, rows pgx.Rows) error
		ScanRow(dst any, rows pgx.Rows) error
	}

	// PgxScanner implements Scanner using pgxscan.
	PgxScanner struct{}
)

func NewPgxScanner() *PgxScanner {
	return &PgxScanner{}
}

// ScanAll scans all rows into the destination slice and closes rows.
func (s *PgxScanner) ScanAll(dst any, rows pgx.Rows) error {
	return pgxscan.ScanAll(dst, rows)
}

// ScanRow scans the current row into dst. The caller drives rows.Next.
func (s *PgxScanner) ScanRow(dst any, rows pgx.Rows) error {
	return pgxscan.ScanRow(dst, rows)
}
