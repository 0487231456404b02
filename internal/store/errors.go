package store

import (
	"database/sql"
	"fmt"

	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
)

// expectOneRow turns a compare-and-set update that matched nothing into a
// state conflict.
func expectOneRow(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n != 1 {
		return bracket.Conflictf(format, args...)
	}
	return nil
}
