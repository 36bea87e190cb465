package engine

import (
	"fmt"

	"minidb/internal/sql"
)

// executeSelect folds pending log records, filters and projects.
func (e *DBEngine) executeSelect(sess *Session, stmt *sql.SelectStmt) Result {
	db, err := currentDatabase(sess)
	if err != nil {
		return failure(err)
	}

	t, err := e.store.Table(db, stmt.TableName)
	if err != nil {
		return failure(err)
	}

	cols, rows, err := t.Select(stmt.Columns, stmt.Where)
	if err != nil {
		return failure(err)
	}

	return rowsResult(fmt.Sprintf("%d row(s) selected.", len(rows)), cols, rows)
}
