package engine

import (
	"fmt"

	"minidb/internal/sql"
)

func (e *DBEngine) executeInsert(sess *Session, stmt *sql.InsertStmt) Result {
	db, err := currentDatabase(sess)
	if err != nil {
		return failure(err)
	}

	t, err := e.store.Table(db, stmt.TableName)
	if err != nil {
		return failure(err)
	}

	// Values must match schema order; the table validates count and types.
	if err := t.Insert(stmt.Values); err != nil {
		return failure(err)
	}

	return success(fmt.Sprintf("Insert operation logged for table '%s' (1 row).", stmt.TableName))
}
