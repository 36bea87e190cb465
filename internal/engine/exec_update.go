package engine

import (
	"fmt"

	"minidb/internal/sql"
)

// executeUpdate only logs the intent; rows change when the log is folded
// by the next SELECT, so no affected-row count is known here.
func (e *DBEngine) executeUpdate(sess *Session, stmt *sql.UpdateStmt) Result {
	db, err := currentDatabase(sess)
	if err != nil {
		return failure(err)
	}

	t, err := e.store.Table(db, stmt.TableName)
	if err != nil {
		return failure(err)
	}

	if err := t.Update(stmt.Assignments, stmt.Where); err != nil {
		return failure(err)
	}

	return success(fmt.Sprintf("Update operation logged for table '%s'.", stmt.TableName))
}
