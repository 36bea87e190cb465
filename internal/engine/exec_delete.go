package engine

import (
	"fmt"

	"minidb/internal/sql"
)

func (e *DBEngine) executeDelete(sess *Session, stmt *sql.DeleteStmt) Result {
	db, err := currentDatabase(sess)
	if err != nil {
		return failure(err)
	}

	t, err := e.store.Table(db, stmt.TableName)
	if err != nil {
		return failure(err)
	}

	if err := t.Delete(stmt.Where); err != nil {
		return failure(err)
	}

	return success(fmt.Sprintf("Delete operation logged for table '%s'.", stmt.TableName))
}
