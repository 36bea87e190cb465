package engine

import (
	"fmt"

	"minidb/internal/sql"
	"minidb/internal/storage"
)

// ExecuteQuery parses text as a single statement and executes it.
func (e *DBEngine) ExecuteQuery(sess *Session, text string) Result {
	stmt, err := sql.Parse(text)
	if err != nil {
		return failure(storage.Errorf(storage.CodeSyntaxError, "%v", err))
	}
	return e.Execute(sess, stmt)
}

// Execute takes a parsed SQL Statement and executes it using the engine.
// Every outcome, including failures, is reported as a Result.
func (e *DBEngine) Execute(sess *Session, stmt sql.Statement) (res Result) {
	if !e.isStarted() {
		return failure(errNotStarted)
	}

	defer func() {
		if !res.OK() {
			e.logger.Debug("statement failed",
				"session", sess.ID,
				"db", sess.Database,
				"stmt", fmt.Sprintf("%T", stmt),
				"code", string(res.Code),
				"error", res.Error)
		}
	}()

	switch s := stmt.(type) {
	case *sql.CreateDatabaseStmt:
		return e.executeCreateDatabase(s)
	case *sql.DropDatabaseStmt:
		return e.executeDropDatabase(sess, s)
	case *sql.UseStmt:
		return e.executeUse(sess, s)
	case *sql.ShowDatabasesStmt:
		return e.executeShowDatabases()
	case *sql.ShowTablesStmt:
		return e.executeShowTables(sess)
	case *sql.CreateTableStmt:
		return e.executeCreateTable(sess, s)
	case *sql.DropTableStmt:
		return e.executeDropTable(sess, s)
	case *sql.DescribeStmt:
		return e.executeDescribe(sess, s)
	case *sql.InsertStmt:
		return e.executeInsert(sess, s)
	case *sql.SelectStmt:
		return e.executeSelect(sess, s)
	case *sql.UpdateStmt:
		return e.executeUpdate(sess, s)
	case *sql.DeleteStmt:
		return e.executeDelete(sess, s)
	default:
		return failure(storage.Errorf(storage.CodeSyntaxError, "unsupported statement type %T", stmt))
	}
}

// currentDatabase returns the session's database or errNoDatabase.
func currentDatabase(sess *Session) (string, error) {
	if sess.Database == "" {
		return "", errNoDatabase
	}
	return sess.Database, nil
}
