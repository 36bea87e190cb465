package engine

import (
	"fmt"

	"minidb/internal/sql"
	"minidb/internal/storage"
)

func (e *DBEngine) executeCreateDatabase(s *sql.CreateDatabaseStmt) Result {
	if err := e.store.CreateDatabase(s.Name); err != nil {
		return failure(err)
	}
	return success(fmt.Sprintf("Database '%s' created successfully.", s.Name))
}

func (e *DBEngine) executeDropDatabase(sess *Session, s *sql.DropDatabaseStmt) Result {
	if err := e.store.DropDatabase(s.Name); err != nil {
		return failure(err)
	}
	if sess.Database == s.Name {
		sess.Database = ""
	}
	return success(fmt.Sprintf("Database '%s' deleted successfully.", s.Name))
}

func (e *DBEngine) executeUse(sess *Session, s *sql.UseStmt) Result {
	ok, err := e.store.DatabaseExists(s.Name)
	if err != nil {
		return failure(err)
	}
	if !ok {
		return failure(storage.DatabaseNotFound(s.Name))
	}
	sess.Database = s.Name
	return success(fmt.Sprintf("Using database '%s'.", s.Name))
}

func (e *DBEngine) executeShowDatabases() Result {
	dbs, err := e.store.ListDatabases()
	if err != nil {
		return failure(err)
	}
	return rowsResult(fmt.Sprintf("%d database(s).", len(dbs)), []string{"database"}, namesToRows(dbs))
}

func (e *DBEngine) executeShowTables(sess *Session) Result {
	db, err := currentDatabase(sess)
	if err != nil {
		return failure(err)
	}
	tables, err := e.store.ListTables(db)
	if err != nil {
		return failure(err)
	}
	return rowsResult(fmt.Sprintf("%d table(s) in '%s'.", len(tables), db), []string{"table"}, namesToRows(tables))
}

func namesToRows(names []string) []sql.Row {
	rows := make([]sql.Row, len(names))
	for i, n := range names {
		rows[i] = sql.Row{sql.StringValue(n)}
	}
	return rows
}

func (e *DBEngine) executeCreateTable(sess *Session, s *sql.CreateTableStmt) Result {
	db, err := currentDatabase(sess)
	if err != nil {
		return failure(err)
	}
	if err := e.store.CreateTable(db, s.TableName, s.Columns); err != nil {
		return failure(err)
	}
	return success(fmt.Sprintf("Table '%s' created successfully in database '%s'.", s.TableName, db))
}

func (e *DBEngine) executeDropTable(sess *Session, s *sql.DropTableStmt) Result {
	db, err := currentDatabase(sess)
	if err != nil {
		return failure(err)
	}
	if err := e.store.DropTable(db, s.TableName); err != nil {
		return failure(err)
	}
	return success(fmt.Sprintf("Table '%s' deleted successfully.", s.TableName))
}

func (e *DBEngine) executeDescribe(sess *Session, s *sql.DescribeStmt) Result {
	db, err := currentDatabase(sess)
	if err != nil {
		return failure(err)
	}
	sch, err := e.store.TableSchema(db, s.TableName)
	if err != nil {
		return failure(err)
	}

	rows := make([]sql.Row, len(sch.Columns))
	for i, c := range sch.Columns {
		rows[i] = sql.Row{sql.StringValue(c.Name), sql.StringValue(c.Type.String()), sql.BoolValue(c.Primary)}
	}
	return rowsResult(fmt.Sprintf("Table '%s' has %d column(s).", s.TableName, len(rows)),
		[]string{"column", "type", "primary"}, rows)
}
