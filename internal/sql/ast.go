package sql

// Statement is the common interface for all SQL statements.
type Statement interface {
	stmtNode()
}

// CreateDatabaseStmt represents CREATE DATABASE name.
type CreateDatabaseStmt struct {
	Name string
}

// DropDatabaseStmt represents DROP DATABASE name.
type DropDatabaseStmt struct {
	Name string
}

// UseStmt represents USE name.
type UseStmt struct {
	Name string
}

// ShowDatabasesStmt represents SHOW DATABASES.
type ShowDatabasesStmt struct{}

// ShowTablesStmt represents SHOW TABLES.
type ShowTablesStmt struct{}

// CreateTableStmt represents a parsed CREATE TABLE statement.
type CreateTableStmt struct {
	TableName string
	Columns   []Column
}

// DropTableStmt represents DROP TABLE name.
type DropTableStmt struct {
	TableName string
}

// DescribeStmt represents DESCRIBE name.
type DescribeStmt struct {
	TableName string
}

// InsertStmt represents INSERT INTO name VALUES (...).
type InsertStmt struct {
	TableName string
	Values    Row
}

// SelectStmt represents SELECT cols FROM name [WHERE col = literal].
// An empty Columns list means "*".
type SelectStmt struct {
	TableName string
	Columns   []string
	Where     *Predicate
}

// UpdateStmt represents UPDATE name SET ... WHERE col = literal.
type UpdateStmt struct {
	TableName   string
	Assignments []Assignment
	Where       Predicate
}

// DeleteStmt represents DELETE FROM name WHERE col = literal.
type DeleteStmt struct {
	TableName string
	Where     Predicate
}

func (*CreateDatabaseStmt) stmtNode() {}
func (*DropDatabaseStmt) stmtNode()   {}
func (*UseStmt) stmtNode()            {}
func (*ShowDatabasesStmt) stmtNode()  {}
func (*ShowTablesStmt) stmtNode()     {}
func (*CreateTableStmt) stmtNode()    {}
func (*DropTableStmt) stmtNode()      {}
func (*DescribeStmt) stmtNode()       {}
func (*InsertStmt) stmtNode()         {}
func (*SelectStmt) stmtNode()         {}
func (*UpdateStmt) stmtNode()         {}
func (*DeleteStmt) stmtNode()         {}
