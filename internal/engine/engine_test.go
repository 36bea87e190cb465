package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minidb/internal/sql"
	"minidb/internal/storage"
	"minidb/internal/storage/filestore"
	"minidb/internal/testutil"
)

func newTestEngine(t *testing.T) *DBEngine {
	t.Helper()
	logger := testutil.NewTestLogger(t)
	store, err := filestore.New(t.TempDir(), filestore.Options{SchemaCacheSize: 16, Logger: logger})
	require.NoError(t, err)

	eng := New(store, logger)
	require.NoError(t, eng.Start())
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

// run executes each statement and fails the test on the first error result.
func run(t *testing.T, eng *DBEngine, sess *Session, queries ...string) Result {
	t.Helper()
	var res Result
	for _, q := range queries {
		res = eng.ExecuteQuery(sess, q)
		require.True(t, res.OK(), "%s: %s", q, res.Error)
	}
	return res
}

func setupUsers(t *testing.T) (*DBEngine, *Session) {
	t.Helper()
	eng := newTestEngine(t)
	sess := NewSession()
	run(t, eng, sess,
		"CREATE DATABASE app;",
		"USE app;",
		"CREATE TABLE users (id INT PRIMARY, name TEXT, active BOOL);",
	)
	return eng, sess
}

// TestEngineCreateInsertSelectAll drives the engine with parsed
// statements end-to-end over the file store.
func TestEngineCreateInsertSelectAll(t *testing.T) {
	eng := newTestEngine(t)
	sess := NewSession()
	run(t, eng, sess, "CREATE DATABASE app;", "USE app;")

	exec := func(stmt sql.Statement) Result {
		t.Helper()
		res := eng.Execute(sess, stmt)
		require.True(t, res.OK(), res.Error)
		return res
	}

	exec(&sql.CreateTableStmt{TableName: "users", Columns: []sql.Column{
		{Name: "id", Type: sql.TypeInt, Primary: true},
		{Name: "name", Type: sql.TypeString},
		{Name: "active", Type: sql.TypeBool},
	}})

	row1 := sql.Row{sql.IntValue(1), sql.StringValue("Alice"), sql.BoolValue(true)}
	row2 := sql.Row{sql.IntValue(2), sql.StringValue("Bob"), sql.BoolValue(false)}
	exec(&sql.InsertStmt{TableName: "users", Values: row1})
	exec(&sql.InsertStmt{TableName: "users", Values: row2})

	res := exec(&sql.SelectStmt{TableName: "users"})
	assert.Equal(t, []string{"id", "name", "active"}, res.Columns)
	assert.Equal(t, []sql.Row{row1, row2}, res.Rows)

	res = exec(&sql.ShowTablesStmt{})
	assert.Equal(t, []sql.Row{{sql.StringValue("users")}}, res.Rows)
}

func TestEngineExecute_SelectViaSQL(t *testing.T) {
	eng, sess := setupUsers(t)
	run(t, eng, sess,
		"INSERT INTO users VALUES (1, 'Alice', true);",
		"INSERT INTO users VALUES (2, 'Bob', false);",
	)

	res := run(t, eng, sess, "SELECT * FROM users;")
	assert.Equal(t, []string{"id", "name", "active"}, res.Columns)
	assert.Len(t, res.Rows, 2)
	assert.Equal(t, "2 row(s) selected.", res.Success)
}

func TestEngineExecute_SelectWithWhere(t *testing.T) {
	eng, sess := setupUsers(t)
	run(t, eng, sess,
		"INSERT INTO users VALUES (1, 'Alice', true);",
		"INSERT INTO users VALUES (2, 'Bob', false);",
	)

	res := run(t, eng, sess, "SELECT * FROM users WHERE name = 'Bob';")
	require.Len(t, res.Rows, 1)
	assert.Equal(t, sql.IntValue(2), res.Rows[0][0])
}

func TestEngineExecute_SelectColumnList(t *testing.T) {
	eng, sess := setupUsers(t)
	run(t, eng, sess, "INSERT INTO users VALUES (1, 'Alice', true);")

	res := run(t, eng, sess, "SELECT name, id FROM users;")
	assert.Equal(t, []string{"name", "id"}, res.Columns)
	assert.Equal(t, []sql.Row{{sql.StringValue("Alice"), sql.IntValue(1)}}, res.Rows)

	res = eng.ExecuteQuery(sess, "SELECT nope FROM users;")
	assert.False(t, res.OK())
	assert.Equal(t, storage.CodeUnknownColumn, res.Code)
}

func TestEngineExecute_UpdateWithWhere(t *testing.T) {
	eng, sess := setupUsers(t)
	run(t, eng, sess,
		"INSERT INTO users VALUES (1, 'Alice', true);",
		"INSERT INTO users VALUES (2, 'Bob', false);",
	)

	res := run(t, eng, sess, "UPDATE users SET active = true, name = 'Bobby' WHERE id = 2;")
	assert.Equal(t, "Update operation logged for table 'users'.", res.Success)

	res = run(t, eng, sess, "SELECT * FROM users WHERE id = 2;")
	assert.Equal(t, []sql.Row{{sql.IntValue(2), sql.StringValue("Bobby"), sql.BoolValue(true)}}, res.Rows)
}

func TestEngineExecute_DeleteWithWhere(t *testing.T) {
	eng, sess := setupUsers(t)
	run(t, eng, sess,
		"INSERT INTO users VALUES (1, 'Alice', true);",
		"INSERT INTO users VALUES (2, 'Bob', false);",
		"DELETE FROM users WHERE active = false;",
	)

	res := run(t, eng, sess, "SELECT id FROM users;")
	assert.Equal(t, []sql.Row{{sql.IntValue(1)}}, res.Rows)
}

func TestExecuteUpdateUnknownWhereColumn(t *testing.T) {
	eng, sess := setupUsers(t)
	run(t, eng, sess,
		"INSERT INTO users VALUES (1, 'Alice', true);",
		"UPDATE users SET name = 'X' WHERE ghost = 1;",
	)

	res := run(t, eng, sess, "SELECT name FROM users;")
	assert.Equal(t, []sql.Row{{sql.StringValue("Alice")}}, res.Rows)
}

func TestExecuteDeleteUnknownWhereColumn(t *testing.T) {
	eng, sess := setupUsers(t)
	run(t, eng, sess,
		"INSERT INTO users VALUES (1, 'Alice', true);",
		"DELETE FROM users WHERE ghost = 1;",
	)

	res := run(t, eng, sess, "SELECT * FROM users;")
	assert.Len(t, res.Rows, 1)
}

func TestEngineExecute_InsertErrors(t *testing.T) {
	eng, sess := setupUsers(t)
	run(t, eng, sess, "INSERT INTO users VALUES (1, 'Alice', true);")

	tests := []struct {
		query string
		kind  storage.Kind
		code  storage.Code
	}{
		{"INSERT INTO users VALUES (1, 'Again', true);", storage.KindConstraint, storage.CodeDuplicateKey},
		{"INSERT INTO users VALUES ('x', 'Alice', true);", storage.KindValidation, storage.CodeTypeMismatch},
		{"INSERT INTO users VALUES (3, 'Alice');", storage.KindValidation, storage.CodeColumnCountMismatch},
		{"INSERT INTO users VALUES (NULL, 'Alice', true);", storage.KindValidation, storage.CodeNullPrimaryKey},
		{"INSERT INTO ghosts VALUES (1);", storage.KindNotFound, storage.CodeTableNotFound},
		{"INSERT INTO users VALUES (1, Alice, true);", storage.KindValidation, storage.CodeSyntaxError},
		{"INSERT INTO users VALUES (NaN, 'Alice', true);", storage.KindValidation, storage.CodeSyntaxError},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res := eng.ExecuteQuery(sess, tt.query)
			require.False(t, res.OK())
			assert.Equal(t, tt.kind, res.Kind)
			assert.Equal(t, tt.code, res.Code)
		})
	}
}

func TestEngine_SessionsAreIndependent(t *testing.T) {
	eng, sess := setupUsers(t)
	other := NewSession()
	assert.NotEqual(t, sess.ID, other.ID)

	res := eng.ExecuteQuery(other, "SELECT * FROM users;")
	assert.Equal(t, storage.CodeNoDatabaseSelected, res.Code)

	res = eng.ExecuteQuery(other, "USE nowhere;")
	assert.Equal(t, storage.CodeDatabaseNotFound, res.Code)
	assert.Empty(t, other.Database)

	run(t, eng, other, "USE app;", "SELECT * FROM users;")
}

func TestEngine_ShowDescribeDrop(t *testing.T) {
	eng, sess := setupUsers(t)

	res := run(t, eng, sess, "SHOW DATABASES;")
	assert.Equal(t, []sql.Row{{sql.StringValue("app")}}, res.Rows)

	res = run(t, eng, sess, "SHOW TABLES;")
	assert.Equal(t, []sql.Row{{sql.StringValue("users")}}, res.Rows)

	res = run(t, eng, sess, "DESCRIBE users;")
	assert.Equal(t, []string{"column", "type", "primary"}, res.Columns)
	assert.Equal(t, sql.Row{sql.StringValue("id"), sql.StringValue("INT"), sql.BoolValue(true)}, res.Rows[0])

	run(t, eng, sess, "DROP TABLE users;")
	res = run(t, eng, sess, "SHOW TABLES;")
	assert.Empty(t, res.Rows)

	run(t, eng, sess, "DROP DATABASE app;")
	assert.Empty(t, sess.Database)
}

func TestResultJSON(t *testing.T) {
	eng, sess := setupUsers(t)
	run(t, eng, sess, "INSERT INTO users VALUES (1, 'Alice', true);")

	b, err := json.Marshal(run(t, eng, sess, "SELECT active, id FROM users;"))
	require.NoError(t, err)
	assert.Equal(t, `{"success":"1 row(s) selected.","columns":["active","id"],"data":[{"active":true,"id":1}]}`, string(b))

	b, err = json.Marshal(run(t, eng, sess, "SELECT * FROM users WHERE id = 9;"))
	require.NoError(t, err)
	assert.Equal(t, `{"success":"0 row(s) selected.","columns":["id","name","active"],"data":[]}`, string(b))

	b, err = json.Marshal(eng.ExecuteQuery(sess, "INSERT INTO users VALUES (1, 'B', false);"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"duplicate value 1 for primary key \"id\"","kind":"ConstraintViolation","code":"DuplicateKey"}`, string(b))

	b, err = json.Marshal(run(t, eng, sess, "USE app;"))
	require.NoError(t, err)
	assert.Equal(t, `{"success":"Using database 'app'."}`, string(b))
}

func TestEngine_NotStarted(t *testing.T) {
	store, err := filestore.New(t.TempDir(), filestore.Options{})
	require.NoError(t, err)
	eng := New(store, nil)

	res := eng.ExecuteQuery(NewSession(), "SHOW DATABASES;")
	assert.False(t, res.OK())

	require.NoError(t, eng.Start())
	assert.Error(t, eng.Start())
	require.NoError(t, eng.Close())
}
