package table

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minidb/internal/sql"
	"minidb/internal/storage"
	"minidb/internal/storage/schema"
	"minidb/internal/storage/snapshot"
	"minidb/internal/storage/wal"
	"minidb/internal/testutil"
)

func newUsersTable(t *testing.T) (*Table, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "users")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	sch, err := schema.New([]sql.Column{
		{Name: "id", Type: sql.TypeInt, Primary: true},
		{Name: "name", Type: sql.TypeString},
	})
	require.NoError(t, err)

	tbl, err := Open("app", "users", dir, sch, Options{SyncWrites: true, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tbl.Close() })
	return tbl, dir
}

func user(id int64, name string) sql.Row {
	return sql.Row{sql.IntValue(id), sql.StringValue(name)}
}

func walLines(t *testing.T, dir string) int {
	t.Helper()
	data, err := os.ReadFile(wal.Path(dir))
	require.NoError(t, err)
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}

func TestUsersScenario(t *testing.T) {
	tbl, _ := newUsersTable(t)

	require.NoError(t, tbl.Insert(user(1, "a")))

	err := tbl.Insert(user(1, "b"))
	require.Error(t, err)
	assert.Equal(t, storage.CodeDuplicateKey, storage.CodeOf(err))
	assert.Equal(t, storage.KindConstraint, storage.KindOf(err))

	where := sql.Eq("id", sql.IntValue(1))
	cols, rows, err := tbl.Select(nil, &where)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, cols)
	assert.Equal(t, []sql.Row{user(1, "a")}, rows)

	require.NoError(t, tbl.Update([]sql.Assignment{{Column: "name", Value: sql.StringValue("c")}}, where))
	_, rows, err = tbl.Select(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []sql.Row{user(1, "c")}, rows)

	require.NoError(t, tbl.Delete(where))
	_, rows, err = tbl.Select(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestInsertValidationWritesNothing(t *testing.T) {
	tbl, dir := newUsersTable(t)

	tests := []struct {
		name string
		row  sql.Row
		code storage.Code
	}{
		{"too few", sql.Row{sql.IntValue(1)}, storage.CodeColumnCountMismatch},
		{"text into int", sql.Row{sql.StringValue("x"), sql.StringValue("a")}, storage.CodeTypeMismatch},
		{"float into int", sql.Row{sql.FloatValue(1.5), sql.StringValue("a")}, storage.CodeTypeMismatch},
		{"null key", sql.Row{sql.NullValue(), sql.StringValue("a")}, storage.CodeNullPrimaryKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tbl.Insert(tt.row)
			require.Error(t, err)
			assert.Equal(t, tt.code, storage.CodeOf(err))
			assert.Equal(t, storage.KindValidation, storage.KindOf(err))
		})
	}

	assert.Equal(t, 0, walLines(t, dir))
}

func TestInsertDurableBeforeReturn(t *testing.T) {
	tbl, dir := newUsersTable(t)
	require.NoError(t, tbl.Insert(user(1, "a")))

	other, err := wal.Open(dir, tbl.Schema().Columns, wal.Options{})
	require.NoError(t, err)
	defer other.Close()

	recs, err := other.ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, user(1, "a"), recs[0].Row)
}

func TestFloatAcceptsInt(t *testing.T) {
	dir := t.TempDir()
	sch, err := schema.New([]sql.Column{{Name: "k", Type: sql.TypeString, Primary: true}, {Name: "price", Type: sql.TypeFloat}})
	require.NoError(t, err)
	tbl, err := Open("app", "items", dir, sch, Options{})
	require.NoError(t, err)
	defer tbl.Close()

	require.NoError(t, tbl.Insert(sql.Row{sql.StringValue("a"), sql.IntValue(3)}))
	require.NoError(t, tbl.Insert(sql.Row{sql.StringValue("b"), sql.NullValue()}))

	_, rows, err := tbl.Select([]string{"price"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []sql.Row{{sql.FloatValue(3)}, {sql.NullValue()}}, rows)
}

func TestDeletedKeyCanBeReinserted(t *testing.T) {
	tbl, _ := newUsersTable(t)
	require.NoError(t, tbl.Insert(user(1, "a")))
	require.NoError(t, tbl.Delete(sql.Eq("id", sql.IntValue(1))))

	require.NoError(t, tbl.Insert(user(1, "again")))

	_, rows, err := tbl.Select(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []sql.Row{user(1, "again")}, rows)
}

func TestUpdatedKeyIsTracked(t *testing.T) {
	tbl, _ := newUsersTable(t)
	require.NoError(t, tbl.Insert(user(1, "a")))
	require.NoError(t, tbl.Update([]sql.Assignment{{Column: "id", Value: sql.IntValue(2)}}, sql.Eq("id", sql.IntValue(1))))

	require.NoError(t, tbl.Insert(user(1, "b")))
	err := tbl.Insert(user(2, "c"))
	assert.Equal(t, storage.CodeDuplicateKey, storage.CodeOf(err))
}

func TestSelectFoldsAndTruncates(t *testing.T) {
	tbl, dir := newUsersTable(t)
	require.NoError(t, tbl.Insert(user(1, "a")))
	require.NoError(t, tbl.Insert(user(2, "b")))
	require.Equal(t, 2, walLines(t, dir))

	_, rows, err := tbl.Select([]string{"name"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []sql.Row{{sql.StringValue("a")}, {sql.StringValue("b")}}, rows)

	assert.Equal(t, 0, walLines(t, dir))
	stored, err := snapshot.Read(dir, tbl.Schema().Columns)
	require.NoError(t, err)
	assert.Equal(t, []sql.Row{user(1, "a"), user(2, "b")}, stored)

	_, again, err := tbl.Select([]string{"name"}, nil)
	require.NoError(t, err)
	assert.Equal(t, rows, again)
}

func TestSelectFilters(t *testing.T) {
	tbl, _ := newUsersTable(t)
	require.NoError(t, tbl.Insert(user(1, "a")))
	require.NoError(t, tbl.Insert(user(2, "b")))

	where := sql.Eq("id", sql.StringValue("2"))
	_, rows, err := tbl.Select(nil, &where)
	require.NoError(t, err)
	assert.Equal(t, []sql.Row{user(2, "b")}, rows)

	where = sql.Eq("id", sql.StringValue("two"))
	_, rows, err = tbl.Select(nil, &where)
	require.NoError(t, err)
	assert.Empty(t, rows)

	where = sql.Eq("ghost", sql.IntValue(1))
	_, rows, err = tbl.Select(nil, &where)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, _, err = tbl.Select([]string{"ghost"}, nil)
	assert.Equal(t, storage.CodeUnknownColumn, storage.CodeOf(err))
}

func TestMalformedUpdateIsSkippedWithWarning(t *testing.T) {
	dir := t.TempDir()
	sch, err := schema.New([]sql.Column{{Name: "id", Type: sql.TypeInt, Primary: true}, {Name: "name", Type: sql.TypeString}})
	require.NoError(t, err)

	logger, logs := testutil.NewCapturingLogger(t)
	tbl, err := Open("app", "users", dir, sch, Options{Logger: logger})
	require.NoError(t, err)
	defer tbl.Close()

	require.NoError(t, tbl.Insert(user(1, "a")))
	require.NoError(t, tbl.Update([]sql.Assignment{{Column: "ghost", Value: sql.IntValue(1)}}, sql.Eq("id", sql.IntValue(1))))

	_, rows, err := tbl.Select(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []sql.Row{user(1, "a")}, rows)
	assert.Contains(t, logs.String(), "skipped log record during replay")
	assert.Contains(t, logs.String(), "UnknownColumn")
}

func TestCorruptLogFailsSelectAndLeavesFiles(t *testing.T) {
	tbl, dir := newUsersTable(t)
	require.NoError(t, tbl.Insert(user(1, "a")))

	f, err := os.OpenFile(wal.Path(dir), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	before, err := os.ReadFile(wal.Path(dir))
	require.NoError(t, err)

	_, _, err = tbl.Select(nil, nil)
	require.Error(t, err)
	assert.Equal(t, storage.CodeCorruptRecord, storage.CodeOf(err))

	after, err := os.ReadFile(wal.Path(dir))
	require.NoError(t, err)
	assert.Equal(t, before, after)
	_, err = os.Stat(snapshot.Path(dir))
	assert.True(t, os.IsNotExist(err))
}

func TestReopenReplaysLeftoverLog(t *testing.T) {
	tbl, dir := newUsersTable(t)
	require.NoError(t, tbl.Insert(user(1, "a")))
	require.NoError(t, tbl.Insert(user(2, "b")))
	require.NoError(t, tbl.Delete(sql.Eq("id", sql.IntValue(1))))
	require.NoError(t, tbl.Close())

	reopened, err := Open("app", "users", dir, tbl.Schema(), Options{})
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.Insert(user(1, "again")))
	err = reopened.Insert(user(2, "dup"))
	assert.Equal(t, storage.CodeDuplicateKey, storage.CodeOf(err))

	_, rows, err := reopened.Select(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []sql.Row{user(2, "b"), user(1, "again")}, rows)
}

func TestClosedTableIsNotFound(t *testing.T) {
	tbl, _ := newUsersTable(t)
	require.NoError(t, tbl.Close())

	assert.Equal(t, storage.CodeTableNotFound, storage.CodeOf(tbl.Insert(user(1, "a"))))
	assert.Equal(t, storage.CodeTableNotFound, storage.CodeOf(tbl.Delete(sql.Eq("id", sql.IntValue(1)))))
	_, _, err := tbl.Select(nil, nil)
	assert.Equal(t, storage.CodeTableNotFound, storage.CodeOf(err))
	assert.NoError(t, tbl.Close())
}

func TestConcurrentDuplicateInsertsAdmitOne(t *testing.T) {
	tbl, _ := newUsersTable(t)

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		dups    int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := tbl.Insert(user(42, "x"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case storage.IsCode(err, storage.CodeDuplicateKey):
				dups++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, workers-1, dups)

	_, rows, err := tbl.Select(nil, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestNoPrimaryKeyAllowsDuplicates(t *testing.T) {
	dir := t.TempDir()
	sch, err := schema.New([]sql.Column{{Name: "v", Type: sql.TypeBool}})
	require.NoError(t, err)
	tbl, err := Open("app", "flags", dir, sch, Options{})
	require.NoError(t, err)
	defer tbl.Close()

	require.NoError(t, tbl.Insert(sql.Row{sql.BoolValue(true)}))
	require.NoError(t, tbl.Insert(sql.Row{sql.BoolValue(true)}))

	_, rows, err := tbl.Select(nil, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func newMeasurementsTable(t *testing.T, pk string) (*Table, string, *testutil.LogBuffer) {
	t.Helper()
	dir := t.TempDir()
	sch, err := schema.New([]sql.Column{
		{Name: "id", Type: sql.TypeInt, Primary: pk == "id"},
		{Name: "f", Type: sql.TypeFloat, Primary: pk == "f"},
	})
	require.NoError(t, err)

	logger, logs := testutil.NewCapturingLogger(t)
	tbl, err := Open("app", "m", dir, sch, Options{SyncWrites: true, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tbl.Close() })
	return tbl, dir, logs
}

func TestNonFiniteInsertIsRejected(t *testing.T) {
	tbl, dir, _ := newMeasurementsTable(t, "id")

	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := tbl.Insert(sql.Row{sql.IntValue(1), sql.FloatValue(f)})
		require.Error(t, err)
		assert.Equal(t, storage.CodeTypeMismatch, storage.CodeOf(err))
		assert.Equal(t, storage.KindValidation, storage.KindOf(err))
	}
	assert.Equal(t, 0, walLines(t, dir))

	require.NoError(t, tbl.Insert(sql.Row{sql.IntValue(1), sql.FloatValue(1)}))
}

func TestNonFiniteUpdateIsSkipped(t *testing.T) {
	tbl, dir, logs := newMeasurementsTable(t, "id")
	require.NoError(t, tbl.Insert(sql.Row{sql.IntValue(1), sql.FloatValue(1)}))

	where := sql.Eq("id", sql.IntValue(1))
	for _, v := range []sql.Value{
		sql.FloatValue(math.NaN()),
		sql.FloatValue(math.Inf(1)),
		sql.StringValue("-Inf"),
	} {
		require.NoError(t, tbl.Update([]sql.Assignment{{Column: "f", Value: v}}, where))
	}
	require.NoError(t, tbl.Update([]sql.Assignment{{Column: "f", Value: sql.FloatValue(2)}}, where))

	for range 2 {
		_, rows, err := tbl.Select(nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []sql.Row{{sql.IntValue(1), sql.FloatValue(2)}}, rows)
	}
	assert.Equal(t, 0, walLines(t, dir))
	assert.Contains(t, logs.String(), "TypeMismatch")

	require.NoError(t, tbl.Insert(sql.Row{sql.IntValue(2), sql.FloatValue(2)}))
	_, rows, err := tbl.Select(nil, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestFloatKeyNegativeZeroIsDuplicate(t *testing.T) {
	tbl, dir, _ := newMeasurementsTable(t, "f")
	negZero := sql.FloatValue(math.Copysign(0, -1))

	require.NoError(t, tbl.Insert(sql.Row{sql.IntValue(1), sql.FloatValue(0)}))
	err := tbl.Insert(sql.Row{sql.IntValue(2), negZero})
	require.Error(t, err)
	assert.Equal(t, storage.CodeDuplicateKey, storage.CodeOf(err))
	assert.Equal(t, 1, walLines(t, dir))

	require.NoError(t, tbl.Insert(sql.Row{sql.IntValue(3), sql.FloatValue(1)}))
	require.NoError(t, tbl.Update([]sql.Assignment{{Column: "f", Value: negZero}}, sql.Eq("id", sql.IntValue(3))))

	where := sql.Eq("f", sql.IntValue(0))
	_, rows, err := tbl.Select(nil, &where)
	require.NoError(t, err)
	assert.Equal(t, []sql.Row{{sql.IntValue(1), sql.FloatValue(0)}}, rows)
}
