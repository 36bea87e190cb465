package sql

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanStatements(t *testing.T) {
	input := "USE app; INSERT INTO t VALUES (1, 'a;b');\nSELECT * FROM t WHERE s = \"x;\" ;  ;tail"
	sc := bufio.NewScanner(strings.NewReader(input))
	sc.Split(ScanStatements)

	var got []string
	for sc.Scan() {
		got = append(got, strings.TrimSpace(sc.Text()))
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, []string{
		"USE app",
		"INSERT INTO t VALUES (1, 'a;b')",
		`SELECT * FROM t WHERE s = "x;"`,
		"",
	}, got)
}

func TestTerminated(t *testing.T) {
	assert.True(t, Terminated("SELECT * FROM t;"))
	assert.True(t, Terminated("SELECT * FROM t WHERE a = 'x;y';  \n"))
	assert.True(t, Terminated("USE a; SELECT * FROM t;"))
	assert.False(t, Terminated("SELECT * FROM t WHERE a = 'x;"))
	assert.False(t, Terminated("USE a; SELECT 'b;"))
	assert.False(t, Terminated("USE a; SELECT *"))
	assert.False(t, Terminated("SELECT *"))
}

func TestSplitStatements(t *testing.T) {
	got := SplitStatements("USE a;; INSERT INTO t VALUES ('x;y');\n SELECT * FROM t")
	assert.Equal(t, []string{"USE a", "INSERT INTO t VALUES ('x;y')", "SELECT * FROM t"}, got)
	assert.Empty(t, SplitStatements(" ; ;\n"))
}
