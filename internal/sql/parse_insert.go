package sql

import (
	"fmt"
	"strings"
)

// parseInsert parses an INSERT INTO ... VALUES (...) statement.
// Example supported syntax:
//
//	INSERT INTO users VALUES (1, 'Alice', true);
func parseInsert(query string) (Statement, error) {
	// At this point:
	// - query is trimmed
	// - trailing ';' removed

	// Locate "INTO" and "VALUES" (case-insensitive)
	idxInto := keywordIndex(query, "INTO")
	if idxInto == -1 {
		return nil, fmt.Errorf("INSERT: missing INTO")
	}

	afterInto := strings.TrimSpace(query[idxInto+len("INTO"):])

	idxValues := keywordIndex(afterInto, "VALUES")
	if idxValues == -1 {
		return nil, fmt.Errorf("INSERT: missing VALUES")
	}

	tableName, err := singleName("INSERT", afterInto[:idxValues])
	if err != nil {
		return nil, err
	}

	rest := strings.TrimSpace(afterInto[idxValues+len("VALUES"):])
	if rest == "" {
		return nil, fmt.Errorf("INSERT: missing VALUES list")
	}

	// rest should start with '(' and end with ')'
	if !strings.HasPrefix(rest, "(") {
		return nil, fmt.Errorf("INSERT: expected '(' after VALUES")
	}
	if !strings.HasSuffix(rest, ")") {
		return nil, fmt.Errorf("INSERT: missing closing ')'")
	}

	valuesPart := strings.TrimSpace(rest[1 : len(rest)-1])
	if valuesPart == "" {
		return nil, fmt.Errorf("INSERT: empty VALUES list")
	}

	// Split value expressions by comma.
	rawVals := splitCommaSeparated(valuesPart)

	vals := make(Row, 0, len(rawVals))
	for _, rv := range rawVals {
		v, err := parseLiteral(rv)
		if err != nil {
			return nil, fmt.Errorf("invalid literal %q: %w", rv, err)
		}
		vals = append(vals, v)
	}

	return &InsertStmt{
		TableName: tableName,
		Values:    vals,
	}, nil
}
