package sql

import (
	"fmt"
	"strings"
)

// Parse parses a single SQL statement string into an AST Statement.
func Parse(query string) (Statement, error) {
	// Trim leading & trailing whitespace
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("empty query")
	}

	// Remove trailing semicolon if present
	if strings.HasSuffix(q, ";") {
		q = strings.TrimSpace(q[:len(q)-1])
	}

	upper := strings.ToUpper(q)
	tokens := strings.Fields(upper)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("invalid SQL statement")
	}

	switch tokens[0] {
	case "CREATE":
		if len(tokens) >= 2 && tokens[1] == "TABLE" {
			return parseCreateTable(q)
		}
		if len(tokens) >= 2 && tokens[1] == "DATABASE" {
			return parseCreateDatabase(q)
		}
	case "DROP":
		if len(tokens) >= 2 && tokens[1] == "TABLE" {
			return parseDropTable(q)
		}
		if len(tokens) >= 2 && tokens[1] == "DATABASE" {
			return parseDropDatabase(q)
		}
	case "USE":
		return parseUse(q)
	case "SHOW":
		return parseShow(q)
	case "DESCRIBE", "DESC":
		return parseDescribe(q)
	case "INSERT":
		if len(tokens) >= 2 && tokens[1] == "INTO" {
			return parseInsert(q)
		}
	case "SELECT":
		return parseSelect(q)
	case "UPDATE":
		return parseUpdate(q)
	case "DELETE":
		return parseDelete(q)
	}

	return nil, fmt.Errorf("unsupported statement (supported: CREATE/DROP DATABASE, USE, SHOW, CREATE/DROP TABLE, DESCRIBE, INSERT, SELECT, UPDATE, DELETE)")
}

// parseWhereClause parses a simple "column = literal" expression.
func parseWhereClause(wherePart string) (*Predicate, error) {
	// Expect: column [spaces] = [spaces] literal
	idxEq := indexOutsideQuotes(wherePart, '=')
	if idxEq == -1 {
		return nil, fmt.Errorf("WHERE: only '=' operator is supported for now")
	}

	colPart := strings.TrimSpace(wherePart[:idxEq])
	valPart := strings.TrimSpace(wherePart[idxEq+1:])

	if colPart == "" {
		return nil, fmt.Errorf("WHERE: missing column name")
	}
	if !isIdentifier(colPart) {
		return nil, fmt.Errorf("WHERE: invalid column name %q", colPart)
	}
	if valPart == "" {
		return nil, fmt.Errorf("WHERE: missing value after '='")
	}

	val, err := parseLiteral(valPart)
	if err != nil {
		return nil, fmt.Errorf("WHERE: invalid literal %q: %w", valPart, err)
	}

	p := Eq(colPart, val)
	return &p, nil
}

// keywordIndex finds kw as a whole word in query (case-insensitive),
// ignoring occurrences inside quoted literals.
func keywordIndex(query, kw string) int {
	upper := strings.ToUpper(query)
	kw = strings.ToUpper(kw)
	var quote byte
	for i := 0; i+len(kw) <= len(upper); i++ {
		c := upper[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			continue
		}
		if upper[i:i+len(kw)] != kw {
			continue
		}
		if i > 0 && isWordByte(upper[i-1]) {
			continue
		}
		if end := i + len(kw); end < len(upper) && isWordByte(upper[end]) {
			continue
		}
		return i
	}
	return -1
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

// singleName expects exactly one identifier in s.
func singleName(stmt, s string) (string, error) {
	toks := strings.Fields(s)
	if len(toks) == 0 {
		return "", fmt.Errorf("%s: missing name", stmt)
	}
	if len(toks) > 1 {
		return "", fmt.Errorf("%s: unexpected %q after name", stmt, strings.Join(toks[1:], " "))
	}
	if !isIdentifier(toks[0]) {
		return "", fmt.Errorf("%s: invalid name %q", stmt, toks[0])
	}
	return toks[0], nil
}
