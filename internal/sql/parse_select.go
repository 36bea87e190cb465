package sql

import (
	"fmt"
	"strings"
)

// parseSelect parses a very simple SELECT statement.
// Supported forms (case-insensitive, flexible spaces):
//
//	SELECT * FROM users;
//	SELECT id, name FROM users WHERE id = 1;
//	SELECT * FROM users WHERE name = 'Alice';
func parseSelect(query string) (Statement, error) {
	// query is trimmed and has no trailing semicolon here.

	idxFrom := keywordIndex(query, "FROM")
	if idxFrom == -1 {
		return nil, fmt.Errorf("SELECT: FROM not found")
	}

	listPart := strings.TrimSpace(query[len("SELECT"):idxFrom])
	if listPart == "" {
		return nil, fmt.Errorf("SELECT: missing column list")
	}

	var columns []string
	if listPart != "*" {
		for _, c := range splitCommaSeparated(listPart) {
			if !isIdentifier(c) {
				return nil, fmt.Errorf("SELECT: invalid column %q", c)
			}
			columns = append(columns, c)
		}
		if len(columns) == 0 {
			return nil, fmt.Errorf("SELECT: missing column list")
		}
	}

	afterFrom := strings.TrimSpace(query[idxFrom+len("FROM"):])
	if afterFrom == "" {
		return nil, fmt.Errorf("SELECT: missing table name")
	}

	// Check if there's a WHERE clause in the part after FROM.
	idxWhere := keywordIndex(afterFrom, "WHERE")

	var tableName string
	var wherePart string
	var err error

	if idxWhere == -1 {
		// No WHERE: the rest is just the table name.
		tableName, err = singleName("SELECT", afterFrom)
	} else {
		// There is a WHERE: split table name and where clause.
		tableName, err = singleName("SELECT", afterFrom[:idxWhere])

		wherePart = strings.TrimSpace(afterFrom[idxWhere+len("WHERE"):])
		if err == nil && wherePart == "" {
			return nil, fmt.Errorf("SELECT: empty WHERE clause")
		}
	}
	if err != nil {
		return nil, err
	}

	var where *Predicate
	if wherePart != "" {
		where, err = parseWhereClause(wherePart)
		if err != nil {
			return nil, err
		}
	}

	return &SelectStmt{
		TableName: tableName,
		Columns:   columns,
		Where:     where,
	}, nil
}
