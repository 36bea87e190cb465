package sql

import (
	"fmt"
	"strings"
)

// parseDelete parses:
//
//	DELETE FROM tableName WHERE column = literal;
func parseDelete(query string) (Statement, error) {
	q := strings.TrimSpace(query)

	// Expect "DELETE FROM ..."
	rest := strings.TrimSpace(q[len("DELETE"):])
	if rest == "" {
		return nil, fmt.Errorf("DELETE: missing FROM")
	}

	if keywordIndex(rest, "FROM") != 0 {
		return nil, fmt.Errorf("DELETE: expected FROM after DELETE")
	}

	afterFrom := strings.TrimSpace(rest[len("FROM"):])
	if afterFrom == "" {
		return nil, fmt.Errorf("DELETE: missing table name")
	}

	idxWhere := keywordIndex(afterFrom, "WHERE")
	if idxWhere == -1 {
		// for safety, require WHERE
		return nil, fmt.Errorf("DELETE: WHERE clause required")
	}

	tableName, err := singleName("DELETE", afterFrom[:idxWhere])
	if err != nil {
		return nil, err
	}

	wherePart := strings.TrimSpace(afterFrom[idxWhere+len("WHERE"):])
	if wherePart == "" {
		return nil, fmt.Errorf("DELETE: empty WHERE clause")
	}

	whereExpr, err := parseWhereClause(wherePart)
	if err != nil {
		return nil, err
	}

	return &DeleteStmt{
		TableName: tableName,
		Where:     *whereExpr,
	}, nil
}
