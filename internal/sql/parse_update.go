package sql

import (
	"fmt"
	"strings"
)

// parseUpdate parses:
//
//	UPDATE tableName SET col1 = value1, col2 = value2 WHERE column = literal;
func parseUpdate(query string) (Statement, error) {
	q := strings.TrimSpace(query)

	// strip "UPDATE"
	rest := strings.TrimSpace(q[len("UPDATE"):])

	// find SET
	idxSet := keywordIndex(rest, "SET")
	if idxSet == -1 {
		return nil, fmt.Errorf("UPDATE: missing SET")
	}

	tableName, err := singleName("UPDATE", rest[:idxSet])
	if err != nil {
		return nil, err
	}

	afterSet := strings.TrimSpace(rest[idxSet+len("SET"):])
	if afterSet == "" {
		return nil, fmt.Errorf("UPDATE: missing assignments after SET")
	}

	idxWhere := keywordIndex(afterSet, "WHERE")
	if idxWhere == -1 {
		// Require WHERE to avoid accidental full-table updates.
		return nil, fmt.Errorf("UPDATE: WHERE clause required")
	}

	assignsPart := strings.TrimSpace(afterSet[:idxWhere])
	wherePart := strings.TrimSpace(afterSet[idxWhere+len("WHERE"):])
	if assignsPart == "" {
		return nil, fmt.Errorf("UPDATE: empty SET assignments")
	}
	if wherePart == "" {
		return nil, fmt.Errorf("UPDATE: empty WHERE clause")
	}

	// Parse assignments: "col1 = val1, col2 = val2"
	assignDefs := splitCommaSeparated(assignsPart)
	assignments := make([]Assignment, 0, len(assignDefs))
	seen := make(map[string]bool, len(assignDefs))

	for _, def := range assignDefs {
		idxEq := indexOutsideQuotes(def, '=')
		if idxEq == -1 {
			return nil, fmt.Errorf("UPDATE: expected '=' in assignment %q", def)
		}

		colPart := strings.TrimSpace(def[:idxEq])
		valPart := strings.TrimSpace(def[idxEq+1:])

		if !isIdentifier(colPart) || valPart == "" {
			return nil, fmt.Errorf("UPDATE: invalid assignment %q", def)
		}
		if seen[colPart] {
			return nil, fmt.Errorf("UPDATE: column %q assigned twice", colPart)
		}
		seen[colPart] = true

		val, err := parseLiteral(valPart)
		if err != nil {
			return nil, fmt.Errorf("UPDATE: invalid literal %q: %w", valPart, err)
		}

		assignments = append(assignments, Assignment{
			Column: colPart,
			Value:  val,
		})
	}

	if len(assignments) == 0 {
		return nil, fmt.Errorf("UPDATE: no valid assignments")
	}

	whereExpr, err := parseWhereClause(wherePart)
	if err != nil {
		return nil, err
	}

	return &UpdateStmt{
		TableName:   tableName,
		Assignments: assignments,
		Where:       *whereExpr,
	}, nil
}
