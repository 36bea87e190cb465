package sql

import (
	"fmt"
	"strings"
)

func parseCreateTable(query string) (Statement, error) {
	// At this point:
	// - query has been trimmed
	// - trailing ';' removed
	// - we already know it's some form of CREATE TABLE

	// Find the opening parenthesis for column list.
	openIdx := strings.Index(query, "(")
	if openIdx == -1 {
		return nil, fmt.Errorf("CREATE TABLE: missing '('")
	}

	// Find the closing parenthesis.
	closeIdx := strings.LastIndex(query, ")")
	if closeIdx == -1 || closeIdx <= openIdx {
		return nil, fmt.Errorf("CREATE TABLE: missing or misplaced ')'")
	}
	if rest := strings.TrimSpace(query[closeIdx+1:]); rest != "" {
		return nil, fmt.Errorf("CREATE TABLE: unexpected %q after column list", rest)
	}

	// "head" contains: CREATE   TABLE   Accounts
	head := strings.TrimSpace(query[:openIdx])
	// "colsPart" contains everything between '(' and ')'
	colsPart := strings.TrimSpace(query[openIdx+1 : closeIdx])
	if colsPart == "" {
		return nil, fmt.Errorf("CREATE TABLE: no column definitions")
	}

	// Example: "create   table   Accounts" → ["create", "table", "Accounts"]
	headTokens := strings.Fields(head)
	if len(headTokens) != 3 {
		return nil, fmt.Errorf("CREATE TABLE: missing table name")
	}
	tableName := headTokens[2]
	if !isIdentifier(tableName) {
		return nil, fmt.Errorf("CREATE TABLE: invalid table name %q", tableName)
	}

	colDefs := splitCommaSeparated(colsPart)
	columns := make([]Column, 0, len(colDefs))
	for _, def := range colDefs {
		col, err := parseColumnDef(def)
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("CREATE TABLE: no valid columns")
	}

	return &CreateTableStmt{
		TableName: tableName,
		Columns:   columns,
	}, nil
}

// parseColumnDef parses "name TYPE [PRIMARY [KEY]]".
func parseColumnDef(def string) (Column, error) {
	parts := strings.Fields(def)
	if len(parts) < 2 {
		return Column{}, fmt.Errorf("invalid column definition: %q", def)
	}

	colName := parts[0]
	if !isIdentifier(colName) {
		return Column{}, fmt.Errorf("invalid column name %q in %q", colName, def)
	}

	dt, err := ParseDataType(parts[1])
	if err != nil {
		return Column{}, fmt.Errorf("%w in %q", err, def)
	}

	col := Column{Name: colName, Type: dt}
	constraints := parts[2:]
	for i := 0; i < len(constraints); i++ {
		switch strings.ToUpper(constraints[i]) {
		case "PRIMARY":
			col.Primary = true
			if i+1 < len(constraints) && strings.EqualFold(constraints[i+1], "KEY") {
				i++
			}
		default:
			return Column{}, fmt.Errorf("unknown constraint %q in %q", constraints[i], def)
		}
	}
	return col, nil
}
