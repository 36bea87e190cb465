package sql

import (
	"fmt"
	"strings"
)

func parseCreateDatabase(query string) (Statement, error) {
	// "CREATE DATABASE shop" → ["CREATE", "DATABASE", "shop"]
	fields := strings.Fields(query)
	name, err := singleName("CREATE DATABASE", strings.Join(fields[2:], " "))
	if err != nil {
		return nil, err
	}
	return &CreateDatabaseStmt{Name: name}, nil
}

func parseDropDatabase(query string) (Statement, error) {
	fields := strings.Fields(query)
	name, err := singleName("DROP DATABASE", strings.Join(fields[2:], " "))
	if err != nil {
		return nil, err
	}
	return &DropDatabaseStmt{Name: name}, nil
}

func parseUse(query string) (Statement, error) {
	fields := strings.Fields(query)
	name, err := singleName("USE", strings.Join(fields[1:], " "))
	if err != nil {
		return nil, err
	}
	return &UseStmt{Name: name}, nil
}

// parseShow parses SHOW DATABASES and SHOW TABLES.
func parseShow(query string) (Statement, error) {
	fields := strings.Fields(strings.ToUpper(query))
	if len(fields) != 2 {
		return nil, fmt.Errorf("SHOW: expected SHOW DATABASES or SHOW TABLES")
	}
	switch fields[1] {
	case "DATABASES":
		return &ShowDatabasesStmt{}, nil
	case "TABLES":
		return &ShowTablesStmt{}, nil
	default:
		return nil, fmt.Errorf("SHOW: unknown object %q", fields[1])
	}
}

func parseDropTable(query string) (Statement, error) {
	fields := strings.Fields(query)
	name, err := singleName("DROP TABLE", strings.Join(fields[2:], " "))
	if err != nil {
		return nil, err
	}
	return &DropTableStmt{TableName: name}, nil
}

func parseDescribe(query string) (Statement, error) {
	fields := strings.Fields(query)
	name, err := singleName("DESCRIBE", strings.Join(fields[1:], " "))
	if err != nil {
		return nil, err
	}
	return &DescribeStmt{TableName: name}, nil
}
