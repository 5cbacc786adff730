package sqlengine

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/AntonStoeckl/dialogue-trackerstore-go/config"
)

const (
	createTableSQLite = `CREATE TABLE IF NOT EXISTS %[1]s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sender_id VARCHAR(255) NOT NULL,
	type_name VARCHAR(255) NOT NULL,
	timestamp REAL,
	intent_name VARCHAR(255),
	action_name VARCHAR(255),
	payload_json TEXT
)`

	createTablePostgres = `CREATE TABLE IF NOT EXISTS %[1]s (
	id BIGSERIAL PRIMARY KEY,
	sender_id VARCHAR(255) NOT NULL,
	type_name VARCHAR(255) NOT NULL,
	timestamp DOUBLE PRECISION,
	intent_name VARCHAR(255),
	action_name VARCHAR(255),
	payload_json TEXT
)`

	createTableMySQL = `CREATE TABLE IF NOT EXISTS %[1]s (
	id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	sender_id VARCHAR(255) NOT NULL,
	type_name VARCHAR(255) NOT NULL,
	timestamp DOUBLE,
	intent_name VARCHAR(255),
	action_name VARCHAR(255),
	payload_json LONGTEXT,
	INDEX %[1]s_sender_id_idx (sender_id)
)`

	createIndex = `CREATE INDEX IF NOT EXISTS %[1]s_sender_id_idx ON %[1]s (sender_id)`
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// validateTableName keeps the table name usable inside DDL statements, which can't take bind parameters.
func validateTableName(name string) error {
	if name == "" {
		return ErrEmptyTableName
	}

	if !tableNamePattern.MatchString(name) {
		return errors.Join(ErrInvalidTableName, fmt.Errorf("table name %q", name))
	}

	return nil
}

func schemaStatements(dialect, tableName string) []string {
	switch dialect {
	case config.DialectPostgres:
		return []string{
			fmt.Sprintf(createTablePostgres, tableName),
			fmt.Sprintf(createIndex, tableName),
		}

	case config.DialectMySQL:
		return []string{fmt.Sprintf(createTableMySQL, tableName)}

	default:
		return []string{
			fmt.Sprintf(createTableSQLite, tableName),
			fmt.Sprintf(createIndex, tableName),
		}
	}
}

// CreateTable creates the events table and its sender_id index unless they exist.
func (s *Store) CreateTable(ctx context.Context) error {
	for _, statement := range schemaStatements(s.dialect, s.tableName) {
		if _, err := s.executeStatement(ctx, statement); err != nil {
			s.logError(logMsgCreateTableFailed, err, "")
			return errors.Join(ErrCreatingTableFailed, err)
		}
	}

	return nil
}
