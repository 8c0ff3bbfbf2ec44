package sql

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// SQLiteDialect implements SQLDialect for SQLite
type SQLiteDialect struct {
	BaseDialect
}

func (d *SQLiteDialect) PlaceholderFormat() string {
	return "?"
}

func (d *SQLiteDialect) TimeType() string {
	return "DATETIME"
}

func (d *SQLiteDialect) SchemaSQL(tableName string) []string {
	return baseSchemaSQL(tableName, d.TimeType())
}

// PostgresDialect implements SQLDialect for PostgreSQL
type PostgresDialect struct {
	BaseDialect
}

func (d *PostgresDialect) PlaceholderFormat() string {
	return "$"
}

func (d *PostgresDialect) TimeType() string {
	return "TIMESTAMP WITH TIME ZONE"
}

func (d *PostgresDialect) SchemaSQL(tableName string) []string {
	return baseSchemaSQL(tableName, d.TimeType())
}

// MySQLDialect implements SQLDialect for MySQL
type MySQLDialect struct {
	BaseDialect
}

func (d *MySQLDialect) PlaceholderFormat() string {
	return "?"
}

func (d *MySQLDialect) TimeType() string {
	return "DATETIME(6)"
}

// SchemaSQL declares indexes inline; MySQL has no CREATE INDEX IF NOT EXISTS
func (d *MySQLDialect) SchemaSQL(tableName string) []string {
	return []string{fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(36) PRIMARY KEY,
			outcome VARCHAR(20) NOT NULL,
			user_id BIGINT NOT NULL DEFAULT 0,
			username VARCHAR(255) NOT NULL DEFAULT '',
			auth_date BIGINT NOT NULL DEFAULT 0,
			hash VARCHAR(128) NOT NULL DEFAULT '',
			error TEXT,
			remote_addr VARCHAR(64) NOT NULL DEFAULT '',
			created_at %s NOT NULL,
			INDEX idx_%s_created_at (created_at),
			INDEX idx_%s_outcome (outcome),
			INDEX idx_%s_user_id (user_id)
		)
	`, tableName, d.TimeType(), tableName, tableName, tableName)}
}

// InsertIgnore uses MySQL's INSERT IGNORE
func (d *MySQLDialect) InsertIgnore(query sq.InsertBuilder) sq.InsertBuilder {
	return query.Options("IGNORE")
}
