package sql

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// SQLDialect defines database-specific SQL syntax
type SQLDialect interface {
	// PlaceholderFormat returns the format for SQL placeholders ("?" or "$")
	PlaceholderFormat() string

	// TimeType returns the column type for storing timestamps
	TimeType() string

	// SchemaSQL returns the statements creating the attempts table and its
	// indexes, one statement per element
	SchemaSQL(tableName string) []string

	// InsertIgnore makes an insert a no-op when the primary key exists
	InsertIgnore(query sq.InsertBuilder) sq.InsertBuilder
}

// BaseDialect provides common implementations
type BaseDialect struct{}

// PlaceholderFormat returns "$" as the default placeholder format
func (d *BaseDialect) PlaceholderFormat() string {
	return "$"
}

// TimeType returns timestamp as the default time type
func (d *BaseDialect) TimeType() string {
	return "timestamp"
}

// SchemaSQL returns the default table creation SQL
func (d *BaseDialect) SchemaSQL(tableName string) []string {
	return baseSchemaSQL(tableName, d.TimeType())
}

// InsertIgnore uses ON CONFLICT, understood by PostgreSQL and SQLite
func (d *BaseDialect) InsertIgnore(query sq.InsertBuilder) sq.InsertBuilder {
	return query.Suffix("ON CONFLICT (id) DO NOTHING")
}

func baseSchemaSQL(tableName, timeType string) []string {
	return []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(36) PRIMARY KEY,
			outcome VARCHAR(20) NOT NULL,
			user_id BIGINT NOT NULL DEFAULT 0,
			username VARCHAR(255) NOT NULL DEFAULT '',
			auth_date BIGINT NOT NULL DEFAULT 0,
			hash VARCHAR(128) NOT NULL DEFAULT '',
			error TEXT,
			remote_addr VARCHAR(64) NOT NULL DEFAULT '',
			created_at %s NOT NULL
		)`, tableName, timeType),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s (created_at)`, tableName, tableName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_outcome ON %s (outcome)`, tableName, tableName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_user_id ON %s (user_id)`, tableName, tableName),
	}
}
