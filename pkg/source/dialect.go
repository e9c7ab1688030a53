package source

import (
	sq "github.com/Masterminds/squirrel"
)

// dialect builds the introspection queries for one database family.
type dialect struct {
	name        string
	primaryKeys func(schema string) (string, []any, error)
	foreignKeys func(schema string) (string, []any, error)
	columns     func(schema string) (string, []any, error)
}

// information_schema columns use domain types, which are cast to base types
// so pgx can scan them.
var postgresDialect = dialect{
	name: "postgres",
	primaryKeys: func(schema string) (string, []any, error) {
		return sq.Select("kcu.table_name::text", "kcu.column_name::text", "kcu.ordinal_position::int").
			From("information_schema.table_constraints tc").
			Join("information_schema.key_column_usage kcu ON kcu.constraint_schema = tc.constraint_schema AND kcu.constraint_name = tc.constraint_name").
			Where(sq.Eq{"tc.constraint_type": "PRIMARY KEY", "tc.table_schema": schema}).
			OrderBy("kcu.table_name", "kcu.ordinal_position").
			PlaceholderFormat(sq.Dollar).
			ToSql()
	},
	// Referenced columns are matched by position so composite foreign keys
	// pair up column by column.
	foreignKeys: func(schema string) (string, []any, error) {
		return sq.Select("kcu.table_name::text", "kcu.column_name::text", "ref.table_name::text", "ref.column_name::text").
			From("information_schema.referential_constraints rc").
			Join("information_schema.key_column_usage kcu ON kcu.constraint_schema = rc.constraint_schema AND kcu.constraint_name = rc.constraint_name").
			Join("information_schema.key_column_usage ref ON ref.constraint_schema = rc.unique_constraint_schema AND ref.constraint_name = rc.unique_constraint_name AND ref.ordinal_position = kcu.position_in_unique_constraint").
			Where(sq.Eq{"kcu.table_schema": schema}).
			OrderBy("kcu.table_name", "kcu.constraint_name", "kcu.ordinal_position").
			PlaceholderFormat(sq.Dollar).
			ToSql()
	},
	columns: func(schema string) (string, []any, error) {
		return sq.Select("c.table_name::text", "c.column_name::text", "c.data_type::text", "c.is_nullable::text", "c.column_default::text").
			From("information_schema.columns c").
			Join("information_schema.tables t ON t.table_schema = c.table_schema AND t.table_name = c.table_name").
			Where(sq.Eq{"c.table_schema": schema, "t.table_type": "BASE TABLE"}).
			OrderBy("c.table_name", "c.ordinal_position").
			PlaceholderFormat(sq.Dollar).
			ToSql()
	},
}

var mysqlDialect = dialect{
	name: "mysql",
	primaryKeys: func(schema string) (string, []any, error) {
		return sq.Select("TABLE_NAME", "COLUMN_NAME", "ORDINAL_POSITION").
			From("information_schema.KEY_COLUMN_USAGE").
			Where(sq.Eq{"CONSTRAINT_NAME": "PRIMARY", "TABLE_SCHEMA": schema}).
			OrderBy("TABLE_NAME", "ORDINAL_POSITION").
			PlaceholderFormat(sq.Question).
			ToSql()
	},
	foreignKeys: func(schema string) (string, []any, error) {
		return sq.Select("TABLE_NAME", "COLUMN_NAME", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME").
			From("information_schema.KEY_COLUMN_USAGE").
			Where(sq.Eq{"TABLE_SCHEMA": schema}).
			Where(sq.NotEq{"REFERENCED_TABLE_NAME": nil}).
			OrderBy("TABLE_NAME", "CONSTRAINT_NAME", "ORDINAL_POSITION").
			PlaceholderFormat(sq.Question).
			ToSql()
	},
	columns: func(schema string) (string, []any, error) {
		return sq.Select("c.TABLE_NAME", "c.COLUMN_NAME", "c.DATA_TYPE", "c.IS_NULLABLE", "c.COLUMN_DEFAULT").
			From("information_schema.COLUMNS c").
			Join("information_schema.TABLES t ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME").
			Where(sq.Eq{"c.TABLE_SCHEMA": schema, "t.TABLE_TYPE": "BASE TABLE"}).
			OrderBy("c.TABLE_NAME", "c.ORDINAL_POSITION").
			PlaceholderFormat(sq.Question).
			ToSql()
	},
}
