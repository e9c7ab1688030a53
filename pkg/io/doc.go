// Package io reads key definitions from CSV files and reads and writes
// diagrams in the WWW SQL Designer XML format.
//
// # Key files
//
// A dataset is a folder holding two CSV files with a header row:
//
//	keys-primary.csv   TableName,ColumnName,KeyOrder
//	keys-foreign.csv   ParentTable,ParentColumn,ReferencedTable,ReferencedColumn
//
// The legacy names primary_keys.csv and foreign_keys.csv are accepted when the
// current names are absent. Columns are matched by header name, so their order
// does not matter, and a leading UTF-8 byte order mark is ignored. A row with a
// missing value or a non-integer KeyOrder fails with an INVALID_INPUT error that
// names the file line.
//
// Use [CSVSource] to load a schema from a pair of files, or [ReadPrimaryKeys]
// and [ReadForeignKeys] to read from any io.Reader. [WritePrimaryKeys] and
// [WriteForeignKeys] produce the same format, which is how introspected
// databases are saved as datasets.
//
// # Datasets
//
// [FindDatasets] lists the datasets under <base>/0-data, sorted by name
// without regard to case. Each [Dataset] knows its generated output path,
// <base>/0-data/<name>-schema.xml.
//
// # SQL Designer XML
//
// [WriteSQLDesigner] writes a positioned schema as an <sql> document: a MySQL
// datatypes block, then one <table> per table ordered by connection count
// (descending) and name. Every column becomes a <row> with its datatype,
// default and <relation> elements; the primary key is written as a PRIMARY
// <key> whose parts follow key order.
//
// [ReadSQLDesigner] parses such a document back into a schema with positions,
// column attributes, primary keys and foreign keys, which is what the verify
// command checks for overlaps.
package io
