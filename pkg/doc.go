// Package pkg holds the libraries behind schemaplot.
//
// schemaplot places the tables of a relational schema on a canvas so that
// no two tables overlap, tables with many relations sit near the center and
// tables without relations are parked in the bottom-right corner. Only
// primary and foreign keys are needed as input.
//
// # Layout
//
//   - [schema]: tables, columns and keys, plus connectivity fields
//   - [layout]: the placement algorithm and its diagnostics
//   - [diagram]: the positioned, serializable result
//
// # Input and output
//
//   - [io]: CSV key files, dataset discovery and WWW SQL Designer XML
//   - [source]: keys read live from PostgreSQL or MySQL
//   - [render]: DOT, SVG and PNG output
//
// # Infrastructure
//
//   - [pipeline]: load, layout and render with caching
//   - [cache]: memory, file and Redis backends and key derivation
//   - [observability]: hooks and Prometheus metrics
//   - [errors]: coded errors shared by the CLI and the HTTP API
//   - [buildinfo]: version information
//
// The data flow of one run:
//
//	CSV key files / database
//	         ↓
//	    [source] or [io] (load keys into a schema)
//	         ↓
//	    [layout] (size, analyze, place)
//	         ↓
//	    [diagram] → [render] / [io]
//	         ↓
//	    XML, JSON, DOT, SVG, PNG
package pkg
