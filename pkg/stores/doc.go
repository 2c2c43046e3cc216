// Package stores provides the run-history persistence layer: a SQLite
// database (WAL mode, embedded migrations) recording every datapackage and
// view execution with its image, status and captured logs.
package stores
