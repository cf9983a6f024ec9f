// Package db provides the embedded PostgreSQL schema and seed catalog.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables. Every
// statement is idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedProducts is the JSON catalog loaded by the seed command.
//
//go:embed seed/products.json
var SeedProducts []byte
