// Package db embeds the SQL schema applied at startup.
package db

import _ "embed"

// Schema holds the DDL for every booking table, applied idempotently by the
// migration bootstrap step.
//
//go:embed migrations/001_schema.sql
var Schema string
