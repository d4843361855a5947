// Package migrations embeds the SQL schema for the ledger, its tests and tooling.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Schema is the idempotent DDL applied by the ledger on first use.
const Schema = "000001_badges.up.sql"
