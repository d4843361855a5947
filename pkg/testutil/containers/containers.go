//go:build integration

// Package containers runs the Postgres that backs the ledger integration
// tests. A test binary starts at most one; suites share it and call
// TruncateAll between tests.
package containers

import (
	"sync"
	"testing"
)

var ledgerDB struct {
	sync.Mutex
	pg *PostgresContainer
}

// LedgerDB returns the shared ledger database, starting and migrating it on
// first use. Ryuk removes the container when the test process exits.
func LedgerDB(t *testing.T) *PostgresContainer {
	t.Helper()

	ledgerDB.Lock()
	defer ledgerDB.Unlock()
	if ledgerDB.pg == nil {
		ledgerDB.pg = NewPostgresContainer(t)
	}
	return ledgerDB.pg
}
