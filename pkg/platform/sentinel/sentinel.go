// Package sentinel holds dependency-level errors. Stores and clients return
// these (optionally wrapped) so the service translates them into domain
// errors exactly once.
package sentinel

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyIssued = errors.New("already issued")
	ErrUnavailable   = errors.New("unavailable")
	ErrCircuitOpen   = errors.New("circuit open")
)
