// Package ledger records issued badges. The ledger is append-only and holds
// at most one issued record per subject.
package ledger

import (
	"context"

	"badgeworks/internal/badge/models"
	id "badgeworks/pkg/domain"
)

// Ledger is implemented by the Postgres and in-memory stores.
//
// CheckNotIssued returns sentinel.ErrAlreadyIssued when the subject already
// holds an issued badge. Record is the authoritative check: a concurrent
// duplicate comes back as OutcomeAlreadyIssued, never as an error. Find
// methods return sentinel.ErrNotFound when nothing matches.
type Ledger interface {
	EnsureSchema(ctx context.Context) error
	CheckNotIssued(ctx context.Context, subject id.SubjectID) error
	Record(ctx context.Context, rec models.BadgeRecord) (models.Outcome, error)
	FindBySubject(ctx context.Context, subject id.SubjectID) (models.BadgeRecord, error)
	FindByID(ctx context.Context, badgeID id.BadgeID) (models.BadgeRecord, error)
}
