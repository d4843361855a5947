package ledger

import (
	"context"
	"sync"

	"badgeworks/internal/badge/models"
	id "badgeworks/pkg/domain"
	"badgeworks/pkg/platform/sentinel"
)

// InMemoryLedger is an in-memory Ledger for tests and local runs. Record
// checks and inserts under one lock, so the one-issued-per-subject rule holds
// under concurrent callers the same way the unique index does in Postgres.
type InMemoryLedger struct {
	mu      sync.RWMutex
	records []models.BadgeRecord
	issued  map[id.SubjectID]int
}

// NewInMemory constructs an empty in-memory ledger.
func NewInMemory() *InMemoryLedger {
	return &InMemoryLedger{issued: make(map[id.SubjectID]int)}
}

func (l *InMemoryLedger) EnsureSchema(context.Context) error { return nil }

func (l *InMemoryLedger) CheckNotIssued(_ context.Context, subject id.SubjectID) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.issued[subject]; ok {
		return sentinel.ErrAlreadyIssued
	}
	return nil
}

func (l *InMemoryLedger) Record(_ context.Context, rec models.BadgeRecord) (models.Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec.Issued {
		if _, ok := l.issued[rec.SubjectID]; ok {
			return models.OutcomeAlreadyIssued, nil
		}
		l.issued[rec.SubjectID] = len(l.records)
	}
	l.records = append(l.records, rec)
	return models.OutcomeRecorded, nil
}

func (l *InMemoryLedger) FindBySubject(_ context.Context, subject id.SubjectID) (models.BadgeRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if idx, ok := l.issued[subject]; ok {
		return l.records[idx], nil
	}
	return models.BadgeRecord{}, sentinel.ErrNotFound
}

func (l *InMemoryLedger) FindByID(_ context.Context, badgeID id.BadgeID) (models.BadgeRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, rec := range l.records {
		if rec.ID == badgeID {
			return rec, nil
		}
	}
	return models.BadgeRecord{}, sentinel.ErrNotFound
}

// Len returns the number of stored rows, issued or not.
func (l *InMemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
