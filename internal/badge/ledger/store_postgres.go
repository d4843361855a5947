package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"badgeworks/internal/badge/models"
	"badgeworks/internal/platform/database"
	"badgeworks/migrations"
	id "badgeworks/pkg/domain"
	"badgeworks/pkg/platform/sentinel"
)

const issuedIndex = "badges_subject_issued_key"

const selectColumns = `
	SELECT id, first_name, last_name, email, subject_id, key_code, key_description,
		issuer, hidden_field, image_url, document_url, issued, created_at
	FROM badges`

// PostgresLedger persists badges in PostgreSQL. Every call runs on its own
// scoped connection acquired under the pool's retry policy.
type PostgresLedger struct {
	pool *database.Pool
}

// NewPostgres constructs a PostgreSQL-backed ledger.
func NewPostgres(pool *database.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

// EnsureSchema creates the badges table and its indexes if absent.
func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	ddl, err := fs.ReadFile(migrations.FS, migrations.Schema)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	return l.pool.WithConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, string(ddl)); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		return nil
	})
}

func (l *PostgresLedger) CheckNotIssued(ctx context.Context, subject id.SubjectID) error {
	return l.pool.WithConn(ctx, func(conn *sql.Conn) error {
		var exists bool
		err := conn.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM badges WHERE subject_id = $1 AND issued)`,
			int64(subject),
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check issued: %w", err)
		}
		if exists {
			return sentinel.ErrAlreadyIssued
		}
		return nil
	})
}

// Record inserts rec. A violation of the one-issued-per-subject index is
// reported as OutcomeAlreadyIssued.
func (l *PostgresLedger) Record(ctx context.Context, rec models.BadgeRecord) (models.Outcome, error) {
	var outcome models.Outcome
	err := l.pool.WithConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO badges (id, first_name, last_name, email, subject_id, key_code,
				key_description, issuer, hidden_field, image_url, document_url, issued, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`,
			uuid.UUID(rec.ID),
			rec.FirstName,
			rec.LastName,
			rec.Email,
			int64(rec.SubjectID),
			string(rec.KeyCode),
			rec.KeyDescription,
			rec.Issuer,
			rec.CorrelationToken,
			rec.ImageURL,
			rec.DocumentURL,
			rec.Issued,
			rec.CreatedAt,
		)
		if err != nil {
			if isIssuedViolation(err) {
				outcome = models.OutcomeAlreadyIssued
				return nil
			}
			return fmt.Errorf("insert badge: %w", err)
		}
		outcome = models.OutcomeRecorded
		return nil
	})
	if err != nil {
		return 0, err
	}
	return outcome, nil
}

// FindBySubject returns the issued badge for subject.
func (l *PostgresLedger) FindBySubject(ctx context.Context, subject id.SubjectID) (models.BadgeRecord, error) {
	return l.findOne(ctx, selectColumns+` WHERE subject_id = $1 AND issued`, int64(subject))
}

func (l *PostgresLedger) FindByID(ctx context.Context, badgeID id.BadgeID) (models.BadgeRecord, error) {
	return l.findOne(ctx, selectColumns+` WHERE id = $1`, uuid.UUID(badgeID))
}

func (l *PostgresLedger) findOne(ctx context.Context, query string, arg any) (models.BadgeRecord, error) {
	var rec models.BadgeRecord
	err := l.pool.WithConn(ctx, func(conn *sql.Conn) error {
		var err error
		rec, err = scanBadge(conn.QueryRowContext(ctx, query, arg))
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("find badge: %w", err)
		}
		return nil
	})
	return rec, err
}

type badgeRow interface {
	Scan(dest ...any) error
}

func scanBadge(row badgeRow) (models.BadgeRecord, error) {
	var (
		rec       models.BadgeRecord
		badgeID   uuid.UUID
		subjectID int64
		keyCode   string
	)
	if err := row.Scan(&badgeID, &rec.FirstName, &rec.LastName, &rec.Email, &subjectID, &keyCode,
		&rec.KeyDescription, &rec.Issuer, &rec.CorrelationToken, &rec.ImageURL, &rec.DocumentURL,
		&rec.Issued, &rec.CreatedAt); err != nil {
		return models.BadgeRecord{}, err
	}
	rec.ID = id.BadgeID(badgeID)
	rec.SubjectID = id.SubjectID(subjectID)
	rec.KeyCode = id.KeyCode(keyCode)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func isIssuedViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == issuedIndex
	}
	return false
}
