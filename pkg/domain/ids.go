// Package domain provides type-safe identifiers so a subject id, a badge id,
// and a key code cannot be mixed up at compile time.
package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	dErrors "badgeworks/pkg/domain-errors"
)

type (
	// BadgeID identifies one ledger row.
	BadgeID uuid.UUID
	// SubjectID is the numeric id of the person a badge is issued to. It is
	// the natural key of the at-most-one-issuance rule.
	SubjectID int64
	// KeyCode is the opaque catalog key selecting what the badge attests.
	KeyCode string
)

// NewBadgeID returns a random badge id.
func NewBadgeID() BadgeID { return BadgeID(uuid.New()) }

// Parse functions - use at trust boundaries (handlers, CLI flags).

func ParseBadgeID(s string) (BadgeID, error) {
	if s == "" {
		return BadgeID{}, dErrors.New(dErrors.CodeBadRequest, "badge ID cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return BadgeID{}, dErrors.New(dErrors.CodeBadRequest, "invalid badge ID format")
	}
	return BadgeID(id), nil
}

func ParseSubjectID(s string) (SubjectID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeBadRequest, "subject ID cannot be empty")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid subject ID format")
	}
	return SubjectID(n), nil
}

func (id BadgeID) String() string   { return uuid.UUID(id).String() }
func (id SubjectID) String() string { return strconv.FormatInt(int64(id), 10) }
func (k KeyCode) String() string    { return string(k) }

func (id BadgeID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id SubjectID) IsZero() bool { return id == 0 }
