package models

import (
	"strings"
	"time"

	id "badgeworks/pkg/domain"
	dErrors "badgeworks/pkg/domain-errors"
	"badgeworks/pkg/platform/sentinel"
)

// Rejection reasons surfaced to callers in the "reason" field of error responses.
const (
	ReasonMissingField        = "missing-field"
	ReasonInvalidEmailFormat  = "invalid-email-format"
	ReasonInvalidKeyCode      = "invalid-key-code"
	ReasonSubjectIDOutOfRange = "subject-id-out-of-range"
	ReasonAlreadyIssued       = "already-issued"
)

// Artifact content types.
const (
	ContentTypePNG = "image/png"
	ContentTypePDF = "application/pdf"
)

// BadgeRequest is the request-scoped input to issuance. Field order matches
// the order in which presence is checked. SubjectID is nil when the form left
// it out; a submitted zero is present and fails the range check instead.
type BadgeRequest struct {
	FirstName        string        `json:"firstName" validate:"notblank"`
	LastName         string        `json:"lastName" validate:"notblank"`
	Email            string        `json:"email" validate:"notblank"`
	SubjectID        *id.SubjectID `json:"subjectId" validate:"required"`
	KeyCode          id.KeyCode    `json:"keyCode" validate:"notblank"`
	Issuer           string        `json:"issuer" validate:"notblank"`
	CorrelationToken string        `json:"hiddenField" validate:"notblank"`

	// Share requests a best-effort LinkedIn post once the badge is recorded.
	Share *ShareOptions `json:"share,omitempty"`
}

// ShareOptions carries the caller's LinkedIn credentials. They are never persisted.
type ShareOptions struct {
	AccessToken string `json:"accessToken"`
	MemberID    string `json:"memberId"`
}

// Subject returns the submitted subject id, or zero when it is missing.
func (r BadgeRequest) Subject() id.SubjectID {
	if r.SubjectID == nil {
		return 0
	}
	return *r.SubjectID
}

// Normalize trims surrounding whitespace from every free-text field.
func (r *BadgeRequest) Normalize() {
	if r == nil {
		return
	}
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.TrimSpace(r.Email)
	r.KeyCode = id.KeyCode(strings.TrimSpace(string(r.KeyCode)))
	r.Issuer = strings.TrimSpace(r.Issuer)
	r.CorrelationToken = strings.TrimSpace(r.CorrelationToken)
	if r.Share != nil {
		r.Share.AccessToken = strings.TrimSpace(r.Share.AccessToken)
		r.Share.MemberID = strings.TrimSpace(r.Share.MemberID)
	}
}

// BadgeRecord is an issued badge as stored in the ledger. Records are
// append-only and never mutated after insertion.
type BadgeRecord struct {
	ID               id.BadgeID
	FirstName        string
	LastName         string
	Email            string
	SubjectID        id.SubjectID
	KeyCode          id.KeyCode
	KeyDescription   string
	Issuer           string
	CorrelationToken string
	ImageURL         string
	DocumentURL      string
	Issued           bool
	CreatedAt        time.Time
}

// FullName returns the display name drawn on the badge.
func (r BadgeRecord) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// Outcome is the tagged result of a ledger insert.
type Outcome int

const (
	OutcomeRecorded Outcome = iota + 1
	OutcomeAlreadyIssued
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeAlreadyIssued:
		return "already_issued"
	default:
		return "unknown"
	}
}

// Share describes one LinkedIn share action for an issued badge.
type Share struct {
	BadgeID        id.BadgeID
	AccessToken    string
	MemberID       string
	KeyDescription string
	ImageURL       string
	DocumentURL    string
}

// ShareRequest asks to share an already issued badge.
type ShareRequest struct {
	BadgeID     id.BadgeID
	AccessToken string
	MemberID    string
}

// Confirmation is the provider's acknowledgement of a share.
type Confirmation struct {
	ShareID    string
	StatusCode int
}

// Share status reported alongside an issuance.
const (
	ShareSkipped = "skipped"
	ShareQueued  = "queued"
)

// IssueResult is what a successful issuance returns to the caller.
type IssueResult struct {
	Record      BadgeRecord
	ShareStatus string
}

// Reject builds a validation failure carrying one of the rejection reasons.
func Reject(reason, msg string) error {
	return dErrors.NewWithReason(dErrors.CodeValidation, reason, msg)
}

// AlreadyIssued builds the duplicate-issuance failure for a subject.
func AlreadyIssued(subject id.SubjectID) error {
	return &dErrors.Error{
		Code:    dErrors.CodeConflict,
		Reason:  ReasonAlreadyIssued,
		Message: "badge already issued for subject " + subject.String(),
		Err:     sentinel.ErrAlreadyIssued,
	}
}
