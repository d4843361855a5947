package testutil

import (
	"time"

	"github.com/google/uuid"

	"badgeworks/internal/badge/models"
	id "badgeworks/pkg/domain"
)

// TestIDs provides convenient pre-generated IDs for tests.
// Use these for deterministic test data.
var TestIDs = struct {
	BadgeID1 id.BadgeID
	BadgeID2 id.BadgeID
	Subject  id.SubjectID
}{
	BadgeID1: id.BadgeID(uuid.MustParse("b0000000-0000-0000-0000-000000000001")),
	BadgeID2: id.BadgeID(uuid.MustParse("b0000000-0000-0000-0000-000000000002")),
	Subject:  120,
}

// FixedTime is the issuance clock used by deterministic tests.
var FixedTime = time.Date(2024, time.March, 14, 9, 30, 0, 0, time.UTC)

// BadgeRequestBuilder provides a fluent interface for building badge requests.
type BadgeRequestBuilder struct {
	req models.BadgeRequest
}

// NewBadgeRequestBuilder creates a builder with a valid request for subject 120 and CS101.
func NewBadgeRequestBuilder() *BadgeRequestBuilder {
	subject := TestIDs.Subject
	return &BadgeRequestBuilder{
		req: models.BadgeRequest{
			FirstName:        "Ada",
			LastName:         "Lovelace",
			Email:            "ada@example.com",
			SubjectID:        &subject,
			KeyCode:          "CS101",
			Issuer:           "Analytical Engine Academy",
			CorrelationToken: "corr-" + uuid.NewString(),
		},
	}
}

func (b *BadgeRequestBuilder) WithFirstName(v string) *BadgeRequestBuilder {
	b.req.FirstName = v
	return b
}

func (b *BadgeRequestBuilder) WithLastName(v string) *BadgeRequestBuilder {
	b.req.LastName = v
	return b
}

func (b *BadgeRequestBuilder) WithEmail(v string) *BadgeRequestBuilder {
	b.req.Email = v
	return b
}

func (b *BadgeRequestBuilder) WithSubjectID(v id.SubjectID) *BadgeRequestBuilder {
	b.req.SubjectID = &v
	return b
}

func (b *BadgeRequestBuilder) WithoutSubjectID() *BadgeRequestBuilder {
	b.req.SubjectID = nil
	return b
}

func (b *BadgeRequestBuilder) WithKeyCode(v id.KeyCode) *BadgeRequestBuilder {
	b.req.KeyCode = v
	return b
}

func (b *BadgeRequestBuilder) WithIssuer(v string) *BadgeRequestBuilder {
	b.req.Issuer = v
	return b
}

func (b *BadgeRequestBuilder) WithCorrelationToken(v string) *BadgeRequestBuilder {
	b.req.CorrelationToken = v
	return b
}

func (b *BadgeRequestBuilder) WithShare(token, memberID string) *BadgeRequestBuilder {
	b.req.Share = &models.ShareOptions{AccessToken: token, MemberID: memberID}
	return b
}

func (b *BadgeRequestBuilder) Build() models.BadgeRequest {
	return b.req
}

// BadgeRecordBuilder provides a fluent interface for building ledger records.
type BadgeRecordBuilder struct {
	rec models.BadgeRecord
}

// NewBadgeRecordBuilder creates a builder with an issued record for subject 120.
func NewBadgeRecordBuilder() *BadgeRecordBuilder {
	return &BadgeRecordBuilder{
		rec: models.BadgeRecord{
			ID:               id.NewBadgeID(),
			FirstName:        "Ada",
			LastName:         "Lovelace",
			Email:            "ada@example.com",
			SubjectID:        TestIDs.Subject,
			KeyCode:          "CS101",
			KeyDescription:   "Intro to CS",
			Issuer:           "Analytical Engine Academy",
			CorrelationToken: "corr-fixture",
			ImageURL:         "https://badges.example.test/CS101.png",
			DocumentURL:      "https://badges.example.test/CS101.pdf",
			Issued:           true,
			CreatedAt:        FixedTime,
		},
	}
}

func (b *BadgeRecordBuilder) WithID(v id.BadgeID) *BadgeRecordBuilder {
	b.rec.ID = v
	return b
}

func (b *BadgeRecordBuilder) WithSubjectID(v id.SubjectID) *BadgeRecordBuilder {
	b.rec.SubjectID = v
	return b
}

func (b *BadgeRecordBuilder) WithKeyCode(code id.KeyCode, description string) *BadgeRecordBuilder {
	b.rec.KeyCode = code
	b.rec.KeyDescription = description
	return b
}

func (b *BadgeRecordBuilder) WithIssued(v bool) *BadgeRecordBuilder {
	b.rec.Issued = v
	return b
}

func (b *BadgeRecordBuilder) WithCreatedAt(v time.Time) *BadgeRecordBuilder {
	b.rec.CreatedAt = v
	return b
}

func (b *BadgeRecordBuilder) Build() models.BadgeRecord {
	return b.rec
}
