package handler

import (
	"time"

	"badgeworks/internal/badge/models"
)

// BadgeResponse is an issued badge in HTTP responses. The email address and
// correlation token are not echoed.
type BadgeResponse struct {
	BadgeID        string    `json:"badgeId"`
	SubjectID      int64     `json:"subjectId"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	KeyCode        string    `json:"keyCode"`
	KeyDescription string    `json:"keyDescription"`
	Issuer         string    `json:"issuer"`
	ImageURL       string    `json:"imageUrl"`
	DocumentURL    string    `json:"documentUrl"`
	Issued         bool      `json:"issued"`
	CreatedAt      time.Time `json:"createdAt"`
}

// IssueResponse is returned after a successful issuance.
type IssueResponse struct {
	BadgeResponse
	Share string `json:"share"`
}

// ShareResponse is returned after a successful share.
type ShareResponse struct {
	BadgeID string `json:"badgeId"`
	ShareID string `json:"shareId"`
	Status  int    `json:"status"`
}

func toBadgeResponse(rec *models.BadgeRecord) BadgeResponse {
	return BadgeResponse{
		BadgeID:        rec.ID.String(),
		SubjectID:      int64(rec.SubjectID),
		FirstName:      rec.FirstName,
		LastName:       rec.LastName,
		KeyCode:        rec.KeyCode.String(),
		KeyDescription: rec.KeyDescription,
		Issuer:         rec.Issuer,
		ImageURL:       rec.ImageURL,
		DocumentURL:    rec.DocumentURL,
		Issued:         rec.Issued,
		CreatedAt:      rec.CreatedAt,
	}
}

func toIssueResponse(result *models.IssueResult) *IssueResponse {
	return &IssueResponse{
		BadgeResponse: toBadgeResponse(&result.Record),
		Share:         result.ShareStatus,
	}
}
