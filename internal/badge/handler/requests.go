package handler

import (
	"encoding/json"
	"strings"

	"badgeworks/internal/badge/models"
	id "badgeworks/pkg/domain"
	dErrors "badgeworks/pkg/domain-errors"
)

// IssueRequest is the submitted form. subjectId is accepted as a JSON number
// or a numeric string, since HTML forms post it as text.
type IssueRequest struct {
	FirstName        string               `json:"firstName"`
	LastName         string               `json:"lastName"`
	Email            string               `json:"email"`
	SubjectID        json.RawMessage      `json:"subjectId"`
	KeyCode          string               `json:"keyCode"`
	Issuer           string               `json:"issuer"`
	CorrelationToken string               `json:"hiddenField"`
	Share            *models.ShareOptions `json:"share,omitempty"`

	subject *id.SubjectID
}

// Validate only rejects a subject id that is present but not an integer.
// Absent, null and blank values stay unset so the service reports them as
// missing. Field rules run in the service so every intake path shares them.
func (r *IssueRequest) Validate() error {
	subject, err := parseSubjectID(r.SubjectID)
	if err != nil {
		return dErrors.NewWithReason(dErrors.CodeValidation, models.ReasonSubjectIDOutOfRange, "subjectId must be an integer")
	}
	r.subject = subject
	return nil
}

func parseSubjectID(raw json.RawMessage) (*id.SubjectID, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return nil, nil
	}
	if strings.HasPrefix(text, `"`) {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, err
		}
		if text = strings.TrimSpace(text); text == "" {
			return nil, nil
		}
	}
	subject, err := id.ParseSubjectID(text)
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *IssueRequest) toModel() models.BadgeRequest {
	return models.BadgeRequest{
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		Email:            r.Email,
		SubjectID:        r.subject,
		KeyCode:          id.KeyCode(r.KeyCode),
		Issuer:           r.Issuer,
		CorrelationToken: r.CorrelationToken,
		Share:            r.Share,
	}
}

// ShareRequest asks for a LinkedIn post of an issued badge.
type ShareRequest struct {
	BadgeID     string `json:"badgeId"`
	AccessToken string `json:"accessToken"`
	MemberID    string `json:"memberId"`
}

func (r *ShareRequest) Normalize() {
	r.BadgeID = strings.TrimSpace(r.BadgeID)
	r.AccessToken = strings.TrimSpace(r.AccessToken)
	r.MemberID = strings.TrimSpace(r.MemberID)
}

func (r *ShareRequest) toModel() (models.ShareRequest, error) {
	out := models.ShareRequest{AccessToken: r.AccessToken, MemberID: r.MemberID}
	if r.BadgeID == "" {
		return out, nil
	}
	badgeID, err := id.ParseBadgeID(r.BadgeID)
	if err != nil {
		return models.ShareRequest{}, err
	}
	out.BadgeID = badgeID
	return out, nil
}
