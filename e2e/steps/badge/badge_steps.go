package badge

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetLastBadgeID() string
	SetLastBadgeID(id string)
	PostConcurrently(path string, bodies []interface{}) ([]int, error)
	LinkedInShares(memberID string) (int, bool)
	SetLinkedInFailing(failing bool) bool
}

// RegisterSteps registers issuance, lookup, and sharing steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &badgeSteps{tc: tc}

	ctx.Step(`^a badge has been issued for subject (\d+)$`, steps.badgeHasBeenIssued)
	ctx.Step(`^I submit a badge request for "([^"]*)" "([^"]*)" with email "([^"]*)", subject (-?\d+) and key code "([^"]*)"$`, steps.submitBadgeRequest)
	ctx.Step(`^I submit a badge request for subject (\d+) without "([^"]*)"$`, steps.submitWithoutField)
	ctx.Step(`^I submit a badge request for subject (\d+) asking to share with token "([^"]*)" and member id "([^"]*)"$`, steps.submitWithShare)
	ctx.Step(`^I look up the badge for subject (-?\d+)$`, steps.lookUp)
	ctx.Step(`^(\d+) badge requests for subject (\d+) are submitted concurrently$`, steps.submitConcurrently)
	ctx.Step(`^exactly (\d+) should be issued and (\d+) rejected as already issued$`, steps.concurrentOutcome)

	ctx.Step(`^I share the last badge with access token "([^"]*)" and member id "([^"]*)"$`, steps.shareLastBadge)
	ctx.Step(`^I share badge "([^"]*)" with access token "([^"]*)" and member id "([^"]*)"$`, steps.shareBadge)
	ctx.Step(`^LinkedIn is failing$`, steps.linkedInFailing)
	ctx.Step(`^LinkedIn should have received (\d+) shares? for member "([^"]*)"$`, steps.linkedInReceived)
}

type badgeSteps struct {
	tc       TestContext
	statuses []int
}

func request(first, last, email string, subject int, keyCode string) map[string]interface{} {
	return map[string]interface{}{
		"firstName":   first,
		"lastName":    last,
		"email":       email,
		"subjectId":   subject,
		"keyCode":     keyCode,
		"issuer":      "Analytical Engine Academy",
		"hiddenField": "e2e-" + strconv.Itoa(subject),
	}
}

func defaultRequest(subject int) map[string]interface{} {
	return request("Ada", "Lovelace", "ada@example.com", subject, "CS101")
}

func (s *badgeSteps) rememberBadge() {
	if s.tc.GetLastResponseStatus() != http.StatusCreated {
		return
	}
	if v, err := s.tc.GetResponseField("badgeId"); err == nil {
		s.tc.SetLastBadgeID(fmt.Sprint(v))
	}
}

func (s *badgeSteps) badgeHasBeenIssued(ctx context.Context, subject int) error {
	if err := s.tc.POST("/badges", defaultRequest(subject)); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != http.StatusCreated {
		return fmt.Errorf("issuing badge for subject %d: status %d: %s", subject, status, s.tc.GetLastResponseBody())
	}
	s.rememberBadge()
	return nil
}

func (s *badgeSteps) submitBadgeRequest(ctx context.Context, first, last, email string, subject int, keyCode string) error {
	if err := s.tc.POST("/badges", request(first, last, email, subject, keyCode)); err != nil {
		return err
	}
	s.rememberBadge()
	return nil
}

func (s *badgeSteps) submitWithoutField(ctx context.Context, subject int, field string) error {
	body := defaultRequest(subject)
	delete(body, field)
	return s.tc.POST("/badges", body)
}

func (s *badgeSteps) submitWithShare(ctx context.Context, subject int, token, memberID string) error {
	body := defaultRequest(subject)
	body["share"] = map[string]string{"accessToken": token, "memberId": memberID}
	if err := s.tc.POST("/badges", body); err != nil {
		return err
	}
	s.rememberBadge()
	return nil
}

func (s *badgeSteps) lookUp(ctx context.Context, subject int) error {
	return s.tc.GET("/badges/subjects/"+strconv.Itoa(subject), nil)
}

func (s *badgeSteps) submitConcurrently(ctx context.Context, n, subject int) error {
	bodies := make([]interface{}, n)
	for i := range bodies {
		bodies[i] = defaultRequest(subject)
	}
	statuses, err := s.tc.PostConcurrently("/badges", bodies)
	if err != nil {
		return err
	}
	s.statuses = statuses
	return nil
}

func (s *badgeSteps) concurrentOutcome(ctx context.Context, issued, rejected int) error {
	var created, conflicts int
	for _, status := range s.statuses {
		switch status {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		default:
			return fmt.Errorf("unexpected status %d among concurrent submissions", status)
		}
	}
	if created != issued || conflicts != rejected {
		return fmt.Errorf("expected %d issued and %d conflicts, got %d and %d", issued, rejected, created, conflicts)
	}
	return nil
}

func (s *badgeSteps) shareLastBadge(ctx context.Context, token, memberID string) error {
	if s.tc.GetLastBadgeID() == "" {
		return fmt.Errorf("no badge has been issued in this scenario")
	}
	return s.shareBadge(ctx, s.tc.GetLastBadgeID(), token, memberID)
}

func (s *badgeSteps) shareBadge(ctx context.Context, badgeID, token, memberID string) error {
	return s.tc.POST("/badges/share", map[string]string{
		"badgeId":     badgeID,
		"accessToken": token,
		"memberId":    memberID,
	})
}

func (s *badgeSteps) linkedInFailing(ctx context.Context) error {
	if !s.tc.SetLinkedInFailing(true) {
		return godog.ErrSkip
	}
	return nil
}

func (s *badgeSteps) linkedInReceived(ctx context.Context, want int, memberID string) error {
	got, ok := s.tc.LinkedInShares(memberID)
	if !ok {
		return godog.ErrSkip
	}
	if got != want {
		return fmt.Errorf("expected %d shares for %s, got %d", want, memberID, got)
	}
	return nil
}
