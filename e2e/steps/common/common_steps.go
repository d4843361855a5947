package common

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	ResponseContains(field string) bool
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers common step definitions used across features
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	// Background steps
	ctx.Step(`^the badge service is running$`, steps.badgeServiceIsRunning)

	// Generic request steps
	ctx.Step(`^I POST to "([^"]*)" with empty body$`, steps.postWithEmptyBody)
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)

	// Response assertion steps
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.responseShouldContain)
	ctx.Step(`^the response should not contain "([^"]*)"$`, steps.responseShouldNotContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.responseFieldShouldEqual)
	ctx.Step(`^the response field "([^"]*)" should end with "([^"]*)"$`, steps.responseFieldShouldEndWith)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) badgeServiceIsRunning(ctx context.Context) error {
	if err := s.tc.GET("/health/live", nil); err != nil {
		return err
	}
	return s.responseStatusShouldBe(ctx, 200)
}

func (s *commonSteps) postWithEmptyBody(ctx context.Context, path string) error {
	return s.tc.POST(path, map[string]interface{}{})
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path, nil)
}

func (s *commonSteps) responseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	actualStatus := s.tc.GetLastResponseStatus()
	if actualStatus != expectedStatus {
		return fmt.Errorf("expected status %d but got %d", expectedStatus, actualStatus)
	}
	return nil
}

func (s *commonSteps) responseShouldContain(ctx context.Context, field string) error {
	if !s.tc.ResponseContains(field) {
		return fmt.Errorf("response does not contain field: %s\nResponse: %s", field, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) responseShouldNotContain(ctx context.Context, text string) error {
	if strings.Contains(string(s.tc.GetLastResponseBody()), text) {
		return fmt.Errorf("response unexpectedly contains %q", text)
	}
	return nil
}

func (s *commonSteps) field(name string) (string, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &data); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	actualValue, ok := data[name]
	if !ok {
		return "", fmt.Errorf("field %s not found in response", name)
	}
	return fmt.Sprint(actualValue), nil
}

func (s *commonSteps) responseFieldShouldEqual(ctx context.Context, field, expectedValue string) error {
	actual, err := s.field(field)
	if err != nil {
		return err
	}
	if actual != expectedValue {
		return fmt.Errorf("field %s: expected %s but got %s", field, expectedValue, actual)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldEndWith(ctx context.Context, field, suffix string) error {
	actual, err := s.field(field)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(actual, suffix) {
		return fmt.Errorf("field %s: expected suffix %s but got %s", field, suffix, actual)
	}
	return nil
}
