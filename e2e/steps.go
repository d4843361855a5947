package e2e

import (
	"github.com/cucumber/godog"

	"badgeworks/e2e/steps/badge"
	"badgeworks/e2e/steps/common"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	badge.RegisterSteps(ctx, tc)
}
