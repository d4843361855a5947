package e2e

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"
)

var opts = godog.Options{
	Output: colors.Colored(os.Stdout),
	Format: "pretty",
	Paths:  []string{"features"},
}

func init() {
	godog.BindCommandLineFlags("godog.", &opts)
}

func TestFeatures(t *testing.T) {
	flag.Parse()
	opts.TestingT = t

	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options:             &opts,
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

// InitializeScenario runs once per scenario, so every scenario gets its own
// server and LinkedIn stub.
func InitializeScenario(sc *godog.ScenarioContext) {
	tc, err := NewTestContext()
	if err != nil {
		sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
			return ctx, fmt.Errorf("starting badge service: %w", err)
		})
		return
	}

	sc.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if err != nil {
			fmt.Printf("Scenario failed: %s\nLast Response: %s\n", sc.Name, string(tc.LastResponseBody))
		}
		tc.Close()
		return ctx, nil
	})

	RegisterSteps(sc, tc)
}
