package bdd

import (
	"os"
	"testing"

	"github.com/cucumber/godog"

	"github.com/sectorwars/aria-core/test/bdd/steps"
	"github.com/sectorwars/aria-core/test/helpers"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/application"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func InitializeScenario(sc *godog.ScenarioContext) {
	steps.InitializePricePredictionScenario(sc)
	steps.InitializeMemoryRecallScenario(sc)
	steps.InitializeStrategyEvolutionScenario(sc)
	steps.InitializeRoutePlanningScenario(sc)
	steps.InitializeDataErasureScenario(sc)
}

func TestMain(m *testing.M) {
	// One shared database for the whole suite; scenarios isolate themselves
	// by truncating tables in their Before hooks.
	if err := helpers.InitializeSharedTestDB(); err != nil {
		panic("failed to initialize shared test database: " + err.Error())
	}
	defer helpers.CloseSharedTestDB()

	os.Exit(m.Run())
}
