package support

import (
	"fmt"
	"strings"

	"github.com/cucumber/godog"
	"github.com/jewelcraft/sketchprep/internal/pipeline"
)

// RegisterAPISteps wires the HTTP step definitions into the scenario context.
func (testCtx *TestContext) RegisterAPISteps(sc *godog.ScenarioContext) {
	sc.Step(`^the preprocessing server is running$`, testCtx.thePreprocessingServerIsRunning)
	sc.Step(`^the pipeline fails with "([^"]*)"$`, testCtx.thePipelineFailsWith)
	sc.Step(`^I request the viewer page$`, testCtx.iRequestTheViewerPage)
	sc.Step(`^I request "([^"]*)"$`, testCtx.iRequestPath)
	sc.Step(`^I submit a sketch image for processing$`, testCtx.iSubmitASketchImage)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response body should be empty$`, testCtx.theResponseBodyShouldBeEmpty)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response should list every pipeline step in order$`, testCtx.theResponseShouldListEveryStep)
	sc.Step(`^the response error should be "([^"]*)"$`, testCtx.theResponseErrorShouldBe)
	sc.Step(`^the response should carry no steps$`, testCtx.theResponseShouldCarryNoSteps)
}

func (testCtx *TestContext) thePreprocessingServerIsRunning() error {
	if testCtx.Server == nil {
		return fmt.Errorf("test server not started")
	}
	return nil
}

func (testCtx *TestContext) thePipelineFailsWith(msg string) error {
	testCtx.Processor.ShouldFail = true
	testCtx.Processor.ErrorMsg = msg
	return nil
}

func (testCtx *TestContext) iRequestTheViewerPage() error {
	return testCtx.get("/")
}

func (testCtx *TestContext) iRequestPath(path string) error {
	return testCtx.get(path)
}

func (testCtx *TestContext) iSubmitASketchImage() error {
	data, err := sketchPNG()
	if err != nil {
		return fmt.Errorf("build sketch image: %w", err)
	}
	return testCtx.postProcess(data)
}

func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastStatusCode != status {
		return fmt.Errorf("expected status %d, got %d (body: %s)",
			status, testCtx.LastStatusCode, testCtx.LastBody)
	}
	return nil
}

func (testCtx *TestContext) theResponseBodyShouldBeEmpty() error {
	if testCtx.LastBody != "" {
		return fmt.Errorf("expected empty body, got %q", testCtx.LastBody)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastBody, text) {
		return fmt.Errorf("response body does not contain %q", text)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldListEveryStep() error {
	steps := testCtx.LastResponse.Steps
	names := pipeline.StepNames()

	if len(steps) != len(names) {
		return fmt.Errorf("expected %d steps, got %d", len(names), len(steps))
	}
	for i, want := range names {
		if steps[i].Name != want {
			return fmt.Errorf("step %d: expected %q, got %q", i, want, steps[i].Name)
		}
		if !strings.HasPrefix(steps[i].Image, "data:image/jpeg;base64,") {
			return fmt.Errorf("step %q image is not a JPEG data URL", steps[i].Name)
		}
	}
	return nil
}

func (testCtx *TestContext) theResponseErrorShouldBe(msg string) error {
	if testCtx.LastResponse.Error != msg {
		return fmt.Errorf("expected error %q, got %q", msg, testCtx.LastResponse.Error)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldCarryNoSteps() error {
	if len(testCtx.LastResponse.Steps) != 0 {
		return fmt.Errorf("expected no steps, got %d", len(testCtx.LastResponse.Steps))
	}
	if strings.Contains(testCtx.LastBody, `"steps"`) {
		return fmt.Errorf("response body still carries a steps field: %s", testCtx.LastBody)
	}
	return nil
}
