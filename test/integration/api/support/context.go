package support

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/jewelcraft/sketchprep/internal/pipeline"
	"github.com/jewelcraft/sketchprep/internal/server"
	"github.com/jewelcraft/sketchprep/internal/testutil"
)

// MockProcessor provides predictable pipeline results for API scenarios.
type MockProcessor struct {
	ShouldFail bool
	ErrorMsg   string
}

func (m *MockProcessor) run() ([]pipeline.Step, error) {
	if m.ShouldFail {
		return nil, fmt.Errorf("%s", m.ErrorMsg)
	}

	names := pipeline.StepNames()
	steps := make([]pipeline.Step, len(names))
	for i, name := range names {
		steps[i] = pipeline.Step{
			Name:        name,
			Description: name + " output",
			Image:       "data:image/jpeg;base64,ZmFrZS1qcGVn",
		}
	}
	return steps, nil
}

// Run returns one mock step per canonical pipeline label.
func (m *MockProcessor) Run(imgData []byte) ([]pipeline.Step, error) {
	return m.run()
}

// RunStream emits the same mock steps one at a time.
func (m *MockProcessor) RunStream(imgData []byte, emit func(pipeline.Step) error) error {
	steps, err := m.run()
	if err != nil {
		return err
	}
	for _, st := range steps {
		if err := emit(st); err != nil {
			return err
		}
	}
	return nil
}

// TestContext holds the state shared by the step definitions of one scenario.
type TestContext struct {
	Server    *httptest.Server
	Processor *MockProcessor

	LastStatusCode int
	LastBody       string
	LastResponse   server.ProcessResponse
}

// NewTestContext starts an in-process HTTP server with the full route table
// and a mock pipeline behind it.
func NewTestContext() (*TestContext, error) {
	processor := &MockProcessor{}
	srv := server.NewServerWithProcessor(server.Config{
		CORSOrigin:  "*",
		MaxUploadMB: 50,
		TimeoutSec:  30,
	}, processor)

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	return &TestContext{
		Server:    httptest.NewServer(mux),
		Processor: processor,
	}, nil
}

// Cleanup shuts the test server down.
func (testCtx *TestContext) Cleanup() error {
	if testCtx.Server != nil {
		testCtx.Server.Close()
		testCtx.Server = nil
	}
	return nil
}

// get performs a GET request against the test server and records the result.
func (testCtx *TestContext) get(path string) error {
	resp, err := http.Get(testCtx.Server.URL + path) //nolint:noctx // short-lived test request
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return testCtx.recordResponse(resp)
}

// postProcess submits an image payload to POST /process.
func (testCtx *TestContext) postProcess(raw []byte) error {
	body, err := json.Marshal(server.ProcessRequest{
		Image: base64.StdEncoding.EncodeToString(raw),
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := http.Post( //nolint:noctx // short-lived test request
		testCtx.Server.URL+"/process", "application/json", strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("POST /process: %w", err)
	}
	return testCtx.recordResponse(resp)
}

// recordResponse captures the status and body, decoding JSON bodies into
// LastResponse when possible.
func (testCtx *TestContext) recordResponse(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	testCtx.LastStatusCode = resp.StatusCode
	testCtx.LastBody = string(data)
	testCtx.LastResponse = server.ProcessResponse{}
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(data, &testCtx.LastResponse)
	}
	return nil
}

// sketchPNG returns a small white sketch with a black diagonal line.
func sketchPNG() ([]byte, error) {
	return testutil.EncodePNG(testutil.WhiteWithDiagonal(64, 64))
}
