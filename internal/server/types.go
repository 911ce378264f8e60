package server

import (
	"fmt"
	"net/http"

	"github.com/jewelcraft/sketchprep/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Processor defines the methods needed by the server from the preprocessing
// pipeline.
type Processor interface {
	Run(imgData []byte) ([]pipeline.Step, error)
	RunStream(imgData []byte, emit func(pipeline.Step) error) error
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	processor   Processor
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
}

// ProcessRequest is the JSON body accepted by POST /process. Image holds the
// raw image bytes base64-encoded, without a data-URL prefix.
type ProcessRequest struct {
	Image string `json:"image"`
}

// StepRecord mirrors pipeline.Step on the wire.
type StepRecord struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// ProcessResponse is the tagged pipeline outcome: steps on success, error on
// failure, never both.
type ProcessResponse struct {
	Steps []StepRecord `json:"steps,omitempty"`
	Error string       `json:"error,omitempty"`
}

// HealthResponse reports server liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// NewServer creates a new preprocessing server instance backed by the real
// pipeline.
func NewServer(config Config) (*Server, error) {
	if config.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("invalid max upload size: %d MB", config.MaxUploadMB)
	}
	return NewServerWithProcessor(config, pipeline.NewProcessor()), nil
}

// NewServerWithProcessor creates a server with an explicit processor.
// Integration tests use this to substitute a mock pipeline.
func NewServerWithProcessor(config Config, p Processor) *Server {
	return &Server{
		processor:   p,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
	}
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.corsMiddleware(s.indexHandler))
	mux.HandleFunc("/process", s.corsMiddleware(s.processHandler))
	// The WebSocket route skips the metrics wrapper: the upgrade needs the
	// raw http.ResponseWriter to hijack the connection.
	mux.HandleFunc("/process/ws", s.processWebSocketHandler)
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.Handle("/metrics", promhttp.Handler())
}
