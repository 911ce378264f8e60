package server

import (
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jewelcraft/sketchprep/internal/pipeline"
	"github.com/jewelcraft/sketchprep/internal/version"
)

//go:embed static/index.html
var indexHTML []byte

// indexHandler serves the static viewer page. Anything that is not a GET of
// the root path is an unknown route and gets an empty 404, matching the
// demo's transport contract.
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || r.Method != http.MethodGet {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	if _, err := w.Write(indexHTML); err != nil {
		slog.Error("Failed to write viewer page", "error", err)
	}
}

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode health response", "error", err)
	}
}

// processHandler runs the preprocessing pipeline on a base64-encoded image
// and returns the labeled steps as JSON. Pipeline-level failures travel in
// the JSON body with a 200 status; the viewer renders the error text inline.
func (s *Server) processHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		// A GET of /process is an unknown route, not a method error.
		w.WriteHeader(http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)

	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pipelineRunsTotal.WithLabelValues("http", "error").Inc()
		s.writeErrorResponse(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	imgData, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		pipelineRunsTotal.WithLabelValues("http", "error").Inc()
		s.writeErrorResponse(w, "Invalid base64 image data", http.StatusBadRequest)
		return
	}

	uploadSizeBytes.Observe(float64(len(imgData)))
	slog.Debug("Processing sketch", "bytes", len(imgData))

	start := time.Now()
	steps, err := s.processor.Run(imgData)
	duration := time.Since(start)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		pipelineRunsTotal.WithLabelValues("http", "error").Inc()
		if encErr := json.NewEncoder(w).Encode(ProcessResponse{Error: err.Error()}); encErr != nil {
			slog.Error("Failed to encode pipeline error response", "error", encErr)
		}
		return
	}

	pipelineRunsTotal.WithLabelValues("http", "success").Inc()
	pipelineDuration.WithLabelValues("http").Observe(duration.Seconds())
	pipelineStepsEmitted.WithLabelValues("http").Observe(float64(len(steps)))
	slog.Info("Pipeline completed", "steps", len(steps), "duration_ms", duration.Milliseconds())

	if err := json.NewEncoder(w).Encode(newProcessResponse(steps)); err != nil {
		slog.Error("Failed to encode process response", "error", err)
	}
}

func newProcessResponse(steps []pipeline.Step) ProcessResponse {
	records := make([]StepRecord, len(steps))
	for i, st := range steps {
		records[i] = StepRecord{Name: st.Name, Description: st.Description, Image: st.Image}
	}
	return ProcessResponse{Steps: records}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(ProcessResponse{Error: message}); err != nil {
		// Log error, but can't send another response
		slog.Error("Failed to encode error response", "error", err)
	}
}
