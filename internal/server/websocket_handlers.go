package server

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jewelcraft/sketchprep/internal/pipeline"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The demo binds to a local port; any origin may connect.
		return true
	},
}

const wsReadTimeout = 60 * time.Second

// wsMessage is the server-to-client streaming frame. Type is "step" while
// the pipeline runs, then "done" with the total step count, or "error".
type wsMessage struct {
	Type  string      `json:"type"`
	Step  *StepRecord `json:"step,omitempty"`
	Count int         `json:"count,omitempty"`
	Error string      `json:"error,omitempty"`
}

// processWebSocketHandler streams pipeline steps over a WebSocket as they
// are produced. The client sends the same JSON body as POST /process.
func (s *Server) processWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}

		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketProcess(conn, data)
		}
	}
}

// handleWebSocketProcess runs the pipeline for one request frame, streaming
// each step back as soon as it is computed.
func (s *Server) handleWebSocketProcess(conn *websocket.Conn, data []byte) {
	var req ProcessRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketMessage(conn, wsMessage{Type: "error", Error: "Invalid JSON message"})
		return
	}

	imgData, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		s.sendWebSocketMessage(conn, wsMessage{Type: "error", Error: "Invalid base64 image data"})
		return
	}

	uploadSizeBytes.Observe(float64(len(imgData)))

	start := time.Now()
	count := 0
	err = s.processor.RunStream(imgData, func(st pipeline.Step) error {
		count++
		rec := StepRecord{Name: st.Name, Description: st.Description, Image: st.Image}
		return s.sendWebSocketMessage(conn, wsMessage{Type: "step", Step: &rec})
	})
	if err != nil {
		pipelineRunsTotal.WithLabelValues("websocket", "error").Inc()
		s.sendWebSocketMessage(conn, wsMessage{Type: "error", Error: err.Error()})
		return
	}

	pipelineRunsTotal.WithLabelValues("websocket", "success").Inc()
	pipelineDuration.WithLabelValues("websocket").Observe(time.Since(start).Seconds())
	pipelineStepsEmitted.WithLabelValues("websocket").Observe(float64(count))

	s.sendWebSocketMessage(conn, wsMessage{Type: "done", Count: count})
}

// sendWebSocketMessage marshals and sends one frame, returning any write
// error so a streaming run can abort when the client goes away.
func (s *Server) sendWebSocketMessage(conn *websocket.Conn, msg wsMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal WebSocket message", "error", err)
		return err
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return err
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
	return nil
}
