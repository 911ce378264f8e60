package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/jewelcraft/sketchprep/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialWebSocket spins up the full route table and connects to /process/ws.
func dialWebSocket(t *testing.T, p Processor) *websocket.Conn {
	t.Helper()

	server := newTestServer(p)
	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/process/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg wsMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func sendProcessRequest(t *testing.T, conn *websocket.Conn, raw []byte) {
	t.Helper()
	body, err := json.Marshal(ProcessRequest{Image: base64.StdEncoding.EncodeToString(raw)})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, body))
}

func TestWebSocket_StreamsSteps(t *testing.T) {
	steps := sampleSteps()
	conn := dialWebSocket(t, &mockProcessor{steps: steps})

	sendProcessRequest(t, conn, []byte("sketch bytes"))

	for i, want := range steps {
		msg := readFrame(t, conn)
		assert.Equal(t, "step", msg.Type, "frame %d", i)
		require.NotNil(t, msg.Step, "frame %d", i)
		assert.Equal(t, want.Name, msg.Step.Name)
		assert.Equal(t, want.Image, msg.Step.Image)
	}

	done := readFrame(t, conn)
	assert.Equal(t, "done", done.Type)
	assert.Equal(t, pipeline.StepCount, done.Count)
}

func TestWebSocket_PipelineError(t *testing.T) {
	conn := dialWebSocket(t, &mockProcessor{err: errors.New("boom")})

	sendProcessRequest(t, conn, []byte("garbage"))

	msg := readFrame(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "boom", msg.Error)
	assert.Nil(t, msg.Step)
}

func TestWebSocket_InvalidFrames(t *testing.T) {
	conn := dialWebSocket(t, &mockProcessor{steps: sampleSteps()})

	t.Run("malformed JSON", func(t *testing.T) {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

		msg := readFrame(t, conn)
		assert.Equal(t, "error", msg.Type)
		assert.Equal(t, "Invalid JSON message", msg.Error)
	})

	t.Run("invalid base64", func(t *testing.T) {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"image":"!!not-base64!!"}`)))

		msg := readFrame(t, conn)
		assert.Equal(t, "error", msg.Type)
		assert.Equal(t, "Invalid base64 image data", msg.Error)
	})
}

func TestWebSocket_MultipleRequestsOnOneConnection(t *testing.T) {
	steps := sampleSteps()
	conn := dialWebSocket(t, &mockProcessor{steps: steps})

	for round := 0; round < 2; round++ {
		sendProcessRequest(t, conn, []byte("sketch bytes"))

		for range steps {
			msg := readFrame(t, conn)
			require.Equal(t, "step", msg.Type)
		}
		done := readFrame(t, conn)
		require.Equal(t, "done", done.Type, "round %d", round)
	}
}
