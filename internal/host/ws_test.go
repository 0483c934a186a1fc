package host

import (
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightline-health/intake-voice-agent/internal/intake"
)

func dialSession(t *testing.T, srvURL, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := strings.Replace(srvURL, "http://", "ws://", 1) + "/" + sessionID + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestStreamPushesCurrentNodeOnConnect(t *testing.T) {
	srv, _ := newTestServer(t)
	state := createSession(t, srv)
	conn := dialSession(t, srv.URL, state.SessionID)

	var first stateResponse
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "initial", first.NodeID)
	assert.Contains(t, first.Prompt, "first name")
}

func TestStreamAppliesFunctionCalls(t *testing.T) {
	srv, _ := newTestServer(t)
	state := createSession(t, srv)
	conn := dialSession(t, srv.URL, state.SessionID)

	var first stateResponse
	require.NoError(t, conn.ReadJSON(&first))

	require.NoError(t, conn.WriteJSON(intake.FunctionCall{
		Name:      "collect_first_name",
		Arguments: intake.Args{"first_name": "Asad"},
	}))

	var next stateResponse
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, "confirm_first_name", next.NodeID)
	assert.Contains(t, next.Prompt, "A S A D")
	assert.Nil(t, next.Error)
}

func TestStreamReportsRecoverableErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	state := createSession(t, srv)
	conn := dialSession(t, srv.URL, state.SessionID)

	var first stateResponse
	require.NoError(t, conn.ReadJSON(&first))

	require.NoError(t, conn.WriteJSON(intake.FunctionCall{
		Name:      "respond_to_offer",
		Arguments: intake.Args{"accepted": true, "offer_index": 0},
	}))

	var next stateResponse
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, "initial", next.NodeID)
	require.NotNil(t, next.Error)
	assert.Equal(t, "internal_inconsistency", next.Error.Kind)
}

func TestStreamRejectsUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)
	wsURL := strings.Replace(srv.URL, "http://", "ws://", 1) + "/nope/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	if conn != nil {
		_ = conn.Close()
	}
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
}
