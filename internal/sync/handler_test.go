package sync

import (
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circuit-studio/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

func dialPeer(t *testing.T, server *httptest.Server, circuit, peer, name string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") +
		"/?circuitId=" + circuit + "&peerId=" + peer + "&name=" + name
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_RejectsMissingParams(t *testing.T) {
	server := httptest.NewServer(NewHub())
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?circuitId=c1"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHub_PushAckAndBroadcast(t *testing.T) {
	server := httptest.NewServer(NewHub())
	defer server.Close()

	alice := dialPeer(t, server, "c1", "alice", "Alice")
	bob := dialPeer(t, server, "c1", "bob", "Bob")

	// alice learns about bob joining
	join := readMsg(t, alice)
	require.Equal(t, MsgPeerJoin, join["type"])
	peer := join["peer"].(map[string]any)
	assert.Equal(t, "bob", peer["peerId"])
	assert.Equal(t, "Bob", peer["displayName"])

	// bob pushes a diff
	push := map[string]any{
		"type": MsgSyncPush,
		"diffs": []map[string]any{
			{"path": "nodes.U1", "op": "add", "value": map[string]any{"type": "microcontroller"}},
			{"path": "nodes.U1", "op": "bogus"},
		},
		"clock": map[string]any{"wall": 0, "logical": 0, "peerId": "bob"},
	}
	require.NoError(t, bob.WriteJSON(push))

	ack := readMsg(t, bob)
	require.Equal(t, MsgSyncAck, ack["type"])
	assert.Equal(t, float64(1), ack["version"])
	assert.Equal(t, float64(1), ack["acceptedCount"])
	assert.Equal(t, []any{"nodes.U1"}, ack["rejectedPaths"])

	// alice receives the accepted diff only
	pull := readMsg(t, alice)
	require.Equal(t, MsgSyncPull, pull["type"])
	assert.Equal(t, "bob", pull["sourcePeerId"])
	assert.Equal(t, "c1", pull["circuitId"])
	diffs := pull["diffs"].([]any)
	require.Len(t, diffs, 1)
	assert.Equal(t, "nodes.U1", diffs[0].(map[string]any)["path"])
}

func TestHub_FullStateSnapshot(t *testing.T) {
	server := httptest.NewServer(NewHub())
	defer server.Close()

	alice := dialPeer(t, server, "c2", "alice", "Alice")

	push := map[string]any{
		"type": MsgSyncPush,
		"diffs": []map[string]any{
			{"path": "meta.name", "op": "add", "value": "weather station"},
		},
	}
	require.NoError(t, alice.WriteJSON(push))
	ack := readMsg(t, alice)
	require.Equal(t, MsgSyncAck, ack["type"])

	require.NoError(t, alice.WriteJSON(map[string]any{"type": MsgSyncRequestFull}))
	full := readMsg(t, alice)
	require.Equal(t, MsgSyncFullState, full["type"])
	assert.Equal(t, "c2", full["circuitId"])
	assert.Equal(t, float64(1), full["version"])
	state := full["state"].(map[string]any)
	meta := state["meta"].(map[string]any)
	assert.Equal(t, "weather station", meta["name"])
	peers := full["connectedPeers"].([]any)
	require.Len(t, peers, 1)
}
