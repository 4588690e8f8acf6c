package sync

import "encoding/json"

// Wire message types. Field names are camelCase to match the editor
// client protocol.
const (
	MsgPeerJoin        = "PEER_JOIN"
	MsgPeerLeave       = "PEER_LEAVE"
	MsgSyncRequestFull = "SYNC_REQUEST_FULL"
	MsgSyncFullState   = "SYNC_FULL_STATE"
	MsgSyncPush        = "SYNC_PUSH"
	MsgSyncPull        = "SYNC_PULL"
	MsgSyncAck         = "SYNC_ACK"
)

// Diff operations accepted by the server.
const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpRemove = "remove"
)

// Diff is one dot-path mutation of the shared circuit state.
type Diff struct {
	Path  string          `json:"path"`
	Op    string          `json:"op"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Envelope is the inbound message frame; only the fields relevant to
// the declared type are populated.
type Envelope struct {
	Type  string `json:"type"`
	Diffs []Diff `json:"diffs,omitempty"`
	Clock Clock  `json:"clock,omitempty"`
}

type peerJoinMsg struct {
	Type string   `json:"type"`
	Peer PeerInfo `json:"peer"`
}

type peerLeaveMsg struct {
	Type   string `json:"type"`
	PeerID string `json:"peerId"`
}

type fullStateMsg struct {
	Type           string         `json:"type"`
	CircuitID      string         `json:"circuitId"`
	Version        int            `json:"version"`
	State          map[string]any `json:"state"`
	Clock          Clock          `json:"clock"`
	ConnectedPeers []PeerInfo     `json:"connectedPeers"`
}

type ackMsg struct {
	Type          string   `json:"type"`
	Version       int      `json:"version"`
	Clock         Clock    `json:"clock"`
	AcceptedCount int      `json:"acceptedCount"`
	RejectedPaths []string `json:"rejectedPaths"`
}

type pullMsg struct {
	Type         string `json:"type"`
	CircuitID    string `json:"circuitId"`
	SourcePeerID string `json:"sourcePeerId"`
	Clock        Clock  `json:"clock"`
	Diffs        []Diff `json:"diffs"`
	Version      int    `json:"version"`
}
