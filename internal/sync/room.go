package sync

import (
	"encoding/json"
	"strings"
	stdsync "sync"
)

// wsConn is the subset of *websocket.Conn the room layer writes to.
type wsConn interface {
	WriteJSON(v any) error
}

// Peer is one connected editor session.
type Peer struct {
	ID       string
	Name     string
	Color    string
	JoinedAt int64

	mu   stdsync.Mutex
	conn wsConn
}

// PeerInfo is the JSON shape peers see of each other.
type PeerInfo struct {
	PeerID      string `json:"peerId"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
	JoinedAt    int64  `json:"joinedAt"`
}

func newPeer(id, name, color string, conn wsConn) *Peer {
	return &Peer{ID: id, Name: name, Color: color, JoinedAt: nowMillis(), conn: conn}
}

func (p *Peer) info() PeerInfo {
	return PeerInfo{PeerID: p.ID, DisplayName: p.Name, Color: p.Color, JoinedAt: p.JoinedAt}
}

// send serializes writes; gorilla connections do not allow concurrent
// writers.
func (p *Peer) send(v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteJSON(v)
}

// Room holds the authoritative state for one circuit. The server
// applies diffs and forwards them; conflict resolution is a client
// concern.
type Room struct {
	CircuitID string

	mu      stdsync.Mutex
	peers   map[string]*Peer
	state   map[string]any
	version int
	clock   Clock
}

func newRoom(circuitID string) *Room {
	return &Room{
		CircuitID: circuitID,
		peers:     map[string]*Peer{},
		state:     map[string]any{},
		clock:     Clock{Wall: nowMillis(), Logical: 0, PeerID: serverPeerID},
	}
}

func (r *Room) addPeer(p *Peer) {
	r.mu.Lock()
	r.peers[p.ID] = p
	r.mu.Unlock()
}

func (r *Room) removePeer(peerID string) {
	r.mu.Lock()
	delete(r.peers, peerID)
	r.mu.Unlock()
}

func (r *Room) peerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

// broadcast sends v to every peer except the excluded one. Send
// failures are ignored; the reader loop notices dead connections.
func (r *Room) broadcast(exclude string, v any) {
	r.mu.Lock()
	targets := make([]*Peer, 0, len(r.peers))
	for id, p := range r.peers {
		if id != exclude {
			targets = append(targets, p)
		}
	}
	r.mu.Unlock()

	for _, p := range targets {
		_ = p.send(v)
	}
}

// snapshot builds the full-state message for a joining peer. Sending
// full state is a server-originated event, so the room clock ticks to
// dominate anything the server published before.
func (r *Room) snapshot() fullStateMsg {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clock = r.clock.tick()

	peers := make([]PeerInfo, 0, len(r.peers))
	for _, p := range r.peers {
		peers = append(peers, p.info())
	}
	return fullStateMsg{
		Type:           MsgSyncFullState,
		CircuitID:      r.CircuitID,
		Version:        r.version,
		State:          r.state,
		Clock:          r.clock,
		ConnectedPeers: peers,
	}
}

// applyDiffs merges the remote clock, applies each diff to the
// authoritative state, and bumps the version. It returns the accepted
// diffs, the rejected paths, the merged clock, and the new version.
func (r *Room) applyDiffs(diffs []Diff, remote Clock) ([]Diff, []string, Clock, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clock = r.clock.merge(remote)

	accepted := make([]Diff, 0, len(diffs))
	rejected := []string{}
	for _, d := range diffs {
		switch d.Op {
		case OpAdd, OpUpdate:
			var value any
			if len(d.Value) > 0 {
				if err := json.Unmarshal(d.Value, &value); err != nil {
					rejected = append(rejected, d.Path)
					continue
				}
			}
			setPath(r.state, d.Path, value)
			accepted = append(accepted, d)
		case OpRemove:
			delPath(r.state, d.Path)
			accepted = append(accepted, d)
		default:
			rejected = append(rejected, d.Path)
		}
	}

	r.version++
	return accepted, rejected, r.clock, r.version
}

// setPath sets a nested value by dot-path, creating intermediate maps.
func setPath(obj map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := obj
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// delPath deletes a nested value by dot-path. Missing intermediate
// maps make it a no-op.
func delPath(obj map[string]any, path string) {
	parts := strings.Split(path, ".")
	current := obj
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return
		}
		current = next
	}
	delete(current, parts[len(parts)-1])
}

// Manager tracks active rooms by circuit id.
type Manager struct {
	mu    stdsync.Mutex
	rooms map[string]*Room
}

func NewManager() *Manager {
	return &Manager{rooms: map[string]*Room{}}
}

func (m *Manager) GetOrCreate(circuitID string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[circuitID]
	if !ok {
		room = newRoom(circuitID)
		m.rooms[circuitID] = room
	}
	return room
}

// RemovePeer detaches a peer; room state survives for reconnects.
func (m *Manager) RemovePeer(circuitID, peerID string) {
	m.mu.Lock()
	room, ok := m.rooms[circuitID]
	m.mu.Unlock()
	if ok {
		room.removePeer(peerID)
	}
}

// CleanupEmpty drops rooms with no connected peers.
func (m *Manager) CleanupEmpty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, room := range m.rooms {
		if room.peerCount() == 0 {
			delete(m.rooms, id)
		}
	}
}
