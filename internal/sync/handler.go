package sync

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/circuit-studio/engine/pkg/logger"
)

// Hub upgrades HTTP requests to collaborative sync sessions.
type Hub struct {
	rooms    *Manager
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		rooms: NewManager(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// CORS is enforced at the HTTP layer
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP handles one sync session: join, message loop, leave.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	circuitID := q.Get("circuitId")
	peerID := q.Get("peerId")
	name := q.Get("name")
	color := q.Get("color")
	if name == "" {
		name = "Anonymous"
	}
	if color == "" {
		color = "#4FC3F7"
	}

	if circuitID == "" || peerID == "" {
		http.Error(w, "missing circuitId or peerId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	room := h.rooms.GetOrCreate(circuitID)
	peer := newPeer(peerID, name, color, conn)
	room.addPeer(peer)

	logger.L().Info("peer joined",
		zap.String("circuit_id", circuitID),
		zap.String("peer_id", peerID))

	room.broadcast(peerID, peerJoinMsg{Type: MsgPeerJoin, Peer: peer.info()})

	defer func() {
		h.rooms.RemovePeer(circuitID, peerID)
		room.broadcast(peerID, peerLeaveMsg{Type: MsgPeerLeave, PeerID: peerID})
		logger.L().Info("peer left",
			zap.String("circuit_id", circuitID),
			zap.String("peer_id", peerID))
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Envelope
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case MsgSyncRequestFull:
			_ = peer.send(room.snapshot())
		case MsgSyncPush:
			h.handlePush(room, peer, &msg)
		}
	}
}

func (h *Hub) handlePush(room *Room, peer *Peer, msg *Envelope) {
	if len(msg.Diffs) == 0 {
		return
	}

	accepted, rejected, clock, version := room.applyDiffs(msg.Diffs, msg.Clock)

	_ = peer.send(ackMsg{
		Type:          MsgSyncAck,
		Version:       version,
		Clock:         clock,
		AcceptedCount: len(accepted),
		RejectedPaths: rejected,
	})

	if len(accepted) > 0 {
		room.broadcast(peer.ID, pullMsg{
			Type:         MsgSyncPull,
			CircuitID:    room.CircuitID,
			SourcePeerID: peer.ID,
			Clock:        clock,
			Diffs:        accepted,
			Version:      version,
		})
	}
}
