package sync

import "time"

// serverPeerID marks clock entries minted by the server.
const serverPeerID = "server"

// Clock is a hybrid logical clock: wall time in milliseconds plus a
// logical counter that breaks ties within one millisecond.
type Clock struct {
	Wall    int64  `json:"wall"`
	Logical int    `json:"logical"`
	PeerID  string `json:"peerId"`
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// tick advances the clock for a server-originated event.
func (c Clock) tick() Clock {
	now := nowMillis()
	if now > c.Wall {
		return Clock{Wall: now, Logical: 0, PeerID: serverPeerID}
	}
	c.Logical++
	c.PeerID = serverPeerID
	return c
}

// merge combines the clock with a remote peer's clock so the result
// dominates both.
func (c Clock) merge(remote Clock) Clock {
	now := nowMillis()
	maxWall := now
	if c.Wall > maxWall {
		maxWall = c.Wall
	}
	if remote.Wall > maxWall {
		maxWall = remote.Wall
	}

	logical := 0
	switch {
	case maxWall == c.Wall && maxWall == remote.Wall:
		logical = c.Logical
		if remote.Logical > logical {
			logical = remote.Logical
		}
		logical++
	case maxWall == c.Wall:
		logical = c.Logical + 1
	case maxWall == remote.Wall:
		logical = remote.Logical + 1
	}

	return Clock{Wall: maxWall, Logical: logical, PeerID: serverPeerID}
}
