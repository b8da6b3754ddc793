// Package signaling mediates the WebRTC offer/answer/ICE exchange between a
// student's device (publisher) and an observer (subscriber) through a named
// room on a broadcast bus. Only connection-setup metadata crosses the bus;
// media flows peer to peer.
package signaling

import "encoding/json"

// Signaling event names, one room per session.
const (
	EventViewerReady       = "viewer-ready"
	EventOffer             = "offer"
	EventAnswer            = "answer"
	EventStreamerCandidate = "streamer-candidate"
	EventViewerCandidate   = "viewer-candidate"
)

// RoomID derives the signaling room for a session. A session has at most one
// active room at a time, so the mapping is deterministic.
func RoomID(sessionID string) string {
	return "exam-" + sessionID
}

// SDPPayload carries a session description for offer/answer events.
type SDPPayload struct {
	SDP string `json:"sdp"`
}

// CandidatePayload carries one ICE candidate as connectivity metadata.
type CandidatePayload struct {
	Candidate json.RawMessage `json:"candidate"`
}

// Bus is the publish side of the signaling transport. The bus gives no
// ordering or exactly-once guarantee; handlers must tolerate duplicates.
type Bus interface {
	Publish(room, event string, payload interface{}) error
}

// PeerConnection is the local peer endpoint the handshake drives. It mirrors
// the browser RTCPeerConnection surface this service needs and nothing more.
type PeerConnection interface {
	CreateOffer() (string, error)
	CreateAnswer() (string, error)
	SetLocalDescription(sdp string) error
	SetRemoteDescription(sdp string) error
	AddICECandidate(candidate json.RawMessage) error
	Close() error
}
