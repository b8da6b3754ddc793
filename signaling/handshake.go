package signaling

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Role distinguishes the two parties in a room.
type Role string

// Exactly one publisher and one subscriber per room.
const (
	RolePublisher  Role = "publisher"
	RoleSubscriber Role = "subscriber"
)

// Handshake states. Failed and Closed are terminal: a broken handshake is
// never resumed, the caller starts over with a fresh Handshake.
const (
	StateIdle      = "idle"
	StateExchanged = "exchanged"
	StateConnected = "connected"
	StateFailed    = "failed"
	StateClosed    = "closed"
)

// Handshake is one endpoint's view of a single offer/answer/ICE exchange.
// Every handler is idempotent by construction: the remote description is
// applied at most once, and candidates arriving before the remote description
// is set are buffered and flushed once it is. Messages addressed to another
// room are no-ops.
type Handshake struct {
	room string
	role Role
	bus  Bus
	pc   PeerConnection

	mu            sync.Mutex
	state         string
	remoteDescSet bool
	pending       []json.RawMessage
}

// NewHandshake creates a handshake endpoint for one room. The publisher stays
// idle until a viewer-ready arrives; timing that out is the caller's concern.
func NewHandshake(room string, role Role, bus Bus, pc PeerConnection) *Handshake {
	return &Handshake{
		room:  room,
		role:  role,
		bus:   bus,
		pc:    pc,
		state: StateIdle,
	}
}

// State returns the current handshake state.
func (h *Handshake) State() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Start announces a subscriber to the room. Publishers have nothing to
// announce and wait for viewer-ready instead.
func (h *Handshake) Start() error {
	if h.role != RoleSubscriber {
		return nil
	}
	return h.bus.Publish(h.room, EventViewerReady, struct{}{})
}

// HandleMessage dispatches one bus delivery. Deliveries for a different room
// are discarded: room identity is part of addressing, not payload.
func (h *Handshake) HandleMessage(room, event string, payload []byte) error {
	if room != h.room {
		return nil
	}

	h.mu.Lock()
	if h.state == StateFailed || h.state == StateClosed {
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	switch event {
	case EventViewerReady:
		if h.role != RolePublisher {
			return nil
		}
		return h.sendOffer()
	case EventOffer:
		if h.role != RoleSubscriber {
			return nil
		}
		return h.acceptOffer(payload)
	case EventAnswer:
		if h.role != RolePublisher {
			return nil
		}
		return h.acceptAnswer(payload)
	case EventStreamerCandidate:
		if h.role != RoleSubscriber {
			return nil
		}
		return h.addCandidate(payload)
	case EventViewerCandidate:
		if h.role != RolePublisher {
			return nil
		}
		return h.addCandidate(payload)
	}
	return nil
}

// PublishCandidate forwards a locally gathered ICE candidate to the peer.
func (h *Handshake) PublishCandidate(candidate json.RawMessage) error {
	event := EventStreamerCandidate
	if h.role == RoleSubscriber {
		event = EventViewerCandidate
	}
	return h.bus.Publish(h.room, event, CandidatePayload{Candidate: candidate})
}

// OnConnectionStateChange observes the local peer connection state. A failed
// or disconnected transition ends the handshake; there is no resumption.
func (h *Handshake) OnConnectionStateChange(state string) {
	switch state {
	case "connected":
		h.mu.Lock()
		if h.state == StateExchanged {
			h.state = StateConnected
		}
		h.mu.Unlock()
	case "failed", "disconnected", "closed":
		h.mu.Lock()
		already := h.state == StateFailed || h.state == StateClosed
		if !already {
			h.state = StateFailed
		}
		h.mu.Unlock()
		if !already {
			zap.S().Infow("peer connection ended", "room", h.room, "state", state)
			_ = h.pc.Close()
		}
	}
}

// Close releases the peer connection. Idempotent; callers still need to
// unsubscribe from the room themselves or the relay keeps relaying for a
// dead session.
func (h *Handshake) Close() error {
	h.mu.Lock()
	if h.state == StateClosed {
		h.mu.Unlock()
		return nil
	}
	h.state = StateClosed
	h.pending = nil
	h.mu.Unlock()
	return h.pc.Close()
}

func (h *Handshake) sendOffer() error {
	offer, err := h.pc.CreateOffer()
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := h.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	return h.bus.Publish(h.room, EventOffer, SDPPayload{SDP: offer})
}

// acceptOffer applies the publisher's offer and replies with an answer. A
// duplicate offer after the remote description is set is discarded, which
// keeps the handler safe under at-least-once delivery.
func (h *Handshake) acceptOffer(payload []byte) error {
	var sdp SDPPayload
	if err := json.Unmarshal(payload, &sdp); err != nil || sdp.SDP == "" {
		return nil
	}

	h.mu.Lock()
	if h.remoteDescSet {
		h.mu.Unlock()
		return nil
	}
	h.remoteDescSet = true
	h.mu.Unlock()

	if err := h.pc.SetRemoteDescription(sdp.SDP); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	answer, err := h.pc.CreateAnswer()
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := h.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	if err := h.bus.Publish(h.room, EventAnswer, SDPPayload{SDP: answer}); err != nil {
		return err
	}
	h.markExchanged()
	return h.flushCandidates()
}

// acceptAnswer applies the subscriber's answer at most once.
func (h *Handshake) acceptAnswer(payload []byte) error {
	var sdp SDPPayload
	if err := json.Unmarshal(payload, &sdp); err != nil || sdp.SDP == "" {
		return nil
	}

	h.mu.Lock()
	if h.remoteDescSet {
		h.mu.Unlock()
		return nil
	}
	h.remoteDescSet = true
	h.mu.Unlock()

	if err := h.pc.SetRemoteDescription(sdp.SDP); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	h.markExchanged()
	return h.flushCandidates()
}

// addCandidate applies a candidate in arrival order, buffering while the
// remote description is not yet set.
func (h *Handshake) addCandidate(payload []byte) error {
	var cp CandidatePayload
	if err := json.Unmarshal(payload, &cp); err != nil || len(cp.Candidate) == 0 {
		return nil
	}

	h.mu.Lock()
	if !h.remoteDescSet {
		h.pending = append(h.pending, cp.Candidate)
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	if err := h.pc.AddICECandidate(cp.Candidate); err != nil {
		zap.S().Warnw("failed to add ice candidate", "room", h.room, "error", err)
	}
	return nil
}

func (h *Handshake) flushCandidates() error {
	h.mu.Lock()
	pending := h.pending
	h.pending = nil
	h.mu.Unlock()

	for _, c := range pending {
		if err := h.pc.AddICECandidate(c); err != nil {
			zap.S().Warnw("failed to add buffered ice candidate", "room", h.room, "error", err)
		}
	}
	return nil
}

func (h *Handshake) markExchanged() {
	h.mu.Lock()
	if h.state == StateIdle {
		h.state = StateExchanged
	}
	h.mu.Unlock()
}
