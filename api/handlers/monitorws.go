package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/examshield/proctor-api/config"
	"github.com/examshield/proctor-api/models"
	"github.com/examshield/proctor-api/monitor"
	"github.com/examshield/proctor-api/signaling"
)

var monitorUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// monitorMessage is one inbound message on the monitoring socket: either a
// captured frame or a browser environment event.
type monitorMessage struct {
	Type  string `json:"type"`
	Frame string `json:"frame,omitempty"`
	Event string `json:"event,omitempty"`
}

// MonitorWS exported for testing purposes
type MonitorWS struct {
	Registry *monitor.Registry
	Config   *config.Config
}

// StreamHandler is the student device's monitoring channel: frames and
// environment events in, per-frame status updates out. One connection per
// session; the read loop is the single producer into the session's monitor.
func (h MonitorWS) StreamHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]

	claims, err := signaling.ParseRoomToken(h.Config.RoomJWTSecret, r.URL.Query().Get("token"))
	if err != nil || claims.SessionID != sessionID {
		config.ErrorStatus("invalid session token", http.StatusUnauthorized, w, err)
		return
	}

	m, ok := h.Registry.Get(sessionID)
	if !ok {
		config.ErrorStatus("no active monitoring for session", http.StatusNotFound, w,
			errNoActiveSession(sessionID))
		return
	}

	conn, err := monitorUpgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("failed to upgrade monitoring socket",
			"sessionID", sessionID, "error", err)
		return
	}
	defer conn.Close()

	zap.S().Infow("monitoring stream connected", "sessionID", sessionID)

	for {
		var msg monitorMessage
		if err := conn.ReadJSON(&msg); err != nil {
			// Disconnect is not submission: the monitor keeps running so the
			// student can reconnect until submit or the exam-end reaper.
			zap.S().Infow("monitoring stream closed",
				"sessionID", sessionID, "error", err)
			return
		}
		if !m.Alive() {
			return
		}

		switch msg.Type {
		case "frame":
			update, err := m.ProcessFrame(r.Context(), []byte(msg.Frame))
			if err != nil {
				zap.S().Warnw("frame analysis failed",
					"sessionID", sessionID, "error", err)
				continue
			}
			if err := conn.WriteJSON(update); err != nil {
				zap.S().Infow("monitoring stream write failed",
					"sessionID", sessionID, "error", err)
				return
			}
		case "event":
			m.HandleEvent(msg.Event)
		default:
			zap.S().Debugw("ignoring unknown monitor message",
				"sessionID", sessionID, "type", msg.Type)
		}
	}
}

type errNoActiveSession string

func (e errNoActiveSession) Error() string {
	return "no active monitoring for session " + string(e)
}

// StatusSnapshotHandler returns the live integrity alert set for one session
// without waiting for the next frame round trip.
func (h MonitorWS) StatusSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]

	m, ok := h.Registry.Get(sessionID)
	if !ok {
		config.ErrorStatus("no active monitoring for session", http.StatusNotFound, w,
			errNoActiveSession(sessionID))
		return
	}

	update := models.LiveStatus{
		SessionID: sessionID,
		Alive:     m.Alive(),
		Alerts:    m.Integrity().Alerts(),
	}
	b, err := json.Marshal(update)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
