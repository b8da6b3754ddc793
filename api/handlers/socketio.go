package handlers

import (
	"log"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"

	"github.com/examshield/proctor-api/signaling"
)

var server *socketio.Server

// relayedEvents are forwarded verbatim to everyone else in the room. The
// relay never inspects SDP or candidate payloads; peers own the handshake
// semantics (duplicate answers, buffering) on their side.
var relayedEvents = []string{
	signaling.EventViewerReady,
	signaling.EventOffer,
	signaling.EventAnswer,
	signaling.EventStreamerCandidate,
	signaling.EventViewerCandidate,
}

// InitializeSocketIO initializes the Socket.IO signaling server. Room joins
// require the JWT minted at session start; everything after the join is a
// dumb relay scoped to that room.
func InitializeSocketIO(roomSecret string) *socketio.Server {
	server = socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			polling.Default,
			websocket.Default,
		},
	})

	server.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext("")
		log.Println("Socket.IO client connected:", s.ID())
		return nil
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		log.Println("Socket.IO error:", e)
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		log.Println("Socket.IO client disconnected:", s.ID(), "reason:", reason)
	})

	server.OnEvent("/", "join_room", func(s socketio.Conn, msg map[string]interface{}) {
		room, _ := msg["room"].(string)
		token, _ := msg["token"].(string)

		claims, err := signaling.ParseRoomToken(roomSecret, token)
		if err != nil || claims.Room != room {
			log.Println("Rejected join_room for", room, "from", s.ID())
			s.Emit("join_denied", map[string]interface{}{"room": room})
			return
		}

		s.Join(room)
		log.Println("Client joined room:", room, "role:", claims.Role)
		s.Emit("room_joined", map[string]interface{}{"room": room})
	})

	server.OnEvent("/", "leave_room", func(s socketio.Conn, msg map[string]interface{}) {
		room, ok := msg["room"].(string)
		if ok {
			s.Leave(room)
			log.Println("Client left room:", room)
		}
	})

	for _, event := range relayedEvents {
		event := event
		server.OnEvent("/", event, func(s socketio.Conn, msg map[string]interface{}) {
			room, ok := msg["room"].(string)
			if !ok || room == "" {
				return
			}
			server.BroadcastToRoom("/", room, event, msg)
		})
	}

	go func() {
		if err := server.Serve(); err != nil {
			log.Fatalf("Socket.IO server error: %v", err)
		}
	}()

	return server
}

// GetSocketIOServer returns the Socket.IO server instance
func GetSocketIOServer() *socketio.Server {
	return server
}

// SocketBus adapts the Socket.IO server to the signaling publish interface.
type SocketBus struct {
	Server *socketio.Server
}

// Publish broadcasts one signaling event into a room.
func (b SocketBus) Publish(room, event string, payload interface{}) error {
	b.Server.BroadcastToRoom("/", room, event, payload)
	return nil
}

// CloseRoom broadcasts session end and clears the room so stale subscribers
// cannot linger after teardown.
func CloseRoom(room string) {
	if server != nil {
		server.BroadcastToRoom("/", room, "session_ended", map[string]interface{}{"room": room})
		server.ClearRoom("/", room)
		log.Println("Closed signaling room:", room)
	}
}
