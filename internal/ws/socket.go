package ws

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"rectrace/internal/game"
)

// Server adapts the Socket.IO transport to the coordinator. It keeps its
// own membership map (roomID -> connID -> Conn) alongside a flat connection
// index, and implements game.Gateway on top of them.
type Server struct {
	mu      sync.RWMutex
	conns   map[string]socketio.Conn
	members map[string]map[string]socketio.Conn
}

// New builds an unmounted server.
func New() *Server {
	return &Server{
		conns:   make(map[string]socketio.Conn),
		members: make(map[string]map[string]socketio.Conn),
	}
}

type joinPayload struct {
	Mode       string `json:"mode"`
	PlayerName string `json:"playerName"`
}

// Mount attaches the Socket.IO server with its event handlers to the given
// gin engine and starts serving connections.
func (srv *Server) Mount(r *gin.Engine, coord *game.Coordinator) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		srv.mu.Lock()
		srv.conns[s.ID()] = s
		srv.mu.Unlock()
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	io.OnEvent("/", "join", func(s socketio.Conn, payload joinPayload) {
		coord.Join(s.ID(), payload.Mode, payload.PlayerName)
	})

	io.OnEvent("/", "submit", func(s socketio.Conn, payload game.SubmitRequest) {
		coord.Submit(s.ID(), payload)
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Err(e).Msg("socket error")
	})

	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		coord.Disconnect(s.ID())
		srv.mu.Lock()
		delete(srv.conns, s.ID())
		for roomID, m := range srv.members {
			delete(m, s.ID())
			if len(m) == 0 {
				delete(srv.members, roomID)
			}
		}
		srv.mu.Unlock()
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

// Emit sends an event to one connection. Unknown connections are dropped.
func (srv *Server) Emit(connID, event string, payload any) {
	srv.mu.RLock()
	s := srv.conns[connID]
	srv.mu.RUnlock()
	if s != nil {
		safeEmit(s, event, payload)
	}
}

// Broadcast sends an event to every member of a room.
func (srv *Server) Broadcast(roomID, event string, payload any) {
	for _, s := range srv.roomConns(roomID) {
		safeEmit(s, event, payload)
	}
}

// BroadcastOthers sends an event to every room member but the sender.
func (srv *Server) BroadcastOthers(roomID, exceptConnID, event string, payload any) {
	for id, s := range srv.roomConns(roomID) {
		if id != exceptConnID {
			safeEmit(s, event, payload)
		}
	}
}

// Subscribe adds the connection to a room's broadcast scope. The members
// map is the single source of truth for delivery; unknown connections are
// dropped.
func (srv *Server) Subscribe(connID, roomID string) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	s := srv.conns[connID]
	if s == nil {
		return
	}
	if srv.members[roomID] == nil {
		srv.members[roomID] = make(map[string]socketio.Conn)
	}
	srv.members[roomID][connID] = s
}

// Unsubscribe removes the connection from a room's broadcast scope.
func (srv *Server) Unsubscribe(connID, roomID string) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if m := srv.members[roomID]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(srv.members, roomID)
		}
	}
}

func (srv *Server) roomConns(roomID string) map[string]socketio.Conn {
	srv.mu.RLock()
	defer srv.mu.RUnlock()
	out := make(map[string]socketio.Conn, len(srv.members[roomID]))
	for id, s := range srv.members[roomID] {
		out[id] = s
	}
	return out
}

// safeEmit shields game logic from a connection torn down mid-delivery.
func safeEmit(s socketio.Conn, event string, payload any) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug().Str("sid", s.ID()).Str("event", event).Msg("emit to dead connection dropped")
		}
	}()
	s.Emit(event, payload)
}
