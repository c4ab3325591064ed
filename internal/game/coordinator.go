package game

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Gateway is the outbound side of the coordinator: delivery to a single
// connection, to everyone in a room, or to everyone but the sender.
// Delivery is fire-and-forget; a dead connection never surfaces here.
type Gateway interface {
	Emit(connID, event string, payload any)
	Broadcast(roomID, event string, payload any)
	BroadcastOthers(roomID, exceptConnID, event string, payload any)
	Subscribe(connID, roomID string)
	Unsubscribe(connID, roomID string)
}

// session ties a connection to the room it joined. Immutable; looked up on
// every event rather than being attached to the connection value.
type session struct {
	RoomID string
	Mode   Mode
}

// SubmitRequest carries one scoring attempt off the wire.
type SubmitRequest struct {
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	SubmissionTime float64 `json:"submissionTime"`
}

// Coordinator is the session event handler. It reacts to join, submit and
// disconnect events plus per-room timers, mutating room state and pushing
// notifications through the gateway.
type Coordinator struct {
	registry *Registry
	gw       Gateway
	settings Settings
	log      zerolog.Logger

	mu       sync.Mutex
	sessions map[string]session // connID -> session context
}

// NewCoordinator wires the handler to its registry and gateway.
func NewCoordinator(registry *Registry, gw Gateway, settings Settings, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		registry: registry,
		gw:       gw,
		settings: settings,
		log:      log,
		sessions: make(map[string]session),
	}
}

// Join matches the connection into a room for the requested mode. Unknown
// modes are a client protocol error and mutate nothing.
func (c *Coordinator) Join(connID, mode, playerName string) {
	m := Mode(mode)
	if !m.Valid() {
		c.gw.Emit(connID, EventError, ErrorPayload{Message: "unknown game mode: " + mode})
		return
	}

	// A repeated join from the same connection first retires its previous
	// membership, so no room is left holding a ghost player.
	c.mu.Lock()
	_, rejoining := c.sessions[connID]
	c.mu.Unlock()
	if rejoining {
		c.Disconnect(connID)
	}

	player := NewPlayer(connID, playerName)
	var room *Room
	for {
		room = c.registry.FindAvailable(m)
		if err := room.AddPlayer(player); err == nil {
			break
		}
		// Lost a capacity race; the next scan skips the now-full room.
	}

	c.mu.Lock()
	c.sessions[connID] = session{RoomID: room.ID, Mode: m}
	c.mu.Unlock()

	c.gw.Subscribe(connID, room.ID)
	c.gw.Emit(connID, EventRoomJoined, room.Snapshot())
	// The gateway may marshal the payload after this call returns, while
	// the live record keeps mutating as attempts land. Hand it a copy.
	joined := *player
	c.gw.BroadcastOthers(room.ID, connID, EventPlayerJoined, PlayerJoinedPayload{Player: &joined})
	c.log.Info().Str("connId", connID).Str("roomId", room.ID).Str("mode", mode).
		Str("name", player.Name).Msg("player joined")

	if room.TryStart(c.settings.StartThreshold, c.settings.RushDuration) {
		started := GameStartedPayload{TargetRect: room.TargetRect, StartRect: room.StartRect, Mode: m}
		if m == ModeRush {
			started.TimeLeft = c.settings.RushDuration.Milliseconds()
			room.SetEndTimer(time.AfterFunc(c.settings.RushDuration, func() { c.finishRush(room) }))
		}
		c.gw.Broadcast(room.ID, EventGameStarted, started)
		c.log.Info().Str("roomId", room.ID).Msg("game started")
		return
	}

	// Rush stragglers get the running round with whatever time is left. A
	// join landing after the end time gets no start event at all.
	if m == ModeRush && room.Status() == StatusPlaying {
		if left := room.TimeLeft(); left > 0 {
			c.gw.Emit(connID, EventGameStarted, GameStartedPayload{
				TargetRect: room.TargetRect,
				StartRect:  room.StartRect,
				Mode:       m,
				TimeLeft:   left,
			})
		}
	}
}

// Submit scores one attempt. Events with no session, no playing room, or
// that violate the mode's admission rules are dropped without a reply; that
// is normal operation under races with round end.
func (c *Coordinator) Submit(connID string, req SubmitRequest) {
	room, ok := c.lookupRoom(connID)
	if !ok {
		return
	}
	rect := Rect{X: req.X, Y: req.Y, Width: req.Width, Height: req.Height}
	outcome, accepted := room.RecordSubmission(connID, rect, req.SubmissionTime)
	if !accepted {
		c.log.Debug().Str("connId", connID).Str("roomId", room.ID).Msg("submission ignored")
		return
	}
	c.gw.Broadcast(room.ID, EventPlayerSubmission, PlayerSubmissionPayload{
		PlayerID:   outcome.PlayerID,
		PlayerName: outcome.PlayerName,
		Score:      outcome.Score,
		Attempts:   outcome.Attempts,
		BestScore:  outcome.BestScore,
	})
	if room.TryFinishNormal() {
		c.endRound(room)
	}
}

// Disconnect drops the connection's player from its room. Connections with
// no session are a no-op.
func (c *Coordinator) Disconnect(connID string) {
	c.mu.Lock()
	sess, ok := c.sessions[connID]
	if ok {
		delete(c.sessions, connID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	room, ok := c.registry.Get(sess.RoomID)
	if !ok {
		return
	}
	removed, remaining := room.RemovePlayer(connID)
	if !removed {
		return
	}
	c.gw.Unsubscribe(connID, room.ID)
	c.gw.Broadcast(room.ID, EventPlayerLeft, PlayerLeftPayload{PlayerID: connID})
	c.log.Info().Str("connId", connID).Str("roomId", room.ID).Msg("player left")

	if remaining == 0 {
		c.removeRoom(room)
		return
	}
	// The departure may leave only players who already submitted.
	if room.TryFinishNormal() {
		c.endRound(room)
	}
}

func (c *Coordinator) lookupRoom(connID string) (*Room, bool) {
	c.mu.Lock()
	sess, ok := c.sessions[connID]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	return c.registry.Get(sess.RoomID)
}

// finishRush fires on the round timer. FinishRush's status check turns a
// late firing against a removed or already-finished room into a no-op.
func (c *Coordinator) finishRush(room *Room) {
	if room.FinishRush() {
		c.endRound(room)
	}
}

// endRound broadcasts the final ranking and arms the grace-period cleanup.
func (c *Coordinator) endRound(room *Room) {
	results := room.Results()
	c.gw.Broadcast(room.ID, EventGameEnded, GameEndedPayload{Mode: room.Mode, Results: results})
	c.log.Info().Str("roomId", room.ID).Int("players", len(results)).Msg("game ended")
	room.SetCleanupTimer(time.AfterFunc(c.settings.CleanupDelay, func() { c.removeRoom(room) }))
}

// removeRoom cancels the room's timers and detaches it. Idempotent, so the
// empty-room early exit and the grace timer can both call it.
func (c *Coordinator) removeRoom(room *Room) {
	room.StopTimers()
	c.registry.Remove(room)
}
