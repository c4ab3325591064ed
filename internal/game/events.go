package game

// Outbound event names, part of the wire contract with the client.
const (
	EventRoomJoined       = "roomJoined"
	EventPlayerJoined     = "playerJoined"
	EventGameStarted      = "gameStarted"
	EventPlayerSubmission = "playerSubmission"
	EventPlayerLeft       = "playerLeft"
	EventGameEnded        = "gameEnded"
	EventError            = "error"
)

// RoomJoinedPayload acknowledges a join with the full room state.
type RoomJoinedPayload struct {
	RoomID     string    `json:"roomId"`
	Mode       Mode      `json:"mode"`
	TargetRect Rect      `json:"targetRect"`
	StartRect  Rect      `json:"startRect"`
	Players    []*Player `json:"players"`
	Status     Status    `json:"status"`
}

// PlayerJoinedPayload notifies existing members of a new arrival.
type PlayerJoinedPayload struct {
	Player *Player `json:"player"`
}

// GameStartedPayload kicks off a round. TimeLeft is the remaining budget in
// ms and is only set for rush rounds.
type GameStartedPayload struct {
	TargetRect Rect  `json:"targetRect"`
	StartRect  Rect  `json:"startRect"`
	Mode       Mode  `json:"mode"`
	TimeLeft   int64 `json:"timeLeft,omitempty"`
}

// PlayerSubmissionPayload broadcasts an accepted attempt to the whole room,
// submitter included.
type PlayerSubmissionPayload struct {
	PlayerID   string  `json:"playerId"`
	PlayerName string  `json:"playerName"`
	Score      float64 `json:"score"`
	Attempts   int     `json:"attemptCount"`
	BestScore  float64 `json:"bestScore"`
}

// PlayerLeftPayload notifies remaining members of a departure.
type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
}

// GameEndedPayload carries the final ranking.
type GameEndedPayload struct {
	Mode    Mode           `json:"mode"`
	Results []PlayerResult `json:"results"`
}

// ErrorPayload is sent to the offending connection only.
type ErrorPayload struct {
	Message string `json:"message"`
}
