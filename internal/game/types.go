package game

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mode is the game variant a room is scoped to.
type Mode string

const (
	// ModeNormal is a single round where every player gets one submission.
	ModeNormal Mode = "normal"
	// ModeRush is a timed round with unlimited attempts.
	ModeRush Mode = "rush"
)

// Valid reports whether m is a known game mode.
func (m Mode) Valid() bool {
	return m == ModeNormal || m == ModeRush
}

// Capacity returns the maximum player count for the mode.
func (m Mode) Capacity() int {
	if m == ModeRush {
		return 8
	}
	return 4
}

// Status is a room's lifecycle state. It only ever advances forward.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// MaxNameLength caps player display names.
const MaxNameLength = 20

// Settings holds the coordinator's timing rules. The defaults are part of
// the contract with the client; tests shrink them to keep runs fast.
type Settings struct {
	StartThreshold int           // players needed to start a round
	RushDuration   time.Duration // rush round length
	CleanupDelay   time.Duration // finished-room retention
}

// DefaultSettings returns the production timing rules.
func DefaultSettings() Settings {
	return Settings{
		StartThreshold: 2,
		RushDuration:   60 * time.Second,
		CleanupDelay:   30 * time.Second,
	}
}

// Submission is one scoring attempt. Immutable once recorded.
type Submission struct {
	Rect       Rect      `json:"rect"`
	Score      float64   `json:"score"`
	Time       float64   `json:"time"` // client-reported elapsed ms
	ReceivedAt time.Time `json:"receivedAt"`
}

// Player is one connected participant, owned exclusively by its room and
// keyed by the connection id.
type Player struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Submissions  []Submission `json:"-"`
	BestScore    float64      `json:"bestScore"`
	Attempts     int          `json:"attemptCount"`
	HasSubmitted bool         `json:"hasSubmitted"`
	JoinedAt     time.Time    `json:"joinedAt"`
}

// NewPlayer builds a player for the given connection. Blank names get a
// generated fallback; long names are cut at MaxNameLength runes.
func NewPlayer(connID, name string) *Player {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Player-" + uuid.NewString()[:5]
	}
	if r := []rune(name); len(r) > MaxNameLength {
		name = string(r[:MaxNameLength])
	}
	return &Player{
		ID:       connID,
		Name:     name,
		JoinedAt: time.Now(),
	}
}

// bestSubmission picks the player's highest-scoring attempt, ties going to
// the faster run. Scores are pre-rounded to two decimals, so the strict
// equality in the tie-break is safe.
func (p *Player) bestSubmission() (Submission, bool) {
	if len(p.Submissions) == 0 {
		return Submission{}, false
	}
	best := p.Submissions[0]
	for _, s := range p.Submissions[1:] {
		if s.Score > best.Score || (s.Score == best.Score && s.Time < best.Time) {
			best = s
		}
	}
	return best, true
}

// PlayerResult is one row of a round's final ranking. Time carries the
// winning attempt's elapsed ms for normal rounds; Attempts is the rush
// tie-break.
type PlayerResult struct {
	Rank       int     `json:"rank"`
	PlayerID   string  `json:"playerId"`
	PlayerName string  `json:"playerName"`
	Score      float64 `json:"score"`
	Time       float64 `json:"time,omitempty"`
	Attempts   int     `json:"attemptCount"`
}
