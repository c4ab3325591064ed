package game

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrRoomFull is returned when a join loses the race for the last slot.
var ErrRoomFull = errors.New("room is full")

// Room is one match instance for a single mode. Target and start rects are
// generated once at creation and never change; everything else lives behind
// the mutex. Every method takes its whole decision under the lock, so
// concurrent joins can't overflow capacity and concurrent submissions can't
// double-count a normal-mode player.
type Room struct {
	ID         string
	Mode       Mode
	TargetRect Rect
	StartRect  Rect

	mu        sync.RWMutex
	players   map[string]*Player
	order     []string // join order, for stable snapshots
	status    Status
	startedAt time.Time
	endsAt    time.Time // rush only

	endTimer     *time.Timer
	cleanupTimer *time.Timer
}

func newRoom(id string, mode Mode) *Room {
	return &Room{
		ID:         id,
		Mode:       mode,
		TargetRect: GenerateRect(),
		StartRect:  GenerateRect(),
		players:    make(map[string]*Player),
		status:     StatusWaiting,
	}
}

// AddPlayer registers p, enforcing the mode's capacity. A second add for
// the same connection replaces the existing record in place, so the join
// order never holds an id twice.
func (r *Room) AddPlayer(p *Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[p.ID]; ok {
		r.players[p.ID] = p
		return nil
	}
	if len(r.players) >= r.Mode.Capacity() {
		return ErrRoomFull
	}
	r.players[p.ID] = p
	r.order = append(r.order, p.ID)
	return nil
}

// RemovePlayer drops the connection's player. Unknown ids are a no-op.
func (r *Room) RemovePlayer(connID string) (removed bool, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[connID]; !ok {
		return false, len(r.players)
	}
	delete(r.players, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, len(r.players)
}

// Status returns the room's current lifecycle state.
func (r *Room) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// PlayerCount returns the current member count.
func (r *Room) PlayerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// Joinable reports whether matchmaking may hand out this room. Rush rooms
// stay matchable mid-round while the clock is running; normal rooms only
// accept players before the round starts.
func (r *Room) Joinable(now time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.players) >= r.Mode.Capacity() {
		return false
	}
	switch r.status {
	case StatusWaiting:
		return true
	case StatusPlaying:
		return r.Mode == ModeRush && now.Before(r.endsAt)
	default:
		return false
	}
}

// TryStart flips waiting→playing once the player count reaches the
// threshold, recording the start time and, for rush, the fixed end time.
// Reports whether this call performed the transition.
func (r *Room) TryStart(threshold int, rushDuration time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusWaiting || len(r.players) < threshold {
		return false
	}
	r.status = StatusPlaying
	r.startedAt = time.Now()
	if r.Mode == ModeRush {
		r.endsAt = r.startedAt.Add(rushDuration)
	}
	return true
}

// TimeLeft returns the remaining rush budget in ms; zero or negative once
// the round is over or for rooms without an end time.
func (r *Room) TimeLeft() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.endsAt.IsZero() {
		return 0
	}
	return time.Until(r.endsAt).Milliseconds()
}

// SubmissionOutcome is what an accepted attempt broadcasts.
type SubmissionOutcome struct {
	PlayerID   string
	PlayerName string
	Score      float64
	Attempts   int
	BestScore  float64
}

// RecordSubmission scores and appends one attempt. Rejections are silent by
// design: a submission landing just after round end, a duplicate normal-mode
// attempt, or one from an unknown connection is dropped without error.
func (r *Room) RecordSubmission(connID string, rect Rect, clientTime float64) (SubmissionOutcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusPlaying {
		return SubmissionOutcome{}, false
	}
	p, ok := r.players[connID]
	if !ok {
		return SubmissionOutcome{}, false
	}
	switch r.Mode {
	case ModeNormal:
		if p.HasSubmitted {
			return SubmissionOutcome{}, false
		}
	case ModeRush:
		if !time.Now().Before(r.endsAt) {
			return SubmissionOutcome{}, false
		}
	}

	score := CalculateScore(rect, r.TargetRect)
	p.Submissions = append(p.Submissions, Submission{
		Rect:       rect,
		Score:      score,
		Time:       clientTime,
		ReceivedAt: time.Now(),
	})
	p.Attempts++
	if score > p.BestScore {
		p.BestScore = score
	}
	if r.Mode == ModeNormal {
		p.HasSubmitted = true
	}
	return SubmissionOutcome{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Score:      score,
		Attempts:   p.Attempts,
		BestScore:  p.BestScore,
	}, true
}

// TryFinishNormal ends a normal round once every current player has
// submitted. Reports whether this call performed the transition, so racing
// callers agree on exactly one winner.
func (r *Room) TryFinishNormal() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Mode != ModeNormal || r.status != StatusPlaying || len(r.players) == 0 {
		return false
	}
	for _, p := range r.players {
		if !p.HasSubmitted {
			return false
		}
	}
	r.status = StatusFinished
	return true
}

// FinishRush is driven by the round timer. A room already finished or
// removed makes this a no-op.
func (r *Room) FinishRush() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Mode != ModeRush || r.status != StatusPlaying {
		return false
	}
	r.status = StatusFinished
	return true
}

// Results ranks the current players by the room's mode rules: normal takes
// each player's best submission (score desc, elapsed time asc); rush takes
// the running best score (desc) with fewer attempts winning ties.
func (r *Room) Results() []PlayerResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]PlayerResult, 0, len(r.players))
	for _, id := range r.order {
		p := r.players[id]
		res := PlayerResult{PlayerID: p.ID, PlayerName: p.Name, Attempts: p.Attempts}
		if r.Mode == ModeRush {
			res.Score = p.BestScore
		} else if best, ok := p.bestSubmission(); ok {
			res.Score = best.Score
			res.Time = best.Time
		}
		results = append(results, res)
	}

	rush := r.Mode == ModeRush
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if rush {
			return results[i].Attempts < results[j].Attempts
		}
		return results[i].Time < results[j].Time
	})
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

// Snapshot returns the full room state for the join acknowledgment. Players
// are shallow copies so later mutation can't race the marshaller.
func (r *Room) Snapshot() RoomJoinedPayload {
	r.mu.RLock()
	defer r.mu.RUnlock()

	players := make([]*Player, 0, len(r.players))
	for _, id := range r.order {
		cp := *r.players[id]
		players = append(players, &cp)
	}
	return RoomJoinedPayload{
		RoomID:     r.ID,
		Mode:       r.Mode,
		TargetRect: r.TargetRect,
		StartRect:  r.StartRect,
		Players:    players,
		Status:     r.status,
	}
}

// SetEndTimer hands the room its armed rush-end timer.
func (r *Room) SetEndTimer(t *time.Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endTimer = t
}

// SetCleanupTimer hands the room its post-finish cleanup timer.
func (r *Room) SetCleanupTimer(t *time.Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanupTimer = t
}

// StopTimers cancels any armed timers. Timers that already fired are
// harmless: their actions re-check room state before acting.
func (r *Room) StopTimers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.endTimer != nil {
		r.endTimer.Stop()
	}
	if r.cleanupTimer != nil {
		r.cleanupTimer.Stop()
	}
}
