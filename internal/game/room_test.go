package game

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// offsetRect shifts the target on the x axis so the submission's total
// difference (and therefore its score) is exact.
func offsetRect(target Rect, diff float64) Rect {
	r := target
	r.X += diff
	return r
}

func playingRoom(t *testing.T, mode Mode, players int, rushDuration time.Duration) *Room {
	t.Helper()
	r := newRoom("room-1", mode)
	r.TargetRect = Rect{X: 100, Y: 100, Width: 200, Height: 100}
	for i := 1; i <= players; i++ {
		require.NoError(t, r.AddPlayer(NewPlayer(fmt.Sprintf("c%d", i), fmt.Sprintf("p%d", i))))
	}
	require.True(t, r.TryStart(2, rushDuration))
	return r
}

func TestRoomStartsAtTwoPlayers(t *testing.T) {
	r := newRoom("room-1", ModeNormal)
	require.NoError(t, r.AddPlayer(NewPlayer("c1", "alice")))
	assert.False(t, r.TryStart(2, 0))
	assert.Equal(t, StatusWaiting, r.Status())

	require.NoError(t, r.AddPlayer(NewPlayer("c2", "bob")))
	assert.True(t, r.TryStart(2, 0))
	assert.Equal(t, StatusPlaying, r.Status())

	// Status never regresses, so a repeat is a no-op.
	assert.False(t, r.TryStart(2, 0))
}

func TestRoomCapacity(t *testing.T) {
	tests := []struct {
		mode Mode
		cap  int
	}{
		{ModeNormal, 4},
		{ModeRush, 8},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r := newRoom("room-1", tt.mode)
			for i := 0; i < tt.cap; i++ {
				require.NoError(t, r.AddPlayer(NewPlayer(fmt.Sprintf("c%d", i), "")))
			}
			assert.ErrorIs(t, r.AddPlayer(NewPlayer("overflow", "")), ErrRoomFull)
			assert.Equal(t, tt.cap, r.PlayerCount())
		})
	}
}

func TestNormalModeSingleSubmission(t *testing.T) {
	r := playingRoom(t, ModeNormal, 2, 0)

	out, accepted := r.RecordSubmission("c1", offsetRect(r.TargetRect, 258.4), 3000)
	require.True(t, accepted)
	assert.Equal(t, 80.0, out.Score)
	assert.Equal(t, 1, out.Attempts)

	// Second attempt is dropped and changes nothing.
	_, accepted = r.RecordSubmission("c1", r.TargetRect, 3500)
	assert.False(t, accepted)

	out2, accepted := r.RecordSubmission("c2", r.TargetRect, 4000)
	require.True(t, accepted)
	assert.Equal(t, 100.0, out2.Score)
	assert.Equal(t, 1, out2.Attempts)
}

func TestNormalFinishCondition(t *testing.T) {
	r := playingRoom(t, ModeNormal, 2, 0)
	assert.False(t, r.TryFinishNormal())

	_, accepted := r.RecordSubmission("c1", r.TargetRect, 1000)
	require.True(t, accepted)
	assert.False(t, r.TryFinishNormal())

	_, accepted = r.RecordSubmission("c2", r.TargetRect, 2000)
	require.True(t, accepted)
	assert.True(t, r.TryFinishNormal())
	assert.Equal(t, StatusFinished, r.Status())

	// Only one caller wins the transition.
	assert.False(t, r.TryFinishNormal())
}

func TestRushAllowsRepeatSubmissions(t *testing.T) {
	r := playingRoom(t, ModeRush, 2, time.Minute)

	_, accepted := r.RecordSubmission("c1", offsetRect(r.TargetRect, 258.4), 1000)
	require.True(t, accepted)
	out, accepted := r.RecordSubmission("c1", offsetRect(r.TargetRect, 64.6), 2000)
	require.True(t, accepted)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, 95.0, out.BestScore)

	// A worse attempt bumps the count but not the running best.
	out, accepted = r.RecordSubmission("c1", offsetRect(r.TargetRect, 646), 3000)
	require.True(t, accepted)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 95.0, out.BestScore)
}

func TestRushRejectsSubmissionsAfterEndTime(t *testing.T) {
	r := playingRoom(t, ModeRush, 2, 30*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	_, accepted := r.RecordSubmission("c1", r.TargetRect, 1000)
	assert.False(t, accepted)
}

func TestNormalRanking(t *testing.T) {
	r := playingRoom(t, ModeNormal, 2, 0)
	_, _ = r.RecordSubmission("c1", offsetRect(r.TargetRect, 258.4), 3000) // 80
	_, _ = r.RecordSubmission("c2", offsetRect(r.TargetRect, 64.6), 4500)  // 95
	require.True(t, r.TryFinishNormal())

	results := r.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "c2", results[0].PlayerID)
	assert.Equal(t, 95.0, results[0].Score)
	assert.Equal(t, 4500.0, results[0].Time)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, "c1", results[1].PlayerID)
	assert.Equal(t, 80.0, results[1].Score)
	assert.Equal(t, 2, results[1].Rank)
}

func TestNormalRankingTieBreaksOnTime(t *testing.T) {
	r := playingRoom(t, ModeNormal, 2, 0)
	// 64.6 and 64.59 both round to 95.00, making this a genuine tie.
	_, _ = r.RecordSubmission("c1", offsetRect(r.TargetRect, 64.6), 5000)
	_, _ = r.RecordSubmission("c2", offsetRect(r.TargetRect, 64.59), 2000)
	require.True(t, r.TryFinishNormal())

	results := r.Results()
	require.Len(t, results, 2)
	assert.Equal(t, results[0].Score, results[1].Score)
	assert.Equal(t, "c2", results[0].PlayerID)
}

func TestRushRankingTieBreaksOnAttempts(t *testing.T) {
	r := playingRoom(t, ModeRush, 3, time.Minute)
	// c1 needs two attempts to reach 90, c2 gets there in one.
	_, _ = r.RecordSubmission("c1", offsetRect(r.TargetRect, 646), 1000)
	_, _ = r.RecordSubmission("c1", offsetRect(r.TargetRect, 129.2), 2000) // 90
	_, _ = r.RecordSubmission("c2", offsetRect(r.TargetRect, 129.2), 3000) // 90
	_, _ = r.RecordSubmission("c3", offsetRect(r.TargetRect, 258.4), 1500) // 80
	require.True(t, r.FinishRush())

	results := r.Results()
	require.Len(t, results, 3)
	assert.Equal(t, "c2", results[0].PlayerID)
	assert.Equal(t, "c1", results[1].PlayerID)
	assert.Equal(t, "c3", results[2].PlayerID)
	assert.Equal(t, []int{1, 2, 3}, []int{results[0].Rank, results[1].Rank, results[2].Rank})
}

func TestJoinable(t *testing.T) {
	now := time.Now()

	waiting := newRoom("room-1", ModeNormal)
	assert.True(t, waiting.Joinable(now))

	playingNormal := playingRoom(t, ModeNormal, 2, 0)
	assert.False(t, playingNormal.Joinable(now))

	playingRush := playingRoom(t, ModeRush, 2, time.Minute)
	assert.True(t, playingRush.Joinable(now))

	expiredRush := playingRoom(t, ModeRush, 2, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.False(t, expiredRush.Joinable(time.Now()))

	finished := playingRoom(t, ModeRush, 2, time.Minute)
	require.True(t, finished.FinishRush())
	assert.False(t, finished.Joinable(now))
}

func TestSnapshotPreservesJoinOrder(t *testing.T) {
	r := newRoom("room-7", ModeNormal)
	for i := 1; i <= 3; i++ {
		require.NoError(t, r.AddPlayer(NewPlayer(fmt.Sprintf("c%d", i), fmt.Sprintf("p%d", i))))
	}
	snap := r.Snapshot()
	assert.Equal(t, "room-7", snap.RoomID)
	assert.Equal(t, StatusWaiting, snap.Status)
	require.Len(t, snap.Players, 3)
	for i, p := range snap.Players {
		assert.Equal(t, fmt.Sprintf("c%d", i+1), p.ID)
	}
}

func TestAddPlayerSameConnectionReplaces(t *testing.T) {
	r := newRoom("room-8", ModeNormal)
	require.NoError(t, r.AddPlayer(NewPlayer("c1", "alice")))
	require.NoError(t, r.AddPlayer(NewPlayer("c1", "alice again")))

	assert.Equal(t, 1, r.PlayerCount())
	snap := r.Snapshot()
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "alice again", snap.Players[0].Name)

	// Removing the connection once leaves no trace in the join order.
	removed, remaining := r.RemovePlayer("c1")
	assert.True(t, removed)
	assert.Equal(t, 0, remaining)
	assert.Empty(t, r.Snapshot().Players)
	assert.Empty(t, r.Results())
}
