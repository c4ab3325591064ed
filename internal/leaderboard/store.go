// Package leaderboard persists the top-10 all-time runs in a flat JSON
// file, independent of live room state.
package leaderboard

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxEntries is how many runs the board retains.
const MaxEntries = 10

const maxNameLength = 20

// Entry is one persisted run. RankingScore is the ordering key, derived as
// round(score×1000 − time×10); it is distinct from the in-round score.
type Entry struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Score        float64 `json:"score"`
	Time         float64 `json:"time"`
	RankingScore int     `json:"rankingScore"`
	Date         string  `json:"date"`
}

// Store is the flat JSON file behind the board. One mutex covers the whole
// read-modify-write cycle, since the file format has no other protection.
type Store struct {
	mu   sync.Mutex
	path string
	log  zerolog.Logger
}

// NewStore points a store at its backing file. The file is created lazily
// on the first write.
func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{path: path, log: log}
}

// RankingScore derives the ordering key for a run.
func RankingScore(score, elapsed float64) int {
	return int(math.Round(score*1000 - elapsed*10))
}

// ReadAll returns the stored board in ranking order. Any read or parse
// failure degrades to an empty board rather than surfacing to the caller.
func (s *Store) ReadAll() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// AppendAndTrim records a run and returns the resulting board, re-sorted by
// ranking score descending and truncated to MaxEntries.
func (s *Store) AppendAndTrim(name string, score, elapsed float64) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if r := []rune(name); len(r) > maxNameLength {
		name = string(r[:maxNameLength])
	}
	entry := Entry{
		ID:           uuid.NewString(),
		Name:         name,
		Score:        score,
		Time:         elapsed,
		RankingScore: RankingScore(score, elapsed),
		Date:         time.Now().UTC().Format(time.RFC3339),
	}

	entries := append(s.read(), entry)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].RankingScore > entries[j].RankingScore
	})
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	if err := s.write(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) read() []Entry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", s.path).Msg("leaderboard read failed")
		}
		return []Entry{}
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("leaderboard parse failed")
		return []Entry{}
	}
	return entries
}

// write replaces the file through a temp-file rename so a crash mid-write
// can't leave a torn board behind.
func (s *Store) write(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create leaderboard dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write leaderboard: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace leaderboard: %w", err)
	}
	return nil
}
