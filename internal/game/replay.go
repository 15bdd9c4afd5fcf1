package game

import (
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alimohammadiamirhossein/project-7/internal/game/cards"
)

const replayVersion = 1

// Step is one committed command and the state hash right after it. Exactly
// one command field is set, except for change_turn which carries none.
type Step struct {
	Actor    string
	Kind     CommandKind
	Move     *Move
	Insert   *Insert
	Attack   *Attack
	Combo    *ComboAttack
	Power    *UseSpecialPower
	Checksum string
}

func newStep(actor string, cmd Command, checksum string) Step {
	step := Step{Actor: actor, Kind: cmd.Kind(), Checksum: checksum}
	switch c := cmd.(type) {
	case Move:
		step.Move = &c
	case Insert:
		step.Insert = &c
	case Attack:
		step.Attack = &c
	case ComboAttack:
		c.AttackerIDs = append([]string(nil), c.AttackerIDs...)
		step.Combo = &c
	case UseSpecialPower:
		step.Power = &c
	}
	return step
}

// Command rebuilds the recorded command.
func (s Step) Command() (Command, error) {
	var cmd Command
	switch s.Kind {
	case CommandMove:
		if s.Move != nil {
			cmd = *s.Move
		}
	case CommandInsert:
		if s.Insert != nil {
			cmd = *s.Insert
		}
	case CommandAttack:
		if s.Attack != nil {
			cmd = *s.Attack
		}
	case CommandComboAttack:
		if s.Combo != nil {
			cmd = *s.Combo
		}
	case CommandUseSpecialPower:
		if s.Power != nil {
			cmd = *s.Power
		}
	case CommandChangeTurn:
		cmd = ChangeTurn{}
	}
	if cmd == nil {
		return nil, fmt.Errorf("malformed %q step", s.Kind)
	}
	return cmd, nil
}

// Replay is the command log of a match. Matches are deterministic, so
// re-running the steps on a fresh match reproduces every state.
type Replay struct {
	MatchID  string
	Settings Settings
	Players  [2]PlayerSpec
	Initial  string // checksum after the start procedure
	Steps    []Step

	StartedAt  time.Time
	FinishedAt time.Time // zero while the match runs
}

func newReplay(m *Match, players [2]PlayerSpec) *Replay {
	return &Replay{
		MatchID:  m.ID(),
		Settings: m.settings,
		Players:  players,
		Initial:  m.Checksum().Hash,

		StartedAt: m.StartedAt().UTC(),
	}
}

func (r *Replay) record(actor string, cmd Command, m *Match) {
	r.Steps = append(r.Steps, newStep(actor, cmd, m.Checksum().Hash))
}

func (r *Replay) clone() Replay {
	out := *r
	out.Steps = append([]Step(nil), r.Steps...)
	return out
}

// Record summarises a rebuilt finished match.
func (r Replay) Record(m *Match) MatchRecord {
	players := m.Players()
	return MatchRecord{
		MatchID:    r.MatchID,
		GameType:   m.GameType(),
		PlayerOne:  players[0].Username,
		PlayerTwo:  players[1].Username,
		Winner:     m.Winner(),
		Turns:      m.Turn(),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

// ErrReplayDiverged is returned when a re-run no longer matches the log.
var ErrReplayDiverged = errors.New("replay diverged")

// Rebuild re-runs a replay from the start procedure. When upto is in
// [0, len(Steps)) only that many steps are applied. Every applied step is
// checked against its recorded checksum.
func Rebuild(catalog *cards.Catalog, decks map[string]cards.Deck, r Replay, upto int, logger *zap.Logger) (*Match, error) {
	var seats [2]Seat
	for i, p := range r.Players {
		deck, ok := decks[strings.ToLower(p.Deck)]
		if !ok {
			return nil, fmt.Errorf("replay %s: unknown deck %q", r.MatchID, p.Deck)
		}
		seats[i] = Seat{Username: p.Username, Deck: deck}
	}
	m, err := NewMatch(r.MatchID, catalog, seats, r.Settings, logger)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", r.MatchID, err)
	}
	if got := m.Checksum().Hash; got != r.Initial {
		return nil, fmt.Errorf("%w: start state %s, recorded %s", ErrReplayDiverged, got, r.Initial)
	}

	steps := r.Steps
	if upto >= 0 && upto < len(steps) {
		steps = steps[:upto]
	}
	for i, step := range steps {
		cmd, err := step.Command()
		if err != nil {
			return nil, fmt.Errorf("replay %s step %d: %w", r.MatchID, i, err)
		}
		res, err := m.Apply(step.Actor, cmd)
		if res.Command == "" {
			return nil, fmt.Errorf("%w: step %d (%s by %s) rejected: %v", ErrReplayDiverged, i, step.Kind, step.Actor, err)
		}
		if got := m.Checksum().Hash; got != step.Checksum {
			return nil, fmt.Errorf("%w: step %d (%s by %s)", ErrReplayDiverged, i, step.Kind, step.Actor)
		}
	}
	return m, nil
}

// replayMetadata precedes the replay in a saved file.
type replayMetadata struct {
	MatchID   string
	Timestamp time.Time
	Version   int
	StepCount int
}

func replayPath(directory, matchID string) string {
	return filepath.Join(directory, matchID+".replay")
}

// SaveToFile writes the replay as gzipped gob and returns the file path.
func (r *Replay) SaveToFile(directory string) (string, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	filename := replayPath(directory, r.MatchID)
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	encoder := gob.NewEncoder(gzipWriter)

	metadata := replayMetadata{
		MatchID:   r.MatchID,
		Timestamp: time.Now(),
		Version:   replayVersion,
		StepCount: len(r.Steps),
	}
	if err := encoder.Encode(&metadata); err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := encoder.Encode(r); err != nil {
		return "", fmt.Errorf("failed to encode replay: %w", err)
	}
	if err := gzipWriter.Close(); err != nil {
		return "", fmt.Errorf("failed to flush replay: %w", err)
	}
	return filename, nil
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(directory, matchID string) (*Replay, error) {
	file, err := os.Open(replayPath(directory, matchID))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	decoder := gob.NewDecoder(gzipReader)

	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if metadata.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", metadata.Version)
	}

	var replay Replay
	if err := decoder.Decode(&replay); err != nil {
		return nil, fmt.Errorf("failed to decode replay: %w", err)
	}
	if len(replay.Steps) != metadata.StepCount {
		return nil, fmt.Errorf("replay %s: %d steps, header says %d", matchID, len(replay.Steps), metadata.StepCount)
	}
	return &replay, nil
}

// ReplayArchive stores replays of finished matches in a directory.
type ReplayArchive struct {
	logger  *zap.Logger
	saveDir string
}

// NewReplayArchive creates an archive rooted at saveDir.
func NewReplayArchive(saveDir string, logger *zap.Logger) *ReplayArchive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplayArchive{logger: logger, saveDir: saveDir}
}

// Save writes r to disk.
func (a *ReplayArchive) Save(r Replay) error {
	path, err := r.SaveToFile(a.saveDir)
	if err != nil {
		return fmt.Errorf("failed to save replay: %w", err)
	}
	a.logger.Info("saved replay to disk",
		zap.String("match_id", r.MatchID),
		zap.Int("step_count", len(r.Steps)),
		zap.String("path", path),
	)
	return nil
}

// Load reads the replay of matchID.
func (a *ReplayArchive) Load(matchID string) (*Replay, error) {
	replay, err := LoadReplayFromFile(a.saveDir, matchID)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("loaded replay from disk",
		zap.String("match_id", matchID),
		zap.Int("step_count", len(replay.Steps)),
	)
	return replay, nil
}
