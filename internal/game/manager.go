package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alimohammadiamirhossein/project-7/internal/game/cards"
	"github.com/alimohammadiamirhossein/project-7/internal/game/rules"
)

// NotificationType names an outbound notification.
type NotificationType string

const (
	NotifyMatchStarted   NotificationType = "MATCH_STARTED"
	NotifyCommandApplied NotificationType = "COMMAND_APPLIED"
	NotifyTurnChanged    NotificationType = "TURN_CHANGED"
	NotifyMatchFinished  NotificationType = "MATCH_FINISHED"
	NotifyMatchAbandoned NotificationType = "MATCH_ABANDONED"
)

// Notification is sent to subscribers after a command commits.
type Notification struct {
	Type      NotificationType `json:"type"`
	MatchID   string           `json:"match_id"`
	PlayerID  string           `json:"player_id,omitempty"` // empty for broadcast
	Timestamp time.Time        `json:"timestamp"`
	Data      map[string]any   `json:"data,omitempty"`
}

// Notifier receives notifications in the order their commands committed.
// It is called synchronously and may read match views.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// MatchRecord is the outcome of a finished match.
type MatchRecord struct {
	MatchID    string
	GameType   GameType
	PlayerOne  string
	PlayerTwo  string
	Winner     string
	Turns      int
	StartedAt  time.Time
	FinishedAt time.Time
}

// ResultRecorder stores finished matches.
type ResultRecorder interface {
	RecordMatch(ctx context.Context, record MatchRecord) error
}

// PlayerSpec names a participant and the deck they bring.
type PlayerSpec struct {
	Username string `json:"username"`
	Deck     string `json:"deck"`
}

// ErrSamePlayer is returned when both seats name the same user.
var ErrSamePlayer = errors.New("a match needs two different players")

type entry struct {
	mu     sync.Mutex // guards match, replay and outbox
	match  *Match
	replay *Replay
	outbox []Notification

	emit sync.Mutex // held while the outbox is delivered
}

// flush delivers queued notifications in commit order. The match lock is
// not held during delivery so notifiers may read views.
func (mgr *Manager) flush(e *entry) {
	e.emit.Lock()
	defer e.emit.Unlock()
	e.mu.Lock()
	batch := e.outbox
	e.outbox = nil
	e.mu.Unlock()
	for _, n := range batch {
		mgr.emit(n)
	}
}

// Manager owns the running matches. Commands on one match are serialised;
// different matches proceed in parallel.
type Manager struct {
	logger   *zap.Logger
	catalog  *cards.Catalog
	decks    map[string]cards.Deck
	settings Settings

	mu       sync.RWMutex
	matches  map[string]*entry
	notifier Notifier
	recorder ResultRecorder
	archive  *ReplayArchive
}

// NewManager creates a manager that builds matches from catalog and decks.
func NewManager(catalog *cards.Catalog, decks map[string]cards.Deck, settings Settings, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		logger:   logger,
		catalog:  catalog,
		decks:    decks,
		settings: settings,
		matches:  make(map[string]*entry),
	}
}

// SetNotifier installs the notification subscriber.
func (mgr *Manager) SetNotifier(n Notifier) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.notifier = n
}

// SetRecorder installs the sink for finished matches.
func (mgr *Manager) SetRecorder(r ResultRecorder) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.recorder = r
}

// SetReplayArchive makes the manager save the replay of every finished match.
func (mgr *Manager) SetReplayArchive(a *ReplayArchive) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.archive = a
}

// Decks lists the deck names players may pick.
func (mgr *Manager) Decks() []string {
	names := make([]string, 0, len(mgr.decks))
	for name := range mgr.decks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create starts a new match and returns its id.
func (mgr *Manager) Create(players [2]PlayerSpec, gameType GameType) (string, error) {
	if strings.EqualFold(players[0].Username, players[1].Username) {
		return "", ErrSamePlayer
	}

	var seats [2]Seat
	for i, spec := range players {
		deck, ok := mgr.decks[strings.ToLower(spec.Deck)]
		if !ok {
			return "", fmt.Errorf("unknown deck %q", spec.Deck)
		}
		seats[i] = Seat{Username: spec.Username, Deck: deck}
	}

	settings := mgr.settings
	if gameType != "" {
		settings.GameType = gameType
	}

	id := uuid.NewString()
	match, err := NewMatch(id, mgr.catalog, seats, settings, mgr.logger)
	if err != nil {
		return "", fmt.Errorf("create match: %w", err)
	}

	e := &entry{match: match, replay: newReplay(match, players)}
	mgr.mu.Lock()
	mgr.matches[id] = e
	mgr.mu.Unlock()

	mgr.emit(Notification{
		Type:    NotifyMatchStarted,
		MatchID: id,
		Data: map[string]any{
			"players":       []string{players[0].Username, players[1].Username},
			"active_player": match.ActivePlayer(),
		},
	})
	return id, nil
}

func (mgr *Manager) lookup(matchID string) (*entry, error) {
	mgr.mu.RLock()
	e, ok := mgr.matches[matchID]
	mgr.mu.RUnlock()
	if !ok {
		return nil, rules.Errorf(rules.CodeUnknownMatch, "match %s not found", matchID)
	}
	return e, nil
}

// Apply runs cmd on a match for actor and fans out the notifications.
func (mgr *Manager) Apply(ctx context.Context, matchID, actor string, cmd Command) (Result, error) {
	if cmd == nil {
		return Result{}, ErrNilCommand
	}
	e, err := mgr.lookup(matchID)
	if err != nil {
		return Result{}, err
	}

	e.mu.Lock()
	result, err := e.match.Apply(actor, cmd)
	if err != nil && rules.CodeOf(err) == "" {
		e.mu.Unlock()
		mgr.logger.Error("match invariant violated, abandoning",
			zap.String("match_id", matchID),
			zap.String("actor", actor),
			zap.String("command", string(cmd.Kind())),
			zap.Error(err))
		mgr.Remove(matchID)
		mgr.flush(e)
		mgr.emit(Notification{
			Type:    NotifyMatchAbandoned,
			MatchID: matchID,
			Data:    map[string]any{"reason": err.Error()},
		})
		return Result{}, err
	}
	if result.Command == "" {
		e.mu.Unlock()
		return Result{}, err
	}

	e.replay.record(actor, cmd, e.match)

	now := time.Now()
	e.outbox = append(e.outbox, Notification{
		Type:      NotifyCommandApplied,
		MatchID:   matchID,
		PlayerID:  actor,
		Timestamp: now,
		Data:      map[string]any{"result": result},
	})
	if result.Command == CommandChangeTurn {
		e.outbox = append(e.outbox, Notification{
			Type:      NotifyTurnChanged,
			MatchID:   matchID,
			PlayerID:  e.match.ActivePlayer(),
			Timestamp: now,
			Data:      map[string]any{"turn": result.Turn},
		})
	}
	var (
		record *MatchRecord
		replay Replay
	)
	if result.Finished {
		record = recordOf(e.match)
		e.replay.FinishedAt = record.FinishedAt
		replay = e.replay.clone()
		e.outbox = append(e.outbox, Notification{
			Type:      NotifyMatchFinished,
			MatchID:   matchID,
			Timestamp: now,
			Data:      map[string]any{"winner": result.Winner, "turn": result.Turn},
		})
	}
	e.mu.Unlock()

	mgr.flush(e)
	if record != nil {
		mgr.record(ctx, *record)
		mgr.archiveReplay(replay)
	}
	return result, err
}

func (mgr *Manager) archiveReplay(r Replay) {
	mgr.mu.RLock()
	archive := mgr.archive
	mgr.mu.RUnlock()
	if archive == nil {
		return
	}
	if err := archive.Save(r); err != nil {
		mgr.logger.Warn("failed to archive replay",
			zap.String("match_id", r.MatchID),
			zap.Error(err))
	}
}

func recordOf(m *Match) *MatchRecord {
	players := m.Players()
	return &MatchRecord{
		MatchID:    m.ID(),
		GameType:   m.GameType(),
		PlayerOne:  players[0].Username,
		PlayerTwo:  players[1].Username,
		Winner:     m.Winner(),
		Turns:      m.Turn(),
		StartedAt:  m.StartedAt(),
		FinishedAt: time.Now().UTC(),
	}
}

func (mgr *Manager) record(ctx context.Context, record MatchRecord) {
	mgr.mu.RLock()
	recorder := mgr.recorder
	mgr.mu.RUnlock()
	if recorder == nil {
		return
	}
	if err := recorder.RecordMatch(ctx, record); err != nil {
		mgr.logger.Warn("failed to record match result",
			zap.String("match_id", record.MatchID),
			zap.Error(err))
	}
}

func (mgr *Manager) emit(n Notification) {
	mgr.mu.RLock()
	notifier := mgr.notifier
	mgr.mu.RUnlock()
	if notifier == nil {
		return
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}
	notifier.Notify(n)
}

// View returns the match as seen by viewer.
func (mgr *Manager) View(matchID, viewer string) (MatchView, error) {
	e, err := mgr.lookup(matchID)
	if err != nil {
		return MatchView{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.match.View(viewer), nil
}

// Replay returns the command log of a running match.
func (mgr *Manager) Replay(matchID string) (Replay, error) {
	e, err := mgr.lookup(matchID)
	if err != nil {
		return Replay{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.replay.clone(), nil
}

// Rebuild re-runs a replay against the manager's catalog and decks.
func (mgr *Manager) Rebuild(r Replay, upto int) (*Match, error) {
	return Rebuild(mgr.catalog, mgr.decks, r, upto, mgr.logger)
}

// Participants returns the usernames of a match, first player first.
func (mgr *Manager) Participants(matchID string) ([]string, error) {
	e, err := mgr.lookup(matchID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	players := e.match.Players()
	return []string{players[0].Username, players[1].Username}, nil
}

// Remove drops a match. It reports whether the match existed.
func (mgr *Manager) Remove(matchID string) bool {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if _, ok := mgr.matches[matchID]; !ok {
		return false
	}
	delete(mgr.matches, matchID)
	mgr.logger.Info("match removed", zap.String("match_id", matchID))
	return true
}

// Count returns the number of registered matches.
func (mgr *Manager) Count() int {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	return len(mgr.matches)
}
