package game

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/alimohammadiamirhossein/project-7/internal/game/cards"
	"github.com/alimohammadiamirhossein/project-7/internal/game/rules"
)

type notificationLog struct {
	mu    sync.Mutex
	items []Notification
}

func (l *notificationLog) Notify(n Notification) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, n)
}

func (l *notificationLog) types() []NotificationType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]NotificationType, len(l.items))
	for i, n := range l.items {
		out[i] = n.Type
	}
	return out
}

type recorderFunc func(ctx context.Context, record MatchRecord) error

func (f recorderFunc) RecordMatch(ctx context.Context, record MatchRecord) error { return f(ctx, record) }

func newTestManager(t *testing.T, settings Settings) *Manager {
	t.Helper()
	catalog, err := cards.DefaultCatalog()
	require.NoError(t, err)
	decks, err := cards.DefaultDecks(catalog)
	require.NoError(t, err)
	return NewManager(catalog, decks, settings, zaptest.NewLogger(t))
}

func seats() [2]PlayerSpec {
	return [2]PlayerSpec{{Username: alice, Deck: "persian"}, {Username: bob, Deck: "Turanian"}}
}

func TestManagerCreate(t *testing.T) {
	mgr := newTestManager(t, Settings{})
	assert.Equal(t, []string{"persian", "turanian"}, mgr.Decks())

	_, err := mgr.Create([2]PlayerSpec{{Username: alice, Deck: "persian"}, {Username: "Alice", Deck: "persian"}}, "")
	assert.ErrorIs(t, err, ErrSamePlayer)

	_, err = mgr.Create([2]PlayerSpec{{Username: alice, Deck: "persian"}, {Username: bob, Deck: "elvish"}}, "")
	assert.Error(t, err)

	id, err := mgr.Create(seats(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, mgr.Count())

	participants, err := mgr.Participants(id)
	require.NoError(t, err)
	assert.Equal(t, []string{alice, bob}, participants)

	view, err := mgr.View(id, alice)
	require.NoError(t, err)
	assert.Equal(t, GameKillHero, view.GameType)
	assert.Equal(t, alice, view.ActivePlayer)
	assert.Equal(t, "Crown of Wisdom", view.Players[0].Item)
	assert.Equal(t, 3, view.Players[0].Mana, "crown of wisdom adds one mana")
}

func TestManagerUnknownMatch(t *testing.T) {
	mgr := newTestManager(t, Settings{})

	_, err := mgr.Apply(context.Background(), "missing", alice, ChangeTurn{})
	assert.ErrorIs(t, err, rules.ErrUnknownMatch)
	_, err = mgr.View("missing", alice)
	assert.ErrorIs(t, err, rules.ErrUnknownMatch)
	assert.False(t, mgr.Remove("missing"))
}

func TestManagerNotifiesInCommitOrder(t *testing.T) {
	mgr := newTestManager(t, Settings{})
	log := &notificationLog{}
	mgr.SetNotifier(log)

	id, err := mgr.Create(seats(), "")
	require.NoError(t, err)

	_, err = mgr.Apply(context.Background(), id, bob, ChangeTurn{})
	require.ErrorIs(t, err, rules.ErrNotYourTurn)

	result, err := mgr.Apply(context.Background(), id, alice, ChangeTurn{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Turn)

	assert.Equal(t, []NotificationType{NotifyMatchStarted, NotifyCommandApplied, NotifyTurnChanged}, log.types())
	turn := log.items[2]
	assert.Equal(t, id, turn.MatchID)
	assert.Equal(t, bob, turn.PlayerID)
	assert.Equal(t, 2, turn.Data["turn"])
}

func TestManagerNotifierMayReadViews(t *testing.T) {
	mgr := newTestManager(t, Settings{})
	var turns []int
	mgr.SetNotifier(NotifierFunc(func(n Notification) {
		if n.Type != NotifyCommandApplied {
			return
		}
		view, err := mgr.View(n.MatchID, n.PlayerID)
		require.NoError(t, err)
		turns = append(turns, view.Turn)
	}))

	id, err := mgr.Create(seats(), "")
	require.NoError(t, err)
	_, err = mgr.Apply(context.Background(), id, alice, ChangeTurn{})
	require.NoError(t, err)
	_, err = mgr.Apply(context.Background(), id, bob, ChangeTurn{})
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3}, turns)
}

func TestManagerRecordsFinishedMatches(t *testing.T) {
	mgr := newTestManager(t, Settings{MaxTurns: 1})
	log := &notificationLog{}
	mgr.SetNotifier(log)

	var records []MatchRecord
	mgr.SetRecorder(recorderFunc(func(_ context.Context, record MatchRecord) error {
		records = append(records, record)
		return nil
	}))

	id, err := mgr.Create(seats(), GameTurnLimit)
	require.NoError(t, err)

	result, err := mgr.Apply(context.Background(), id, alice, ChangeTurn{})
	require.NoError(t, err)
	require.True(t, result.Finished)

	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].MatchID)
	assert.Equal(t, GameTurnLimit, records[0].GameType)
	assert.Equal(t, alice, records[0].PlayerOne)
	assert.Equal(t, bob, records[0].PlayerTwo)
	assert.Empty(t, records[0].Winner)
	assert.Equal(t, 2, records[0].Turns)
	assert.Contains(t, log.types(), NotifyMatchFinished)

	_, err = mgr.Apply(context.Background(), id, bob, ChangeTurn{})
	assert.ErrorIs(t, err, rules.ErrMatchFinished)

	assert.True(t, mgr.Remove(id))
	assert.Equal(t, 0, mgr.Count())
}

func TestManagerSerialisesCommandsPerMatch(t *testing.T) {
	mgr := newTestManager(t, Settings{})
	id, err := mgr.Create(seats(), "")
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Apply(context.Background(), id, alice, ChangeTurn{})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, rules.ErrNotYourTurn)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	view, err := mgr.View(id, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Turn)
}

func TestManagerRunsMatchesInParallel(t *testing.T) {
	mgr := newTestManager(t, Settings{})

	ids := make([]string, 8)
	for i := range ids {
		id, err := mgr.Create(seats(), "")
		require.NoError(t, err)
		ids[i] = id
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			for turn := 1; turn <= 6; turn++ {
				actor := alice
				if turn%2 == 0 {
					actor = bob
				}
				_, err := mgr.Apply(context.Background(), id, actor, ChangeTurn{})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		view, err := mgr.View(id, alice)
		require.NoError(t, err)
		assert.Equal(t, 7, view.Turn)
	}
}
