package rules

import (
	"sync"
	"time"
)

// EventType indicates the category of a rules event.
type EventType string

const (
	EventMatchStarted   EventType = "MATCH_STARTED"
	EventCardDrawn      EventType = "CARD_DRAWN"
	EventTroopPlaced    EventType = "TROOP_PLACED"
	EventTroopMoved     EventType = "TROOP_MOVED"
	EventDamageDealt    EventType = "DAMAGE_DEALT"
	EventCounterAttack  EventType = "COUNTER_ATTACK"
	EventCounterBlocked EventType = "COUNTER_BLOCKED"
	EventTroopDied      EventType = "TROOP_DIED"
	EventSpellCast      EventType = "SPELL_CAST"
	EventTurnChanged    EventType = "TURN_CHANGED"
	EventMatchFinished  EventType = "MATCH_FINISHED"
)

// Event represents a state change that other subsystems may react to.
type Event struct {
	Type      EventType `json:"type"`
	TargetID  string    `json:"target_id,omitempty"`
	SourceID  string    `json:"source_id,omitempty"`
	PlayerID  string    `json:"player_id,omitempty"`
	Amount    int       `json:"amount,omitempty"`
	Row       int       `json:"row,omitempty"`
	Column    int       `json:"column,omitempty"`
	Data      string    `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, targetID, sourceID, playerID string) Event {
	return Event{
		Type:      eventType,
		TargetID:  targetID,
		SourceID:  sourceID,
		PlayerID:  playerID,
		Timestamp: time.Now(),
	}
}

// NewEventWithAmount creates a new event with an amount value.
func NewEventWithAmount(eventType EventType, targetID, sourceID, playerID string, amount int) Event {
	evt := NewEvent(eventType, targetID, sourceID, playerID)
	evt.Amount = amount
	return evt
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

type typedListener struct {
	handle    int
	eventType EventType
	callback  Listener
}

// EventBus provides a synchronous publish/subscribe implementation with type
// filtering. Listeners run in subscription order.
type EventBus struct {
	mu         sync.RWMutex
	listeners  []typedListener
	nextHandle int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	return bus.SubscribeTyped("", listener)
}

// SubscribeTyped registers a listener for a specific event type. An empty type matches everything.
func (bus *EventBus) SubscribeTyped(eventType EventType, listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners = append(bus.listeners, typedListener{handle: handle, eventType: eventType, callback: listener})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, l := range bus.listeners {
		if l.handle == handle {
			bus.listeners = append(bus.listeners[:i], bus.listeners[i+1:]...)
			return
		}
	}
}

// Publish delivers the event to all matching listeners synchronously.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	listeners := make([]typedListener, len(bus.listeners))
	copy(listeners, bus.listeners)
	bus.mu.RUnlock()

	for _, l := range listeners {
		if l.eventType == "" || l.eventType == event.Type {
			l.callback(event)
		}
	}
}
