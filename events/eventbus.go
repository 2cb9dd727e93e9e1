package events

import (
	"sync"
	"time"

	"github.com/Siasom1/gorrillazz-minter/core/types"
)

type RunPhase string

const (
	RunStarted  RunPhase = "started"
	RunFinished RunPhase = "finished"
)

// RunEvent marks the start and end of a batch run.
type RunEvent struct {
	RunID      string        `json:"runId"`
	Phase      RunPhase      `json:"phase"`
	TotalUnits uint64        `json:"totalUnits"`
	Summary    types.Summary `json:"summary"`
	At         time.Time     `json:"at"`
}

// Event is one entry of the ordered stream from Subscribe. Exactly one field
// is set.
type Event struct {
	Result *types.SubmissionResult
	Run    *RunEvent
}

// EventBus fans results out to observers. Publishing never blocks: a
// subscriber that falls behind misses events.
type EventBus struct {
	mu         sync.RWMutex
	resultSubs []chan types.SubmissionResult
	runSubs    []chan RunEvent
	allSubs    []chan Event
}

func NewEventBus() *EventBus {
	return &EventBus{
		resultSubs: make([]chan types.SubmissionResult, 0),
		runSubs:    make([]chan RunEvent, 0),
		allSubs:    make([]chan Event, 0),
	}
}

// -------------------- Results --------------------

func (b *EventBus) SubscribeResults() <-chan types.SubmissionResult {
	ch := make(chan types.SubmissionResult, 64)

	b.mu.Lock()
	b.resultSubs = append(b.resultSubs, ch)
	b.mu.Unlock()

	return ch
}

func (b *EventBus) PublishResult(r types.SubmissionResult) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.resultSubs {
		select {
		case ch <- r:
		default:
		}
	}
	b.publishAll(Event{Result: &r})
}

// -------------------- Runs --------------------

func (b *EventBus) SubscribeRuns() <-chan RunEvent {
	ch := make(chan RunEvent, 16)

	b.mu.Lock()
	b.runSubs = append(b.runSubs, ch)
	b.mu.Unlock()

	return ch
}

func (b *EventBus) PublishRun(ev RunEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.runSubs {
		select {
		case ch <- ev:
		default:
		}
	}
	b.publishAll(Event{Run: &ev})
}

// -------------------- Ordered stream --------------------

// Subscribe returns results and run events on one channel, in the order
// they were published.
func (b *EventBus) Subscribe() <-chan Event {
	ch := make(chan Event, 256)

	b.mu.Lock()
	b.allSubs = append(b.allSubs, ch)
	b.mu.Unlock()

	return ch
}

// publishAll expects b.mu to be held for reading.
func (b *EventBus) publishAll(ev Event) {
	for _, ch := range b.allSubs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (b *EventBus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, ch := range b.allSubs {
		if ch == sub {
			b.allSubs = append(b.allSubs[:i], b.allSubs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Unsubscribe removes and closes a channel returned by SubscribeResults.
func (b *EventBus) UnsubscribeResults(sub <-chan types.SubmissionResult) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, ch := range b.resultSubs {
		if ch == sub {
			b.resultSubs = append(b.resultSubs[:i], b.resultSubs[i+1:]...)
			close(ch)
			return
		}
	}
}

// UnsubscribeRuns removes and closes a channel returned by SubscribeRuns.
func (b *EventBus) UnsubscribeRuns(sub <-chan RunEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, ch := range b.runSubs {
		if ch == sub {
			b.runSubs = append(b.runSubs[:i], b.runSubs[i+1:]...)
			close(ch)
			return
		}
	}
}
