package wallet

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
)

// EventKind discriminates adapter events.
type EventKind string

const (
	EventConnect          EventKind = "connect"
	EventDisconnect       EventKind = "disconnect"
	EventError            EventKind = "error"
	EventReadyStateChange EventKind = "ready_state_change"
)

// Event is a state-change notification produced by an adapter and consumed
// by UI layers or relays. Exactly one payload field is set per kind:
// PublicKey for Connect, Err for Error, ReadyState for ReadyStateChange.
type Event struct {
	Kind       EventKind
	PublicKey  solana.PublicKey
	Err        error
	ReadyState ReadyState
}

func ConnectEvent(pk solana.PublicKey) Event {
	return Event{Kind: EventConnect, PublicKey: pk}
}

func DisconnectEvent() Event {
	return Event{Kind: EventDisconnect}
}

func ErrorEvent(err error) Event {
	return Event{Kind: EventError, Err: err}
}

func ReadyStateChangeEvent(state ReadyState) Event {
	return Event{Kind: EventReadyStateChange, ReadyState: state}
}

// emitterCapacity bounds the per-adapter event queue. A full queue applies
// back-pressure to Emit and drops in EmitSync, keeping memory bounded during
// rapid reconnect storms.
const emitterCapacity = 100

// Emitter is the bounded FIFO event queue owned by an adapter instance.
// Events are delivered in emission order. There is no replay: events beyond
// the channel capacity are either waited on (Emit) or dropped (EmitSync).
type Emitter struct {
	ch      chan Event
	dropped atomic.Uint64
}

func NewEmitter() *Emitter {
	return &Emitter{ch: make(chan Event, emitterCapacity)}
}

// Emit enqueues an event, blocking while the queue is full.
func (e *Emitter) Emit(ctx context.Context, ev Event) error {
	select {
	case e.ch <- ev:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("emit %s: %w", ev.Kind, ctx.Err())
	}
}

// EmitSync enqueues an event without blocking, for callers inside external
// callbacks that cannot wait. Returns false if the queue was full and the
// event was dropped; the drop is counted, never a panic.
func (e *Emitter) EmitSync(ev Event) bool {
	select {
	case e.ch <- ev:
		return true
	default:
		e.dropped.Add(1)
		return false
	}
}

// Recv blocks until an event is available or ctx is done.
func (e *Emitter) Recv(ctx context.Context) (Event, error) {
	select {
	case ev := <-e.ch:
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Events exposes the underlying channel for select loops.
func (e *Emitter) Events() <-chan Event {
	return e.ch
}

// Dropped reports how many events EmitSync discarded on a full queue.
func (e *Emitter) Dropped() uint64 {
	return e.dropped.Load()
}
