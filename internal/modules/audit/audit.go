package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EventType enumerates the ledger-affecting operations worth recording.
type EventType string

const (
	TransferCreated   EventType = "transfer.created"
	TransferCompleted EventType = "transfer.completed"
	TransferCancelled EventType = "transfer.cancelled"
	TransferDeleted   EventType = "transfer.deleted"
	IntakeCommitted   EventType = "intake.committed"
)

// Event describes one recorded operation.
type Event struct {
	Type       EventType
	Actor      uuid.UUID
	TransferID uuid.UUID // zero for intake events
	ShopIDs    []uuid.UUID
	OccurredAt time.Time
}

// Recorder accepts events without ever blocking or failing the caller.
// A Recorder failure must not affect the operation being recorded.
type Recorder interface {
	Record(event Event)
}

// LogRecorder drains a buffered queue of events into the structured log.
// When the queue is full the event is dropped with a warning rather than
// stalling a mutation.
type LogRecorder struct {
	queue chan Event
	done  chan struct{}
}

func NewLogRecorder(queueSize int) *LogRecorder {
	r := &LogRecorder{
		queue: make(chan Event, queueSize),
		done:  make(chan struct{}),
	}
	go r.drain()
	return r
}

func (r *LogRecorder) Record(e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	select {
	case r.queue <- e:
	default:
		log.Warn().Str("type", string(e.Type)).Msg("audit: queue full, event dropped")
	}
}

func (r *LogRecorder) drain() {
	for e := range r.queue {
		evt := log.Info().
			Str("type", string(e.Type)).
			Time("occurred_at", e.OccurredAt)
		if e.Actor != uuid.Nil {
			evt = evt.Str("actor", e.Actor.String())
		}
		if e.TransferID != uuid.Nil {
			evt = evt.Str("transfer_id", e.TransferID.String())
		}
		shops := make([]string, 0, len(e.ShopIDs))
		for _, id := range e.ShopIDs {
			shops = append(shops, id.String())
		}
		evt.Strs("shops", shops).Msg("audit event")
	}
	close(r.done)
}

// Close flushes and stops the recorder. Record must not be called afterwards.
func (r *LogRecorder) Close() {
	close(r.queue)
	<-r.done
}
