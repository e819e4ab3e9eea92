package stream

import (
	"sync"
	"time"

	"github.com/downfa11-org/go-shuffle/pkg/metrics"
	"github.com/downfa11-org/go-shuffle/pkg/partition"
	"github.com/downfa11-org/go-shuffle/pkg/wire"
	"github.com/google/uuid"
)

// ViewReader is the per-consumer serving cursor: it owns the receiver's
// credit balance and sequence counter, polls its subpartition view, and
// implements the availability listener the view notifies. Next runs on the
// single server thread; NotifyDataAvailable can fire from any thread.
type ViewReader struct {
	receiverID uuid.UUID
	view       partition.SubpartitionView
	notifyCh   chan struct{}
	onNotify   func(*ViewReader)

	mu      sync.Mutex
	credits int
	seq     uint64
}

func NewViewReader(receiverID uuid.UUID, initialCredits int) *ViewReader {
	return &ViewReader{
		receiverID: receiverID,
		notifyCh:   make(chan struct{}, 1),
		credits:    initialCredits,
	}
}

// Bind attaches the subpartition view. The reader itself is usually the
// listener passed when the view was created.
func (r *ViewReader) Bind(view partition.SubpartitionView) {
	r.view = view
}

func (r *ViewReader) ReceiverID() uuid.UUID {
	return r.receiverID
}

func (r *ViewReader) View() partition.SubpartitionView {
	return r.view
}

// NotifyDataAvailable raises the single-slot wake-up flag. Repeat
// notifications before the consumer drains the slot collapse into one;
// the poll re-checks real state, so nothing is lost.
func (r *ViewReader) NotifyDataAvailable() {
	select {
	case r.notifyCh <- struct{}{}:
	default:
	}
	if r.onNotify != nil {
		r.onNotify(r)
	}
}

// Notified exposes the wake-up flag for the server loop to select on.
func (r *ViewReader) Notified() <-chan struct{} {
	return r.notifyCh
}

// AddCredits grants n more data credits and resumes a view paused by a
// blocking event.
func (r *ViewReader) AddCredits(n int) {
	r.mu.Lock()
	r.credits += n
	r.mu.Unlock()

	if r.view != nil {
		r.view.ResumeConsumption()
	}
}

func (r *ViewReader) Credits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.credits
}

// Available reports whether a poll would deliver under the current credit
// balance. Control events are exempt from credit gating.
func (r *ViewReader) Available() bool {
	return r.view.IsAvailable(r.Credits())
}

// Next polls the view and builds the outbound wire message, assigning the
// strictly increasing per-consumer sequence number and consuming one
// credit for data units. Events consume no credit.
func (r *ViewReader) Next() (wire.Message, partition.PollState, error) {
	start := time.Now()

	credits := r.Credits()
	if !r.view.IsAvailable(credits) {
		return nil, PollStateOf(r.view), nil
	}

	raw, state, err := r.view.GetNextRawMessage()
	if err != nil || state != partition.PollReady {
		return nil, state, err
	}

	msg, err := raw.BuildMessage(r.receiverID, r.seq)
	if err != nil {
		return nil, partition.PollNotAvailable, err
	}
	r.seq++

	if raw.IsBuffer() {
		r.mu.Lock()
		r.credits--
		r.mu.Unlock()
	}

	metrics.PushServed(payloadSize(msg), time.Since(start).Seconds())
	return msg, partition.PollReady, nil
}

// SequenceNumber returns the next sequence number to be assigned.
func (r *ViewReader) SequenceNumber() uint64 {
	return r.seq
}

// Release frees the underlying view. Idempotent.
func (r *ViewReader) Release() error {
	if r.view == nil {
		return nil
	}
	return r.view.ReleaseAllResources()
}

// PollStateOf maps a view's terminal flags onto the state reported when a
// credit-gated poll delivers nothing.
func PollStateOf(view partition.SubpartitionView) partition.PollState {
	if view.IsFinished() {
		return partition.PollFinished
	}
	return partition.PollNotAvailable
}

func payloadSize(msg wire.Message) int {
	switch m := msg.(type) {
	case *wire.BufferResponse:
		return len(m.Payload)
	case *wire.FileRegionResponse:
		return int(m.Size)
	default:
		return 0
	}
}
