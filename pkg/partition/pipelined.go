package partition

import (
	"sync"

	"github.com/downfa11-org/go-shuffle/pkg/buffer"
	"github.com/downfa11-org/go-shuffle/pkg/metrics"
	"github.com/downfa11-org/go-shuffle/util"
)

// PipelinedSubpartition is the memory-resident exchange: the producer
// appends units while a single consumer view drains them. Buffers are
// recycled back through the subpartition, which re-notifies the view
// unless it has already reached a terminal state.
type PipelinedSubpartition struct {
	mu         sync.Mutex
	queue      []*buffer.Buffer
	backlog    int
	finished   bool
	released   bool
	view       *PipelinedSubpartitionView
	unitsAdded int
	bytesAdded int64
}

func NewPipelinedSubpartition() *PipelinedSubpartition {
	return &PipelinedSubpartition{}
}

// Append enqueues one data unit and wakes the consumer.
func (p *PipelinedSubpartition) Append(payload []byte, compressed bool) error {
	return p.add(buffer.NewBuffer(payload, buffer.DataTypeData, compressed, p))
}

// AppendEvent enqueues one control event. Events bypass credit gating on
// the consumer side.
func (p *PipelinedSubpartition) AppendEvent(payload []byte, dataType buffer.DataType) error {
	if !dataType.IsEvent() {
		return ErrNotAnEvent
	}
	return p.add(buffer.NewBuffer(payload, dataType, false, p))
}

func (p *PipelinedSubpartition) add(b *buffer.Buffer) error {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return ErrSubpartitionReleased
	}
	if p.finished {
		p.mu.Unlock()
		return ErrSubpartitionFinished
	}

	p.queue = append(p.queue, b)
	if b.DataType().IsData() {
		p.backlog++
	}
	p.unitsAdded++
	p.bytesAdded += int64(b.Len())
	view := p.view
	p.mu.Unlock()

	if view != nil {
		view.NotifyDataAvailable()
	}
	return nil
}

// Finish enqueues the end-of-stream event and refuses further appends.
func (p *PipelinedSubpartition) Finish() error {
	if err := p.AppendEvent(nil, buffer.DataTypeEndOfStream); err != nil {
		return err
	}
	p.mu.Lock()
	p.finished = true
	p.mu.Unlock()
	return nil
}

// CreateReadView opens the single consumer view. The listener is notified
// right away so an already filled queue is drained without waiting for the
// next append.
func (p *PipelinedSubpartition) CreateReadView(listener AvailabilityListener) (*PipelinedSubpartitionView, error) {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return nil, ErrSubpartitionReleased
	}
	if p.view != nil {
		p.mu.Unlock()
		return nil, ErrViewAlreadyCreated
	}
	v := &PipelinedSubpartitionView{parent: p, listener: listener}
	p.view = v
	p.mu.Unlock()

	metrics.ActiveViews.Inc()
	if listener != nil {
		listener.NotifyDataAvailable()
	}
	return v, nil
}

// Recycle runs when a delivered buffer's last reference drops, on whatever
// thread released it. The view decides whether a notification still fires.
func (p *PipelinedSubpartition) Recycle(*buffer.Buffer) {
	p.mu.Lock()
	view := p.view
	p.mu.Unlock()

	if view != nil {
		metrics.AvailabilityNotifications.Inc()
		view.NotifyDataAvailable()
	}
}

// Release drops all queued buffers and marks the subpartition terminal.
func (p *PipelinedSubpartition) Release() {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return
	}
	p.released = true
	dropped := len(p.queue)
	p.queue = nil
	p.backlog = 0
	view := p.view
	p.mu.Unlock()

	if dropped > 0 {
		util.Debug("released pipelined subpartition with %d undelivered units", dropped)
	}
	if view != nil {
		if err := view.ReleaseAllResources(); err != nil {
			util.Error("failed to release view: %v", err)
		}
	}
}

func (p *PipelinedSubpartition) UnitsAdded() int   { return p.unitsAdded }
func (p *PipelinedSubpartition) BytesAdded() int64 { return p.bytesAdded }

// PipelinedSubpartitionView is the consumer cursor over a pipelined
// subpartition. Polling is single-threaded; notification and release are
// thread-safe.
type PipelinedSubpartitionView struct {
	parent   *PipelinedSubpartition
	listener AvailabilityListener

	mu               sync.Mutex
	released         bool
	paused           bool
	finishedConsumed bool
	failure          error
}

func (v *PipelinedSubpartitionView) GetNextRawMessage() (RawMessage, PollState, error) {
	v.mu.Lock()
	if v.released {
		v.mu.Unlock()
		return nil, PollFinished, ErrViewReleased
	}
	if v.finishedConsumed {
		v.mu.Unlock()
		return nil, PollFinished, nil
	}
	if v.paused {
		v.mu.Unlock()
		return nil, PollNotAvailable, nil
	}
	v.mu.Unlock()

	p := v.parent
	p.mu.Lock()
	if len(p.queue) == 0 {
		p.mu.Unlock()
		return nil, PollNotAvailable, nil
	}

	head := p.queue[0]
	p.queue = p.queue[1:]
	if head.DataType().IsData() {
		p.backlog--
	}
	backlog := p.backlog
	nextDataType := buffer.DataTypeNone
	if len(p.queue) > 0 {
		nextDataType = p.queue[0].DataType()
	}
	p.mu.Unlock()

	v.mu.Lock()
	if head.DataType() == buffer.DataTypeEndOfStream {
		v.finishedConsumed = true
	}
	if head.DataType().IsBlocking() {
		v.paused = true
	}
	paused := v.paused
	v.mu.Unlock()

	dataAvailable := nextDataType.IsData() && !paused
	eventAvailable := nextDataType.IsEvent()
	return NewBufferRawMessage(head, dataAvailable, eventAvailable, backlog), PollReady, nil
}

func (v *PipelinedSubpartitionView) NotifyDataAvailable() {
	v.mu.Lock()
	terminal := v.released || v.finishedConsumed
	listener := v.listener
	v.mu.Unlock()

	if !terminal && listener != nil {
		listener.NotifyDataAvailable()
	}
}

func (v *PipelinedSubpartitionView) IsAvailable(credits int) bool {
	v.mu.Lock()
	if v.released || v.finishedConsumed || v.paused {
		v.mu.Unlock()
		return false
	}
	v.mu.Unlock()

	p := v.parent
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return false
	}
	head := p.queue[0].DataType()
	if head.IsEvent() {
		return true
	}
	return credits > 0
}

// ResumeConsumption clears the pause set by a blocking event and wakes the
// consumer to poll again.
func (v *PipelinedSubpartitionView) ResumeConsumption() {
	v.mu.Lock()
	v.paused = false
	v.mu.Unlock()
	v.NotifyDataAvailable()
}

func (v *PipelinedSubpartitionView) ReleaseAllResources() error {
	v.mu.Lock()
	if v.released {
		v.mu.Unlock()
		return nil
	}
	v.released = true
	v.mu.Unlock()

	metrics.ActiveViews.Dec()
	return nil
}

func (v *PipelinedSubpartitionView) IsReleased() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.released
}

func (v *PipelinedSubpartitionView) IsFinished() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.released || v.finishedConsumed
}

func (v *PipelinedSubpartitionView) FailureCause() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.failure
}

func (v *PipelinedSubpartitionView) QueuedUnitCount() int {
	return len(v.parent.queue)
}

func (v *PipelinedSubpartitionView) DataBacklog() int {
	return v.parent.backlog
}
