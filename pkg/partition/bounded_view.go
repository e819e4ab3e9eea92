package partition

import (
	"errors"
	"fmt"
	"sync"

	"github.com/downfa11-org/go-shuffle/pkg/metrics"
)

// BoundedSubpartitionView serves a sealed subpartition through any bounded
// reader. One poll thread drives GetNextRawMessage; release and notify are
// safe from any thread.
type BoundedSubpartitionView struct {
	reader   BoundedReader
	listener AvailabilityListener

	mu       sync.Mutex
	released bool
	failure  error
}

// NewBoundedSubpartitionView wraps a reader. The listener is notified
// immediately: a sealed store always has its first unit ready.
func NewBoundedSubpartitionView(reader BoundedReader, listener AvailabilityListener) *BoundedSubpartitionView {
	v := &BoundedSubpartitionView{reader: reader, listener: listener}
	metrics.ActiveViews.Inc()
	if listener != nil {
		listener.NotifyDataAvailable()
	}
	return v
}

func (v *BoundedSubpartitionView) GetNextRawMessage() (RawMessage, PollState, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.released {
		return nil, PollFinished, ErrViewReleased
	}
	if v.failure != nil {
		return nil, PollFinished, v.failure
	}

	unit, state, err := v.reader.NextUnit()
	if err != nil {
		if errors.Is(err, ErrReaderClosed) {
			return nil, PollFinished, err
		}
		v.failure = err
		return nil, state, err
	}
	if state != PollReady {
		return nil, state, nil
	}

	next := unit.NextDataType()
	dataAvailable := next.IsData()
	eventAvailable := next.IsEvent()

	switch u := unit.(type) {
	case *BufferUnit:
		return NewBufferRawMessage(u.Buffer(), dataAvailable, eventAvailable, u.Backlog()), PollReady, nil
	case *FileRegionUnit:
		offset, size := u.Region()
		return NewFileRawMessage(u.file, offset, size, u.dataType, u.compressed, dataAvailable, eventAvailable, u.Backlog()), PollReady, nil
	default:
		v.failure = fmt.Errorf("unknown data unit type %T", unit)
		return nil, PollNotAvailable, v.failure
	}
}

func (v *BoundedSubpartitionView) NotifyDataAvailable() {
	v.mu.Lock()
	released := v.released
	listener := v.listener
	v.mu.Unlock()

	if !released && listener != nil {
		listener.NotifyDataAvailable()
	}
}

func (v *BoundedSubpartitionView) IsAvailable(credits int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.released || v.failure != nil {
		return false
	}
	dataType, ready := v.reader.Peek()
	if !ready {
		return false
	}
	if credits > 0 {
		return true
	}
	return dataType.IsEvent()
}

// ResumeConsumption is a no-op: a sealed replay never pauses.
func (v *BoundedSubpartitionView) ResumeConsumption() {}

func (v *BoundedSubpartitionView) ReleaseAllResources() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.released {
		return nil
	}
	v.released = true
	metrics.ActiveViews.Dec()
	return v.reader.Close()
}

func (v *BoundedSubpartitionView) IsReleased() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.released
}

func (v *BoundedSubpartitionView) IsFinished() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.released || v.failure != nil || v.reader.QueuedUnits() == 0
}

func (v *BoundedSubpartitionView) FailureCause() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.failure
}

func (v *BoundedSubpartitionView) QueuedUnitCount() int {
	return v.reader.QueuedUnits()
}

func (v *BoundedSubpartitionView) DataBacklog() int {
	return v.reader.DataBacklog()
}
