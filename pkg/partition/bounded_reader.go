package partition

import (
	"fmt"
	"sync"

	"github.com/downfa11-org/go-shuffle/pkg/buffer"
	"github.com/downfa11-org/go-shuffle/pkg/metrics"
)

// BoundedReader is a sequential, non-blocking cursor over a sealed store.
// NextUnit never waits: when a unit cannot be produced right now the
// caller retries after an availability notification.
type BoundedReader interface {
	NextUnit() (DataUnit, PollState, error)

	// Peek reports the data type of the next unit and whether a NextUnit
	// call could deliver it right now.
	Peek() (buffer.DataType, bool)

	QueuedUnits() int
	DataBacklog() int
	Close() error
}

// BufferReader replays a sealed store by staging each frame into a pooled
// scratch segment. With all k segments outstanding downstream, NextUnit
// returns PollNotAvailable instead of blocking; recycling a delivered
// buffer returns its segment and re-notifies the listener. This is how a
// slow consumer back-pressures disk reads without deadlocking the reader.
type BufferReader struct {
	store    *BoundedStore
	pool     *buffer.SegmentPool
	listener AvailabilityListener

	mu            sync.Mutex
	offset        int64
	unitsRead     int
	dataUnitsRead int
	finished      bool
	closed        bool
}

func (r *BufferReader) NextUnit() (DataUnit, PollState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.store.isClosed() {
		return nil, PollFinished, ErrReaderClosed
	}
	if r.finished {
		return nil, PollFinished, nil
	}

	// The pool check comes before the end-of-stream check: while segments
	// are outstanding the reader must stay non-terminal so that their
	// recycle still re-notifies the listener.
	seg, ok := r.pool.TryAcquire()
	if !ok {
		metrics.PoolExhaustions.Inc()
		return nil, PollNotAvailable, nil
	}
	if r.offset >= r.store.Size() {
		r.pool.Release(seg)
		r.finished = true
		return nil, PollFinished, nil
	}

	dataType, compressed, length, err := readFrameHeader(r.store.file, r.offset)
	if err != nil {
		r.pool.Release(seg)
		return nil, PollNotAvailable, err
	}
	if length > seg.Cap() {
		r.pool.Release(seg)
		return nil, PollNotAvailable, fmt.Errorf("%w: frame %d bytes, segment %d", ErrFrameTooLarge, length, seg.Cap())
	}
	if err := readFileRange(r.store.file, seg.Slice(length), r.offset+frameHeaderSize); err != nil {
		r.pool.Release(seg)
		return nil, PollNotAvailable, err
	}

	seq := uint64(r.unitsRead)
	r.unitsRead++
	if dataType.IsData() {
		r.dataUnitsRead++
	}
	r.offset += int64(frameHeaderSize + length)

	nextDataType := buffer.DataTypeNone
	if r.offset < r.store.Size() {
		nextDataType, _, _, err = readFrameHeader(r.store.file, r.offset)
		if err != nil {
			r.pool.Release(seg)
			return nil, PollNotAvailable, err
		}
	}

	buf := buffer.NewSegmentBuffer(seg, length, dataType, compressed, r)
	backlog := r.store.NumUnits() - r.unitsRead
	return NewBufferUnit(buf, backlog, nextDataType, seq), PollReady, nil
}

// Recycle returns the buffer's scratch segment to the pool and, unless the
// reader has already reached a terminal state, re-notifies the listener.
// Runs on whatever thread released the last buffer reference.
func (r *BufferReader) Recycle(b *buffer.Buffer) {
	r.pool.Release(b.Segment())

	r.mu.Lock()
	terminal := r.finished || r.closed
	listener := r.listener
	r.mu.Unlock()

	if !terminal && listener != nil {
		metrics.AvailabilityNotifications.Inc()
		listener.NotifyDataAvailable()
	}
}

func (r *BufferReader) Peek() (buffer.DataType, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.finished || r.offset >= r.store.Size() {
		return buffer.DataTypeNone, false
	}
	dataType, _, _, err := readFrameHeader(r.store.file, r.offset)
	if err != nil {
		return buffer.DataTypeNone, false
	}
	if r.pool.Available() == 0 {
		return dataType, false
	}
	return dataType, true
}

func (r *BufferReader) QueuedUnits() int {
	return r.store.NumUnits() - r.unitsRead
}

func (r *BufferReader) DataBacklog() int {
	return r.store.NumDataUnits() - r.dataUnitsRead
}

// Close marks the reader terminal. Outstanding segments drain back into
// the pool as their buffers are recycled; the shared store file stays open
// until the store itself is closed.
func (r *BufferReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
