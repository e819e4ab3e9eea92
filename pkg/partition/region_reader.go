package partition

import (
	"sync"

	"github.com/downfa11-org/go-shuffle/pkg/buffer"
)

// RegionReader replays a sealed store as file-region units for zero-copy
// serving. It consumes no pool segments: the bytes stay on disk until the
// transport layer transfers them.
type RegionReader struct {
	store    *BoundedStore
	listener AvailabilityListener

	mu            sync.Mutex
	offset        int64
	unitsRead     int
	dataUnitsRead int
	finished      bool
	closed        bool
}

func (r *RegionReader) NextUnit() (DataUnit, PollState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.store.isClosed() {
		return nil, PollFinished, ErrReaderClosed
	}
	if r.finished {
		return nil, PollFinished, nil
	}
	if r.offset >= r.store.Size() {
		r.finished = true
		return nil, PollFinished, nil
	}

	dataType, compressed, length, err := readFrameHeader(r.store.file, r.offset)
	if err != nil {
		return nil, PollNotAvailable, err
	}

	payloadOffset := r.offset + frameHeaderSize
	seq := uint64(r.unitsRead)
	r.unitsRead++
	if dataType.IsData() {
		r.dataUnitsRead++
	}
	r.offset = payloadOffset + int64(length)

	nextDataType := buffer.DataTypeNone
	if r.offset < r.store.Size() {
		nextDataType, _, _, err = readFrameHeader(r.store.file, r.offset)
		if err != nil {
			return nil, PollNotAvailable, err
		}
	}

	backlog := r.store.NumUnits() - r.unitsRead
	return NewFileRegionUnit(r.store.file, payloadOffset, length, dataType, compressed, backlog, nextDataType, seq), PollReady, nil
}

func (r *RegionReader) Peek() (buffer.DataType, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.finished || r.offset >= r.store.Size() {
		return buffer.DataTypeNone, false
	}
	dataType, _, _, err := readFrameHeader(r.store.file, r.offset)
	if err != nil {
		return buffer.DataTypeNone, false
	}
	return dataType, true
}

func (r *RegionReader) QueuedUnits() int {
	return r.store.NumUnits() - r.unitsRead
}

func (r *RegionReader) DataBacklog() int {
	return r.store.NumDataUnits() - r.dataUnitsRead
}

func (r *RegionReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
