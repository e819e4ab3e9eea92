package partition

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/downfa11-org/go-shuffle/pkg/buffer"
	"golang.org/x/exp/mmap"
)

// MmapReader replays a sealed store through a memory mapping. Units carry
// copies of the mapped bytes and need no recycle bookkeeping, so the
// reader is not bounded by a segment pool.
type MmapReader struct {
	mapper       *mmap.ReaderAt
	size         int64
	numUnits     int
	numDataUnits int
	listener     AvailabilityListener

	mu            sync.Mutex
	offset        int64
	unitsRead     int
	dataUnitsRead int
	finished      bool
	closed        bool
}

// CreateMmapReader maps the sealed spill file. The mapping is independent
// of the store's file handle and is released by closing the reader.
func (s *BoundedStore) CreateMmapReader(listener AvailabilityListener) (*MmapReader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	if !s.sealed {
		return nil, ErrStoreNotSealed
	}

	mapper, err := mmap.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("mmap open failed: %w", err)
	}
	return &MmapReader{
		mapper:       mapper,
		size:         s.size,
		numUnits:     s.numUnits,
		numDataUnits: s.numDataUnits,
		listener:     listener,
	}, nil
}

func (r *MmapReader) NextUnit() (DataUnit, PollState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, PollFinished, ErrReaderClosed
	}
	if r.finished {
		return nil, PollFinished, nil
	}
	if r.offset >= r.size {
		r.finished = true
		return nil, PollFinished, nil
	}

	dataType, compressed, length, err := r.readHeader(r.offset)
	if err != nil {
		return nil, PollNotAvailable, err
	}

	payload := make([]byte, length)
	if err := readFileRange(r.mapper, payload, r.offset+frameHeaderSize); err != nil {
		return nil, PollNotAvailable, err
	}

	seq := uint64(r.unitsRead)
	r.unitsRead++
	if dataType.IsData() {
		r.dataUnitsRead++
	}
	r.offset += int64(frameHeaderSize + length)

	nextDataType := buffer.DataTypeNone
	if r.offset < r.size {
		nextDataType, _, _, err = r.readHeader(r.offset)
		if err != nil {
			return nil, PollNotAvailable, err
		}
	}

	buf := buffer.NewBuffer(payload, dataType, compressed, buffer.NopRecycler)
	backlog := r.numUnits - r.unitsRead
	return NewBufferUnit(buf, backlog, nextDataType, seq), PollReady, nil
}

func (r *MmapReader) readHeader(off int64) (buffer.DataType, bool, int, error) {
	var hdr [frameHeaderSize]byte
	if err := readFileRange(r.mapper, hdr[:], off); err != nil {
		return buffer.DataTypeNone, false, 0, err
	}
	return buffer.DataType(hdr[0]), hdr[1] == 1, int(binary.BigEndian.Uint32(hdr[2:6])), nil
}

func (r *MmapReader) Peek() (buffer.DataType, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.finished || r.offset >= r.size {
		return buffer.DataTypeNone, false
	}
	dataType, _, _, err := r.readHeader(r.offset)
	if err != nil {
		return buffer.DataTypeNone, false
	}
	return dataType, true
}

func (r *MmapReader) QueuedUnits() int {
	return r.numUnits - r.unitsRead
}

func (r *MmapReader) DataBacklog() int {
	return r.numDataUnits - r.dataUnitsRead
}

func (r *MmapReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.mapper.Close()
}
