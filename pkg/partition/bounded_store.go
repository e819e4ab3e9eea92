package partition

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/downfa11-org/go-shuffle/pkg/buffer"
	"github.com/downfa11-org/go-shuffle/pkg/wire"
	"github.com/downfa11-org/go-shuffle/util"
)

// On-disk frame layout: [dataType u8][compressed u8][length u32 BE][payload].
// Frames are written once, in order, and read strictly front to back.
const frameHeaderSize = 6

// BoundedStore persists a finished sequence of units to a spill file.
// Write-once: WriteUnit appends until FinishWrite seals the store, after
// which readers replay it. The file handle is shared by all readers via
// positioned reads; there is no shared seek state.
type BoundedStore struct {
	path   string
	file   *os.File
	writer *bufio.Writer

	mu           sync.Mutex
	size         int64
	numUnits     int
	numDataUnits int
	sealed       bool
	closed       bool
}

func CreateBoundedStore(path string) (*BoundedStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("create spill file: %w", err)
	}
	return &BoundedStore{
		path:   path,
		file:   f,
		writer: bufio.NewWriter(f),
	}, nil
}

// WriteUnit appends one length-prefixed frame. Fails once the store is
// sealed; that is a programmer error, not a runtime condition.
func (s *BoundedStore) WriteUnit(b *buffer.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if s.sealed {
		return ErrStoreSealed
	}

	var hdr [frameHeaderSize]byte
	hdr[0] = byte(b.DataType())
	if b.IsCompressed() {
		hdr[1] = 1
	}
	binary.BigEndian.PutUint32(hdr[2:6], uint32(b.Len()))

	if _, err := s.writer.Write(hdr[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := s.writer.Write(b.Bytes()); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}

	s.size += int64(frameHeaderSize + b.Len())
	s.numUnits++
	if b.DataType().IsData() {
		s.numDataUnits++
	}
	return nil
}

// FinishWrite seals the store: flushes and syncs the file and makes it
// readable. No further writes are permitted.
func (s *BoundedStore) FinishWrite() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if s.sealed {
		return ErrStoreSealed
	}

	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("flush spill file: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync spill file: %w", err)
	}
	s.sealed = true
	util.Debug("sealed bounded store %s: %d units, %d bytes", s.path, s.numUnits, s.size)
	return nil
}

func (s *BoundedStore) IsSealed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sealed
}

func (s *BoundedStore) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

func (s *BoundedStore) NumUnits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.numUnits
}

func (s *BoundedStore) NumDataUnits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.numDataUnits
}

func (s *BoundedStore) Path() string {
	return s.path
}

// File exposes the spill file for zero-copy region responses.
func (s *BoundedStore) File() *os.File {
	return s.file
}

// CreateBufferReader opens a sequential cursor that stages each frame into
// a pooled scratch segment. The pool bounds in-flight reads; the listener
// is re-notified on every recycle until the reader reaches end of stream.
func (s *BoundedStore) CreateBufferReader(pool *buffer.SegmentPool, listener AvailabilityListener) (*BufferReader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	if !s.sealed {
		return nil, ErrStoreNotSealed
	}
	wire.AdviseSequential(s.file)
	return &BufferReader{store: s, pool: pool, listener: listener}, nil
}

// CreateRegionReader opens a sequential cursor producing file-region units
// for the zero-copy serving path. Regions are only served from a sealed
// store, so their bytes are always fully flushed.
func (s *BoundedStore) CreateRegionReader(listener AvailabilityListener) (*RegionReader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	if !s.sealed {
		return nil, ErrStoreNotSealed
	}
	wire.AdviseSequential(s.file)
	return &RegionReader{store: s, listener: listener}, nil
}

// Close releases the file handle. Idempotent; reads racing the close fail
// with a cancellation-class error.
func (s *BoundedStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if !s.sealed {
		if err := s.writer.Flush(); err != nil {
			util.Error("flush on close failed for %s: %v", s.path, err)
		}
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close spill file: %w", err)
	}
	return nil
}

func (s *BoundedStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// readFileRange fills dst from the file at off, looping until every byte
// is read. Reaching end of file earlier is a corruption error.
func readFileRange(f io.ReaderAt, dst []byte, off int64) error {
	read := 0
	for read < len(dst) {
		n, err := f.ReadAt(dst[read:], off+int64(read))
		read += n
		if err == io.EOF {
			if read < len(dst) {
				return fmt.Errorf("%w: got %d of %d bytes at offset %d", ErrCorruptFrame, read, len(dst), off)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("read at offset %d: %w", off, err)
		}
	}
	return nil
}

// readFrameHeader decodes the frame header at off.
func readFrameHeader(f io.ReaderAt, off int64) (buffer.DataType, bool, int, error) {
	var hdr [frameHeaderSize]byte
	if err := readFileRange(f, hdr[:], off); err != nil {
		return buffer.DataTypeNone, false, 0, err
	}
	dataType := buffer.DataType(hdr[0])
	compressed := hdr[1] == 1
	length := int(binary.BigEndian.Uint32(hdr[2:6]))
	return dataType, compressed, length, nil
}
