package partition

import (
	"fmt"
	"os"

	"github.com/downfa11-org/go-shuffle/pkg/buffer"
	"github.com/downfa11-org/go-shuffle/pkg/wire"
	"github.com/google/uuid"
)

// RawMessage is a transient per-poll snapshot of one unit plus the
// availability state observed when it was taken. BuildMessage is terminal;
// the RawMessage is discarded afterwards, never retained or reused.
type RawMessage interface {
	IsBuffer() bool

	// IsMoreAvailable applies the credit/event rule to the snapshot so the
	// poll loop can keep draining without a further query.
	IsMoreAvailable(credits int) bool

	Backlog() int

	BuildMessage(receiverID uuid.UUID, sequenceNumber uint64) (wire.Message, error)
}

type rawSnapshot struct {
	dataAvailable  bool
	eventAvailable bool
	backlog        int
}

func (s rawSnapshot) IsMoreAvailable(credits int) bool {
	if credits > 0 {
		return s.dataAvailable
	}
	return s.eventAvailable
}

func (s rawSnapshot) Backlog() int {
	return s.backlog
}

// BufferRawMessage carries a resident buffer. The consumer must release
// the buffer once the wire message has been sent.
type BufferRawMessage struct {
	rawSnapshot
	buf *buffer.Buffer
}

func NewBufferRawMessage(buf *buffer.Buffer, dataAvailable, eventAvailable bool, backlog int) *BufferRawMessage {
	return &BufferRawMessage{
		rawSnapshot: rawSnapshot{dataAvailable: dataAvailable, eventAvailable: eventAvailable, backlog: backlog},
		buf:         buf,
	}
}

func (m *BufferRawMessage) IsBuffer() bool {
	return m.buf.DataType().IsData()
}

func (m *BufferRawMessage) Buffer() *buffer.Buffer {
	return m.buf
}

func (m *BufferRawMessage) BuildMessage(receiverID uuid.UUID, sequenceNumber uint64) (wire.Message, error) {
	return &wire.BufferResponse{
		Receiver:   receiverID,
		Seq:        sequenceNumber,
		Backlog:    m.backlog,
		DataType:   m.buf.DataType(),
		Compressed: m.buf.IsCompressed(),
		Payload:    m.buf.Bytes(),
		Buf:        m.buf,
	}, nil
}

// FileRawMessage points at a sealed file region. The file size is re-read
// at build time to support overlap with an in-progress spill; the region
// itself is only ever handed out once its bytes are fully written.
type FileRawMessage struct {
	rawSnapshot
	file       *os.File
	offset     int64
	size       int
	dataType   buffer.DataType
	compressed bool
}

func NewFileRawMessage(file *os.File, offset int64, size int, dataType buffer.DataType, compressed bool, dataAvailable, eventAvailable bool, backlog int) *FileRawMessage {
	return &FileRawMessage{
		rawSnapshot: rawSnapshot{dataAvailable: dataAvailable, eventAvailable: eventAvailable, backlog: backlog},
		file:        file,
		offset:      offset,
		size:        size,
		dataType:    dataType,
		compressed:  compressed,
	}
}

func (m *FileRawMessage) IsBuffer() bool {
	return m.dataType.IsData()
}

func (m *FileRawMessage) BuildMessage(receiverID uuid.UUID, sequenceNumber uint64) (wire.Message, error) {
	info, err := m.file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat spill file: %w", err)
	}
	return &wire.FileRegionResponse{
		Receiver:   receiverID,
		Seq:        sequenceNumber,
		Backlog:    m.backlog,
		DataType:   m.dataType,
		Compressed: m.compressed,
		File:       m.file,
		Offset:     m.offset,
		Size:       int64(m.size),
		FileSize:   info.Size(),
	}, nil
}
