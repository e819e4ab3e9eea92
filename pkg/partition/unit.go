package partition

import (
	"fmt"
	"os"

	"github.com/downfa11-org/go-shuffle/pkg/buffer"
	"github.com/downfa11-org/go-shuffle/pkg/wire"
	"github.com/google/uuid"
)

// DataUnit is one retrievable chunk of a subpartition, resident in memory
// or still on disk. Both variants expose the same contract so the poll
// loop never inspects storage types.
type DataUnit interface {
	IsBuffer() bool

	// Materialize turns the unit into a resident buffer. File-backed units
	// need a caller-supplied scratch segment; buffer-backed units ignore it.
	Materialize(scratch *buffer.Segment) (*buffer.Buffer, error)

	// BuildMessage converts the unit into its outbound wire shape. The
	// unit is consumed and must not be reused afterwards.
	BuildMessage(receiverID uuid.UUID) (wire.Message, error)

	NextDataType() buffer.DataType
	SequenceNumber() uint64
	Backlog() int
}

// BufferUnit wraps an already resident buffer. Cheap, no I/O.
type BufferUnit struct {
	buf          *buffer.Buffer
	nextDataType buffer.DataType
	backlog      int
	seq          uint64
}

func NewBufferUnit(buf *buffer.Buffer, backlog int, nextDataType buffer.DataType, seq uint64) *BufferUnit {
	return &BufferUnit{
		buf:          buf,
		nextDataType: nextDataType,
		backlog:      backlog,
		seq:          seq,
	}
}

func (u *BufferUnit) IsBuffer() bool {
	return u.buf.DataType().IsData()
}

func (u *BufferUnit) Materialize(_ *buffer.Segment) (*buffer.Buffer, error) {
	return u.buf, nil
}

func (u *BufferUnit) BuildMessage(receiverID uuid.UUID) (wire.Message, error) {
	return &wire.BufferResponse{
		Receiver:   receiverID,
		Seq:        u.seq,
		Backlog:    u.backlog,
		DataType:   u.buf.DataType(),
		Compressed: u.buf.IsCompressed(),
		Payload:    u.buf.Bytes(),
		Buf:        u.buf,
	}, nil
}

func (u *BufferUnit) NextDataType() buffer.DataType { return u.nextDataType }
func (u *BufferUnit) SequenceNumber() uint64        { return u.seq }
func (u *BufferUnit) Backlog() int                  { return u.backlog }

// Buffer returns the resident buffer. The consumer owns the reference and
// must release it after use.
func (u *BufferUnit) Buffer() *buffer.Buffer { return u.buf }

// FileRegionUnit wraps a sealed region of a spill file. It serves either
// zero-copy through BuildMessage or as a staged read through Materialize.
type FileRegionUnit struct {
	file         *os.File
	offset       int64
	size         int
	dataType     buffer.DataType
	compressed   bool
	nextDataType buffer.DataType
	backlog      int
	seq          uint64
}

func NewFileRegionUnit(file *os.File, offset int64, size int, dataType buffer.DataType, compressed bool, backlog int, nextDataType buffer.DataType, seq uint64) *FileRegionUnit {
	return &FileRegionUnit{
		file:         file,
		offset:       offset,
		size:         size,
		dataType:     dataType,
		compressed:   compressed,
		nextDataType: nextDataType,
		backlog:      backlog,
		seq:          seq,
	}
}

func (u *FileRegionUnit) IsBuffer() bool {
	return u.dataType.IsData()
}

// Materialize reads exactly size bytes into the scratch segment. The
// returned buffer does not recycle back to disk; the bytes are owned by
// the scratch segment.
func (u *FileRegionUnit) Materialize(scratch *buffer.Segment) (*buffer.Buffer, error) {
	if scratch == nil {
		return nil, ErrScratchRequired
	}
	if scratch.Cap() < u.size {
		return nil, fmt.Errorf("%w: frame %d bytes, segment %d", ErrFrameTooLarge, u.size, scratch.Cap())
	}
	if err := readFileRange(u.file, scratch.Slice(u.size), u.offset); err != nil {
		return nil, err
	}
	return buffer.NewSegmentBuffer(scratch, u.size, u.dataType, u.compressed, buffer.NopRecycler), nil
}

func (u *FileRegionUnit) BuildMessage(receiverID uuid.UUID) (wire.Message, error) {
	info, err := u.file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat spill file: %w", err)
	}
	return &wire.FileRegionResponse{
		Receiver:   receiverID,
		Seq:        u.seq,
		Backlog:    u.backlog,
		DataType:   u.dataType,
		Compressed: u.compressed,
		File:       u.file,
		Offset:     u.offset,
		Size:       int64(u.size),
		FileSize:   info.Size(),
	}, nil
}

func (u *FileRegionUnit) NextDataType() buffer.DataType { return u.nextDataType }
func (u *FileRegionUnit) SequenceNumber() uint64        { return u.seq }
func (u *FileRegionUnit) Backlog() int                  { return u.backlog }

// Region returns the (offset, size) range of the unit's payload within the
// spill file.
func (u *FileRegionUnit) Region() (int64, int) { return u.offset, u.size }
