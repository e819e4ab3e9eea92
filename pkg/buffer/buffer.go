package buffer

import "sync/atomic"

// Recycler receives a buffer once its last reference is released.
type Recycler interface {
	Recycle(b *Buffer)
}

type nopRecycler struct{}

func (nopRecycler) Recycle(*Buffer) {}

// NopRecycler is used for buffers whose bytes are owned elsewhere (a
// resident payload or a pooled scratch segment managed by its reader).
var NopRecycler Recycler = nopRecycler{}

// Buffer is a reference-counted handle over one unit's payload. It starts
// with a single reference; Retain adds one, Release drops one. When the
// count reaches zero the recycler runs exactly once. Double release and
// read after release are programmer errors and panic.
type Buffer struct {
	data       []byte
	dataType   DataType
	compressed bool
	segment    *Segment
	recycler   Recycler
	refs       atomic.Int32
}

func NewBuffer(data []byte, dataType DataType, compressed bool, recycler Recycler) *Buffer {
	if recycler == nil {
		recycler = NopRecycler
	}
	b := &Buffer{
		data:       data,
		dataType:   dataType,
		compressed: compressed,
		recycler:   recycler,
	}
	b.refs.Store(1)
	return b
}

// NewSegmentBuffer wraps the first n bytes of a pooled scratch segment.
// The recycler is responsible for returning the segment to its pool.
func NewSegmentBuffer(seg *Segment, n int, dataType DataType, compressed bool, recycler Recycler) *Buffer {
	b := NewBuffer(seg.Slice(n), dataType, compressed, recycler)
	b.segment = seg
	return b
}

func (b *Buffer) Bytes() []byte {
	if b.refs.Load() <= 0 {
		panic("buffer: read after release")
	}
	return b.data
}

func (b *Buffer) Len() int {
	return len(b.data)
}

func (b *Buffer) DataType() DataType {
	return b.dataType
}

func (b *Buffer) IsCompressed() bool {
	return b.compressed
}

// Segment returns the scratch segment backing this buffer, or nil for
// resident payloads.
func (b *Buffer) Segment() *Segment {
	return b.segment
}

// Retain adds a reference and returns the same buffer.
func (b *Buffer) Retain() *Buffer {
	if b.refs.Add(1) <= 1 {
		panic("buffer: retain after release")
	}
	return b
}

// Release drops one reference. The recycler runs when the last reference
// is dropped; releasing more times than retained panics.
func (b *Buffer) Release() {
	n := b.refs.Add(-1)
	if n < 0 {
		panic("buffer: double release")
	}
	if n == 0 {
		b.recycler.Recycle(b)
	}
}

func (b *Buffer) IsReleased() bool {
	return b.refs.Load() <= 0
}
