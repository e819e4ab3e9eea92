package buffer

import "github.com/downfa11-org/go-shuffle/util"

// Segment is a fixed-capacity scratch region used to stage disk reads
// before transport. Segments are pooled and reused; they never own the
// frame they currently hold.
type Segment struct {
	buf []byte
}

func NewSegment(capacity int) *Segment {
	return &Segment{buf: make([]byte, capacity)}
}

func (s *Segment) Cap() int {
	return len(s.buf)
}

func (s *Segment) Bytes() []byte {
	return s.buf
}

// Slice returns the first n bytes of the segment.
func (s *Segment) Slice(n int) []byte {
	return s.buf[:n]
}

// SegmentPool is a bounded free list of reusable segments. Its capacity is
// the maximum number of concurrently outstanding (read but not yet
// recycled) units, which makes pool exhaustion the backpressure point for
// disk reads. Acquire never blocks.
type SegmentPool struct {
	free        chan *Segment
	segmentSize int
}

func NewSegmentPool(numSegments, segmentSize int) *SegmentPool {
	p := &SegmentPool{
		free:        make(chan *Segment, numSegments),
		segmentSize: segmentSize,
	}
	for i := 0; i < numSegments; i++ {
		p.free <- NewSegment(segmentSize)
	}
	return p
}

// TryAcquire takes a free segment if one is available. It never blocks;
// callers retry after an availability notification.
func (p *SegmentPool) TryAcquire() (*Segment, bool) {
	select {
	case s := <-p.free:
		return s, true
	default:
		return nil, false
	}
}

func (p *SegmentPool) Release(s *Segment) {
	if s == nil {
		return
	}
	select {
	case p.free <- s:
	default:
		util.Warn("segment pool full on release, dropping segment")
	}
}

func (p *SegmentPool) Available() int {
	return len(p.free)
}

func (p *SegmentPool) Cap() int {
	return cap(p.free)
}

func (p *SegmentPool) SegmentSize() int {
	return p.segmentSize
}
