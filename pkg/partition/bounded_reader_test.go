package partition_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/downfa11-org/go-shuffle/pkg/buffer"
	"github.com/downfa11-org/go-shuffle/pkg/partition"
)

func readUnit(t *testing.T, r partition.BoundedReader) partition.DataUnit {
	t.Helper()
	unit, state, err := r.NextUnit()
	if err != nil {
		t.Fatalf("NextUnit failed: %v", err)
	}
	if state != partition.PollReady {
		t.Fatalf("expected PollReady, got %v", state)
	}
	return unit
}

func unitBuffer(t *testing.T, unit partition.DataUnit) *buffer.Buffer {
	t.Helper()
	bu, ok := unit.(*partition.BufferUnit)
	if !ok {
		t.Fatalf("expected BufferUnit, got %T", unit)
	}
	return bu.Buffer()
}

func TestReadAllUnitsThenFinished(t *testing.T) {
	const numUnits = 5
	store := newStore(t)
	for i := 0; i < numUnits; i++ {
		writeDataUnit(t, store, []byte(fmt.Sprintf("unit-%d", i)))
	}
	sealStore(t, store)

	pool := buffer.NewSegmentPool(numUnits, 1024)
	reader, err := store.CreateBufferReader(pool, nil)
	if err != nil {
		t.Fatalf("CreateBufferReader failed: %v", err)
	}

	for i := 0; i < numUnits; i++ {
		unit := readUnit(t, reader)
		buf := unitBuffer(t, unit)
		if !bytes.Equal(buf.Bytes(), []byte(fmt.Sprintf("unit-%d", i))) {
			t.Fatalf("unit %d payload mismatch: %q", i, buf.Bytes())
		}
		if unit.SequenceNumber() != uint64(i) {
			t.Fatalf("expected sequence %d, got %d", i, unit.SequenceNumber())
		}
		if unit.Backlog() != numUnits-i-1 {
			t.Fatalf("expected backlog %d, got %d", numUnits-i-1, unit.Backlog())
		}
		buf.Release()
	}

	// every later read reports finished, never an error
	for i := 0; i < 3; i++ {
		unit, state, err := reader.NextUnit()
		if err != nil {
			t.Fatalf("read after end returned error: %v", err)
		}
		if unit != nil || state != partition.PollFinished {
			t.Fatalf("expected PollFinished with no unit, got %v %v", unit, state)
		}
	}
}

func TestPoolBoundsOutstandingReads(t *testing.T) {
	const k = 2
	store := newStore(t)
	for i := 0; i < k+1; i++ {
		writeDataUnit(t, store, []byte(fmt.Sprintf("unit-%d", i)))
	}
	sealStore(t, store)

	pool := buffer.NewSegmentPool(k, 1024)
	reader, err := store.CreateBufferReader(pool, nil)
	if err != nil {
		t.Fatalf("CreateBufferReader failed: %v", err)
	}

	first := unitBuffer(t, readUnit(t, reader))
	second := unitBuffer(t, readUnit(t, reader))

	// all k segments are outstanding: the (k+1)-th read must defer
	unit, state, err := reader.NextUnit()
	if err != nil {
		t.Fatalf("NextUnit failed: %v", err)
	}
	if unit != nil || state != partition.PollNotAvailable {
		t.Fatalf("expected PollNotAvailable with pool exhausted, got %v %v", unit, state)
	}

	first.Release()
	third := unitBuffer(t, readUnit(t, reader))
	if !bytes.Equal(third.Bytes(), []byte("unit-2")) {
		t.Fatalf("unexpected third payload %q", third.Bytes())
	}

	second.Release()
	third.Release()
}

// The recycle-driven notification protocol, both branches: recycling while
// the reader is still non-terminal notifies the listener exactly once;
// recycling after the reader observed end of stream stays silent.
func TestRecycleNotification(t *testing.T) {
	store := newStore(t)
	writeDataUnit(t, store, []byte("unit-0"))
	writeDataUnit(t, store, []byte("unit-1"))
	sealStore(t, store)

	listener := &notifyCounter{}
	pool := buffer.NewSegmentPool(2, 1024)
	reader, err := store.CreateBufferReader(pool, listener)
	if err != nil {
		t.Fatalf("CreateBufferReader failed: %v", err)
	}

	first := unitBuffer(t, readUnit(t, reader))
	second := unitBuffer(t, readUnit(t, reader))

	// pool exhausted: the next read defers instead of tagging finished
	if _, state, _ := reader.NextUnit(); state != partition.PollNotAvailable {
		t.Fatalf("expected PollNotAvailable, got %v", state)
	}

	if listener.Count() != 0 {
		t.Fatalf("no notification expected before any recycle, got %d", listener.Count())
	}

	first.Release()
	if listener.Count() != 1 {
		t.Fatalf("expected exactly one notification after recycle, got %d", listener.Count())
	}

	listener.Reset()

	// no new data exists; this attempt discovers end of stream
	if _, state, _ := reader.NextUnit(); state != partition.PollFinished {
		t.Fatalf("expected PollFinished, got %v", state)
	}
	if listener.Count() != 0 {
		t.Fatalf("discovering end of stream must not notify, got %d", listener.Count())
	}

	// recycling after the reader is terminal must not notify
	second.Release()
	if listener.Count() != 0 {
		t.Fatalf("recycle after finished must not notify, got %d", listener.Count())
	}

	if pool.Available() != 2 {
		t.Fatalf("expected both segments back in pool, got %d", pool.Available())
	}
}

func TestCorruptFrameIsFatal(t *testing.T) {
	store := newStore(t)
	writeDataUnit(t, store, bytes.Repeat([]byte("p"), 64))
	sealStore(t, store)

	// truncate the payload so the declared frame length cannot be filled
	if err := os.Truncate(store.Path(), store.Size()-16); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}

	pool := buffer.NewSegmentPool(2, 1024)
	reader, err := store.CreateBufferReader(pool, nil)
	if err != nil {
		t.Fatalf("CreateBufferReader failed: %v", err)
	}

	_, _, err = reader.NextUnit()
	if !errors.Is(err, partition.ErrCorruptFrame) {
		t.Fatalf("expected ErrCorruptFrame for short read, got %v", err)
	}
	if pool.Available() != 2 {
		t.Fatalf("failed read must return its segment, pool has %d", pool.Available())
	}
}

func TestFrameLargerThanSegmentFails(t *testing.T) {
	store := newStore(t)
	writeDataUnit(t, store, bytes.Repeat([]byte("x"), 256))
	sealStore(t, store)

	pool := buffer.NewSegmentPool(1, 64)
	reader, err := store.CreateBufferReader(pool, nil)
	if err != nil {
		t.Fatalf("CreateBufferReader failed: %v", err)
	}

	_, _, err = reader.NextUnit()
	if !errors.Is(err, partition.ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestReaderPeek(t *testing.T) {
	store := newStore(t)
	writeDataUnit(t, store, []byte("data"))
	writeEventUnit(t, store, nil, buffer.DataTypeEndOfStream)
	sealStore(t, store)

	pool := buffer.NewSegmentPool(1, 1024)
	reader, err := store.CreateBufferReader(pool, nil)
	if err != nil {
		t.Fatalf("CreateBufferReader failed: %v", err)
	}

	dt, ready := reader.Peek()
	if !ready || dt != buffer.DataTypeData {
		t.Fatalf("expected ready data head, got %v/%v", dt, ready)
	}

	buf := unitBuffer(t, readUnit(t, reader))

	// pool exhausted: head is known but not deliverable right now
	if _, ready := reader.Peek(); ready {
		t.Fatalf("peek should report not ready while pool is exhausted")
	}
	buf.Release()

	dt, ready = reader.Peek()
	if !ready || dt != buffer.DataTypeEndOfStream {
		t.Fatalf("expected ready end-of-stream head, got %v/%v", dt, ready)
	}
}
