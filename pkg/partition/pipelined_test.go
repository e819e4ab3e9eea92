package partition_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/downfa11-org/go-shuffle/pkg/buffer"
	"github.com/downfa11-org/go-shuffle/pkg/partition"
)

func pollReady(t *testing.T, v partition.SubpartitionView) partition.RawMessage {
	t.Helper()
	raw, state, err := v.GetNextRawMessage()
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if state != partition.PollReady {
		t.Fatalf("expected PollReady, got %v", state)
	}
	return raw
}

func TestPipelinedAppendAndPoll(t *testing.T) {
	sp := partition.NewPipelinedSubpartition()
	listener := &notifyCounter{}

	view, err := sp.CreateReadView(listener)
	if err != nil {
		t.Fatalf("CreateReadView failed: %v", err)
	}
	listener.Reset()

	if _, state, err := view.GetNextRawMessage(); err != nil || state != partition.PollNotAvailable {
		t.Fatalf("empty queue must report not available, got %v %v", state, err)
	}

	if err := sp.Append([]byte("one"), false); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if listener.Count() == 0 {
		t.Fatalf("append must notify the view listener")
	}

	raw := pollReady(t, view)
	bm := raw.(*partition.BufferRawMessage)
	if !bytes.Equal(bm.Buffer().Bytes(), []byte("one")) {
		t.Fatalf("payload mismatch: %q", bm.Buffer().Bytes())
	}
	bm.Buffer().Release()
}

func TestPipelinedFinishDeliversEndOfStream(t *testing.T) {
	sp := partition.NewPipelinedSubpartition()
	view, err := sp.CreateReadView(nil)
	if err != nil {
		t.Fatalf("CreateReadView failed: %v", err)
	}

	if err := sp.Append([]byte("last data"), false); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := sp.Finish(); err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if err := sp.Append([]byte("too late"), false); !errors.Is(err, partition.ErrSubpartitionFinished) {
		t.Fatalf("expected ErrSubpartitionFinished, got %v", err)
	}

	data := pollReady(t, view).(*partition.BufferRawMessage)
	if data.Buffer().DataType() != buffer.DataTypeData {
		t.Fatalf("expected data unit first")
	}
	data.Buffer().Release()

	eos := pollReady(t, view).(*partition.BufferRawMessage)
	if eos.Buffer().DataType() != buffer.DataTypeEndOfStream {
		t.Fatalf("expected end-of-stream event, got %v", eos.Buffer().DataType())
	}
	eos.Buffer().Release()

	if _, state, err := view.GetNextRawMessage(); err != nil || state != partition.PollFinished {
		t.Fatalf("expected PollFinished after end of stream, got %v %v", state, err)
	}
}

func TestPipelinedBlockingEventPausesUntilResume(t *testing.T) {
	sp := partition.NewPipelinedSubpartition()
	view, err := sp.CreateReadView(nil)
	if err != nil {
		t.Fatalf("CreateReadView failed: %v", err)
	}

	if err := sp.AppendEvent([]byte("barrier"), buffer.DataTypeBlockingEvent); err != nil {
		t.Fatalf("append event failed: %v", err)
	}
	if err := sp.Append([]byte("after barrier"), false); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	barrier := pollReady(t, view).(*partition.BufferRawMessage)
	if !barrier.Buffer().DataType().IsBlocking() {
		t.Fatalf("expected blocking event")
	}
	barrier.Buffer().Release()

	// paused: queued data is not served and the view reports unavailable
	if _, state, err := view.GetNextRawMessage(); err != nil || state != partition.PollNotAvailable {
		t.Fatalf("paused view must report not available, got %v %v", state, err)
	}
	if view.IsAvailable(10) {
		t.Fatalf("paused view must not be available even with credits")
	}

	view.ResumeConsumption()
	after := pollReady(t, view).(*partition.BufferRawMessage)
	if !bytes.Equal(after.Buffer().Bytes(), []byte("after barrier")) {
		t.Fatalf("expected queued data after resume, got %q", after.Buffer().Bytes())
	}
	after.Buffer().Release()
}

func TestPipelinedCreditRule(t *testing.T) {
	sp := partition.NewPipelinedSubpartition()
	view, err := sp.CreateReadView(nil)
	if err != nil {
		t.Fatalf("CreateReadView failed: %v", err)
	}

	if err := sp.Append([]byte("data"), false); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if view.IsAvailable(0) {
		t.Fatalf("data head must not be available with zero credits")
	}
	if !view.IsAvailable(1) {
		t.Fatalf("data head must be available with credits")
	}

	sp2 := partition.NewPipelinedSubpartition()
	view2, err := sp2.CreateReadView(nil)
	if err != nil {
		t.Fatalf("CreateReadView failed: %v", err)
	}
	if err := sp2.AppendEvent(nil, buffer.DataTypeEvent); err != nil {
		t.Fatalf("append event failed: %v", err)
	}
	if !view2.IsAvailable(0) {
		t.Fatalf("event head must be available regardless of credits")
	}
}

func TestPipelinedRecycleNotifiesUntilTerminal(t *testing.T) {
	sp := partition.NewPipelinedSubpartition()
	listener := &notifyCounter{}
	view, err := sp.CreateReadView(listener)
	if err != nil {
		t.Fatalf("CreateReadView failed: %v", err)
	}

	if err := sp.Append([]byte("payload"), false); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	raw := pollReady(t, view).(*partition.BufferRawMessage)

	listener.Reset()
	raw.Buffer().Release()
	if listener.Count() != 1 {
		t.Fatalf("recycle before terminal must notify once, got %d", listener.Count())
	}

	// consume end of stream, then recycling must stay silent
	if err := sp.Finish(); err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	eos := pollReady(t, view).(*partition.BufferRawMessage)

	listener.Reset()
	eos.Buffer().Release()
	if listener.Count() != 0 {
		t.Fatalf("recycle after end of stream must not notify, got %d", listener.Count())
	}
}

func TestPipelinedBacklogCountsDataOnly(t *testing.T) {
	sp := partition.NewPipelinedSubpartition()
	view, err := sp.CreateReadView(nil)
	if err != nil {
		t.Fatalf("CreateReadView failed: %v", err)
	}

	_ = sp.Append([]byte("a"), false)
	_ = sp.Append([]byte("b"), false)
	_ = sp.AppendEvent(nil, buffer.DataTypeEvent)

	if view.DataBacklog() != 2 {
		t.Fatalf("expected data backlog 2, got %d", view.DataBacklog())
	}
	if view.QueuedUnitCount() != 3 {
		t.Fatalf("expected 3 queued units, got %d", view.QueuedUnitCount())
	}

	raw := pollReady(t, view)
	if raw.Backlog() != 1 {
		t.Fatalf("expected backlog 1 after first poll, got %d", raw.Backlog())
	}
	raw.(*partition.BufferRawMessage).Buffer().Release()
}

func TestPipelinedSingleViewOnly(t *testing.T) {
	sp := partition.NewPipelinedSubpartition()
	if _, err := sp.CreateReadView(nil); err != nil {
		t.Fatalf("first view failed: %v", err)
	}
	if _, err := sp.CreateReadView(nil); !errors.Is(err, partition.ErrViewAlreadyCreated) {
		t.Fatalf("expected ErrViewAlreadyCreated, got %v", err)
	}
}

func TestPipelinedReleaseDropsQueue(t *testing.T) {
	sp := partition.NewPipelinedSubpartition()
	view, err := sp.CreateReadView(nil)
	if err != nil {
		t.Fatalf("CreateReadView failed: %v", err)
	}
	_ = sp.Append([]byte("dropped"), false)

	sp.Release()
	if !view.IsReleased() {
		t.Fatalf("release must cascade to the view")
	}
	if err := sp.Append([]byte("x"), false); !errors.Is(err, partition.ErrSubpartitionReleased) {
		t.Fatalf("expected ErrSubpartitionReleased, got %v", err)
	}
}
