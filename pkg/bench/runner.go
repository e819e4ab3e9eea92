package bench

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/downfa11-org/go-shuffle/pkg/buffer"
	"github.com/downfa11-org/go-shuffle/pkg/config"
	"github.com/downfa11-org/go-shuffle/pkg/partition"
	"github.com/downfa11-org/go-shuffle/pkg/stream"
	"github.com/downfa11-org/go-shuffle/pkg/wire"
	"github.com/downfa11-org/go-shuffle/util"
	"github.com/google/uuid"
)

// BenchmarkRunner spills a blocking result partition to disk, then drains
// every subpartition through credit-gated view readers, one consumer per
// subpartition. Pool size, read mode, codec and credits come from the
// service configuration; the workload shape is per-run.
type BenchmarkRunner struct {
	Cfg           *config.Config
	Subpartitions int
	UnitsPerSub   int
	UnitSize      int
}

func NewBenchmarkRunner(cfg *config.Config, subpartitions, unitsPerSub, unitSize int) *BenchmarkRunner {
	return &BenchmarkRunner{
		Cfg:           cfg,
		Subpartitions: subpartitions,
		UnitsPerSub:   unitsPerSub,
		UnitSize:      unitSize,
	}
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

func (b *BenchmarkRunner) Run() error {
	if err := os.MkdirAll(b.Cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pool := buffer.NewSegmentPool(b.Cfg.ReadAheadDepth*b.Subpartitions, b.Cfg.SegmentSize)
	rp, err := partition.NewResultPartition(
		uuid.New(), partition.PartitionTypeBlocking, b.Subpartitions,
		b.Cfg.DataDir, b.Cfg.ReadMode, pool, buffer.NewCompressor(b.Cfg.CompressionType))
	if err != nil {
		return fmt.Errorf("create partition: %w", err)
	}
	defer func() {
		if err := rp.Release(); err != nil {
			util.Error("release partition: %v", err)
		}
	}()

	spillStart := time.Now()
	if err := b.runSpillPhase(rp); err != nil {
		return err
	}
	if err := rp.Finish(); err != nil {
		return fmt.Errorf("seal partition: %w", err)
	}
	spillDuration := time.Since(spillStart)

	drainStart := time.Now()
	units, bytes, err := b.runDrainPhase(rp)
	if err != nil {
		return err
	}
	drainDuration := time.Since(drainStart)

	totalUnits := b.Subpartitions * b.UnitsPerSub
	fmt.Printf("\n🧪 BENCHMARK RESULT [%s] 🧪\n", b.Cfg.ReadMode)
	fmt.Printf("-------------------------------------\n")
	fmt.Printf(" Subpartitions : %d\n", b.Subpartitions)
	fmt.Printf(" Units/Sub     : %d\n", b.UnitsPerSub)
	fmt.Printf(" Unit Size     : %d B\n", b.UnitSize)
	fmt.Printf(" Codec         : %s\n", b.Cfg.CompressionType)
	fmt.Printf(" Spill         : %v (%d units)\n", spillDuration, totalUnits)
	fmt.Printf(" Drain         : %v (%d units, %d bytes)\n", drainDuration, units, bytes)
	fmt.Printf(" Throughput    : %.2f units/sec, %.2f MB/sec\n",
		float64(units)/drainDuration.Seconds(),
		float64(bytes)/drainDuration.Seconds()/(1<<20))
	fmt.Printf("-------------------------------------\n")
	return nil
}

// runSpillPhase writes every subpartition concurrently, one producer each.
func (b *BenchmarkRunner) runSpillPhase(rp *partition.ResultPartition) error {
	payload := make([]byte, b.UnitSize)
	for i := range payload {
		payload[i] = byte('a' + i%26)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for sub := 0; sub < b.Subpartitions; sub++ {
		wg.Add(1)
		go func(sub int) {
			defer wg.Done()
			for i := 0; i < b.UnitsPerSub; i++ {
				if err := rp.Append(sub, payload); err != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("subpartition %d unit %d: %w", sub, i, err))
					mu.Unlock()
					return
				}
			}
		}(sub)
	}
	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("%d producer(s) failed, first: %w", len(errs), errs[0])
	}
	return nil
}

// runDrainPhase opens one view reader per subpartition and polls each until
// the stream finishes. Credits are replenished after every served data unit,
// the way a consumer acks.
func (b *BenchmarkRunner) runDrainPhase(rp *partition.ResultPartition) (int64, int64, error) {
	sm := stream.NewStreamManager(b.Cfg.MaxViewReaders)
	defer sm.Shutdown()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error
	var units, bytes atomic.Int64

	for sub := 0; sub < b.Subpartitions; sub++ {
		reader, err := sm.CreateReader(uuid.New(), b.Cfg.CreditsPerChannel)
		if err != nil {
			return 0, 0, fmt.Errorf("create reader: %w", err)
		}
		view, err := rp.CreateSubpartitionView(sub, reader)
		if err != nil {
			return 0, 0, fmt.Errorf("create view for subpartition %d: %w", sub, err)
		}
		reader.Bind(view)

		wg.Add(1)
		go func(sub int, reader *stream.ViewReader) {
			defer wg.Done()
			if err := b.drainReader(reader, &units, &bytes); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("subpartition %d: %w", sub, err))
				mu.Unlock()
			}
		}(sub, reader)
	}
	wg.Wait()

	if len(errs) > 0 {
		return 0, 0, fmt.Errorf("%d consumer(s) failed, first: %w", len(errs), errs[0])
	}
	return units.Load(), bytes.Load(), nil
}

func (b *BenchmarkRunner) drainReader(reader *stream.ViewReader, units, bytes *atomic.Int64) error {
	var sink countingWriter
	for {
		msg, state, err := reader.Next()
		if err != nil {
			return err
		}
		switch state {
		case partition.PollFinished:
			return nil
		case partition.PollNotAvailable:
			// The pool is shared across consumers, so a release by another
			// reader does not wake this one. Re-poll on a short tick.
			select {
			case <-reader.Notified():
			case <-time.After(time.Millisecond):
			}
			continue
		}

		dataType := messageDataType(msg)
		if err := msg.Encode(&sink); err != nil {
			return fmt.Errorf("encode unit %d: %w", msg.SequenceNumber(), err)
		}
		msg.ReleaseBuffer()

		units.Add(1)
		bytes.Add(sink.n)
		sink.n = 0

		if dataType == buffer.DataTypeEndOfStream {
			return nil
		}
		if dataType.IsData() {
			reader.AddCredits(1)
		}
	}
}

func messageDataType(msg wire.Message) buffer.DataType {
	switch m := msg.(type) {
	case *wire.BufferResponse:
		return m.DataType
	case *wire.FileRegionResponse:
		return m.DataType
	default:
		return buffer.DataTypeNone
	}
}
