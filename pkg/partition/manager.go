package partition

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/downfa11-org/go-shuffle/pkg/buffer"
	"github.com/downfa11-org/go-shuffle/util"
	"github.com/google/uuid"
)

type PartitionType int

const (
	// PartitionTypePipelined keeps units in memory for streaming exchange.
	PartitionTypePipelined PartitionType = iota
	// PartitionTypeBlocking spills units to a bounded store and serves
	// them only after the store is sealed.
	PartitionTypeBlocking
)

// Read modes for blocking subpartition views.
const (
	ReadModeSegment = "segment"
	ReadModeRegion  = "region"
	ReadModeMmap    = "mmap"
)

// ResultPartition is one produced partition: n subpartitions, each destined
// for one consumer, either pipelined or bounded blocking.
type ResultPartition struct {
	id         uuid.UUID
	ptype      PartitionType
	readMode   string
	pool       *buffer.SegmentPool
	compressor *buffer.Compressor

	mu        sync.Mutex
	pipelined []*PipelinedSubpartition
	stores    []*BoundedStore
	released  bool
}

func NewResultPartition(id uuid.UUID, ptype PartitionType, numSubpartitions int, dataDir, readMode string, pool *buffer.SegmentPool, compressor *buffer.Compressor) (*ResultPartition, error) {
	if numSubpartitions <= 0 {
		return nil, fmt.Errorf("invalid subpartition count %d", numSubpartitions)
	}
	if readMode == "" {
		readMode = ReadModeSegment
	}
	if compressor == nil {
		compressor = buffer.NewCompressor("none")
	}

	p := &ResultPartition{
		id:         id,
		ptype:      ptype,
		readMode:   readMode,
		pool:       pool,
		compressor: compressor,
	}

	switch ptype {
	case PartitionTypePipelined:
		p.pipelined = make([]*PipelinedSubpartition, numSubpartitions)
		for i := range p.pipelined {
			p.pipelined[i] = NewPipelinedSubpartition()
		}
	case PartitionTypeBlocking:
		p.stores = make([]*BoundedStore, numSubpartitions)
		for i := range p.stores {
			path := filepath.Join(dataDir, fmt.Sprintf("%s_sub_%d.shuffle", id, i))
			store, err := CreateBoundedStore(path)
			if err != nil {
				return nil, err
			}
			p.stores[i] = store
		}
	default:
		return nil, fmt.Errorf("unknown partition type %d", ptype)
	}
	return p, nil
}

func (p *ResultPartition) ID() uuid.UUID       { return p.id }
func (p *ResultPartition) Type() PartitionType { return p.ptype }

func (p *ResultPartition) NumSubpartitions() int {
	if p.ptype == PartitionTypePipelined {
		return len(p.pipelined)
	}
	return len(p.stores)
}

// Append writes one data unit to the given subpartition, compressing it
// first when the partition carries a codec.
func (p *ResultPartition) Append(subIdx int, payload []byte) error {
	if err := p.checkSub(subIdx); err != nil {
		return err
	}

	b := buffer.NewBuffer(payload, buffer.DataTypeData, false, nil)
	compressed, err := p.compressor.Compress(b)
	if err != nil {
		return err
	}

	defer compressed.Release()
	if compressed != b {
		b.Release()
	}
	if p.ptype == PartitionTypePipelined {
		return p.pipelined[subIdx].Append(compressed.Bytes(), compressed.IsCompressed())
	}
	return p.stores[subIdx].WriteUnit(compressed)
}

// AppendEvent writes one control event to the given subpartition.
func (p *ResultPartition) AppendEvent(subIdx int, payload []byte, dataType buffer.DataType) error {
	if err := p.checkSub(subIdx); err != nil {
		return err
	}
	if p.ptype == PartitionTypePipelined {
		return p.pipelined[subIdx].AppendEvent(payload, dataType)
	}
	if !dataType.IsEvent() {
		return ErrNotAnEvent
	}
	b := buffer.NewBuffer(payload, dataType, false, nil)
	defer b.Release()
	return p.stores[subIdx].WriteUnit(b)
}

// Finish ends production on every subpartition. Pipelined queues get their
// end-of-stream event; bounded stores get the same event as their last
// frame and are then sealed, so a credit-gated consumer always sees a
// terminal, credit-exempt unit.
func (p *ResultPartition) Finish() error {
	if p.ptype == PartitionTypePipelined {
		for _, sp := range p.pipelined {
			if err := sp.Finish(); err != nil {
				return err
			}
		}
		return nil
	}
	for _, store := range p.stores {
		eos := buffer.NewBuffer(nil, buffer.DataTypeEndOfStream, false, nil)
		err := store.WriteUnit(eos)
		eos.Release()
		if err != nil {
			return err
		}
		if err := store.FinishWrite(); err != nil {
			return err
		}
	}
	return nil
}

// CreateSubpartitionView opens the consumer cursor for one subpartition.
// For blocking partitions the reader variant follows the configured read
// mode: pooled segment staging, zero-copy file regions, or mmap.
func (p *ResultPartition) CreateSubpartitionView(subIdx int, listener AvailabilityListener) (SubpartitionView, error) {
	if err := p.checkSub(subIdx); err != nil {
		return nil, err
	}

	if p.ptype == PartitionTypePipelined {
		return p.pipelined[subIdx].CreateReadView(listener)
	}

	store := p.stores[subIdx]
	var reader BoundedReader
	var err error
	switch p.readMode {
	case ReadModeRegion:
		reader, err = store.CreateRegionReader(listener)
	case ReadModeMmap:
		reader, err = store.CreateMmapReader(listener)
	default:
		reader, err = store.CreateBufferReader(p.pool, listener)
	}
	if err != nil {
		return nil, err
	}
	return NewBoundedSubpartitionView(reader, listener), nil
}

func (p *ResultPartition) checkSub(subIdx int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return ErrSubpartitionReleased
	}
	if subIdx < 0 || subIdx >= p.NumSubpartitions() {
		return fmt.Errorf("subpartition index %d out of range [0,%d)", subIdx, p.NumSubpartitions())
	}
	return nil
}

// Release tears down every subpartition and store. Idempotent.
func (p *ResultPartition) Release() error {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return nil
	}
	p.released = true
	p.mu.Unlock()

	for _, sp := range p.pipelined {
		sp.Release()
	}
	for _, store := range p.stores {
		if err := store.Close(); err != nil {
			util.Error("failed to close bounded store %s: %v", store.Path(), err)
		}
	}
	return nil
}

// PartitionManager is the registry the server thread resolves partitions
// through when a consumer requests a subpartition view.
type PartitionManager struct {
	mu         sync.RWMutex
	partitions map[uuid.UUID]*ResultPartition
}

func NewPartitionManager() *PartitionManager {
	return &PartitionManager{partitions: make(map[uuid.UUID]*ResultPartition)}
}

func (m *PartitionManager) Register(p *ResultPartition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.partitions[p.ID()]; ok {
		return fmt.Errorf("partition %s already registered", p.ID())
	}
	m.partitions[p.ID()] = p
	util.Info("registered result partition %s with %d subpartitions", p.ID(), p.NumSubpartitions())
	return nil
}

func (m *PartitionManager) Get(id uuid.UUID) (*ResultPartition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.partitions[id]
	return p, ok
}

func (m *PartitionManager) CreateSubpartitionView(id uuid.UUID, subIdx int, listener AvailabilityListener) (SubpartitionView, error) {
	p, ok := m.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown partition %s", id)
	}
	return p.CreateSubpartitionView(subIdx, listener)
}

func (m *PartitionManager) Release(id uuid.UUID) error {
	m.mu.Lock()
	p, ok := m.partitions[id]
	delete(m.partitions, id)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return p.Release()
}

func (m *PartitionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.partitions)
}

// Shutdown releases every registered partition.
func (m *PartitionManager) Shutdown() {
	m.mu.Lock()
	partitions := make([]*ResultPartition, 0, len(m.partitions))
	for _, p := range m.partitions {
		partitions = append(partitions, p)
	}
	m.partitions = make(map[uuid.UUID]*ResultPartition)
	m.mu.Unlock()

	for _, p := range partitions {
		if err := p.Release(); err != nil {
			util.Error("failed to release partition %s: %v", p.ID(), err)
		}
	}
}
