package stream

import (
	"fmt"
	"sync"

	"github.com/downfa11-org/go-shuffle/util"
	"github.com/google/uuid"
)

// StreamManager is the registry of per-consumer view readers plus the
// queue of readers with pending notifications a server loop drains.
type StreamManager struct {
	mu         sync.RWMutex
	readers    map[uuid.UUID]*ViewReader
	maxReaders int
	available  chan *ViewReader
}

func NewStreamManager(maxReaders int) *StreamManager {
	if maxReaders <= 0 {
		maxReaders = 1
	}
	return &StreamManager{
		readers:    make(map[uuid.UUID]*ViewReader),
		maxReaders: maxReaders,
		available:  make(chan *ViewReader, maxReaders),
	}
}

// CreateReader registers a consumer cursor. The returned reader should be
// passed as the availability listener when its subpartition view is
// created, then bound to that view.
func (sm *StreamManager) CreateReader(receiverID uuid.UUID, initialCredits int) (*ViewReader, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.readers) >= sm.maxReaders {
		return nil, fmt.Errorf("maximum view readers (%d) reached", sm.maxReaders)
	}
	if _, ok := sm.readers[receiverID]; ok {
		return nil, fmt.Errorf("reader %s already registered", receiverID)
	}

	r := NewViewReader(receiverID, initialCredits)
	r.onNotify = sm.markAvailable
	sm.readers[receiverID] = r
	return r, nil
}

func (sm *StreamManager) Get(receiverID uuid.UUID) (*ViewReader, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	r, ok := sm.readers[receiverID]
	return r, ok
}

// Remove releases the reader's view and drops it from the registry.
func (sm *StreamManager) Remove(receiverID uuid.UUID) {
	sm.mu.Lock()
	r, ok := sm.readers[receiverID]
	delete(sm.readers, receiverID)
	sm.mu.Unlock()

	if ok {
		if err := r.Release(); err != nil {
			util.Error("failed to release reader %s: %v", receiverID, err)
		}
	}
}

func (sm *StreamManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.readers)
}

func (sm *StreamManager) markAvailable(r *ViewReader) {
	select {
	case sm.available <- r:
	default:
	}
}

// PollAvailable takes one notified reader, if any. Non-blocking.
func (sm *StreamManager) PollAvailable() (*ViewReader, bool) {
	select {
	case r := <-sm.available:
		return r, true
	default:
		return nil, false
	}
}

// AvailableCh exposes the notified-reader queue for a server loop select.
func (sm *StreamManager) AvailableCh() <-chan *ViewReader {
	return sm.available
}

// Shutdown releases every registered reader.
func (sm *StreamManager) Shutdown() {
	sm.mu.Lock()
	readers := make([]*ViewReader, 0, len(sm.readers))
	for _, r := range sm.readers {
		readers = append(readers, r)
	}
	sm.readers = make(map[uuid.UUID]*ViewReader)
	sm.mu.Unlock()

	for _, r := range readers {
		if err := r.Release(); err != nil {
			util.Error("failed to release reader %s: %v", r.ReceiverID(), err)
		}
	}
}
