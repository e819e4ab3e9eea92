package partition_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/downfa11-org/go-shuffle/pkg/buffer"
	"github.com/downfa11-org/go-shuffle/pkg/partition"
)

// notifyCounter records availability notifications from any thread.
type notifyCounter struct {
	mu    sync.Mutex
	count int
}

func (l *notifyCounter) NotifyDataAvailable() {
	l.mu.Lock()
	l.count++
	l.mu.Unlock()
}

func (l *notifyCounter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

func (l *notifyCounter) Reset() {
	l.mu.Lock()
	l.count = 0
	l.mu.Unlock()
}

func newStore(t *testing.T) *partition.BoundedStore {
	t.Helper()
	store, err := partition.CreateBoundedStore(filepath.Join(t.TempDir(), "sub_0.shuffle"))
	if err != nil {
		t.Fatalf("failed to create bounded store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func writeDataUnit(t *testing.T, store *partition.BoundedStore, payload []byte) {
	t.Helper()
	b := buffer.NewBuffer(payload, buffer.DataTypeData, false, nil)
	defer b.Release()
	if err := store.WriteUnit(b); err != nil {
		t.Fatalf("WriteUnit failed: %v", err)
	}
}

func writeEventUnit(t *testing.T, store *partition.BoundedStore, payload []byte, dt buffer.DataType) {
	t.Helper()
	b := buffer.NewBuffer(payload, dt, false, nil)
	defer b.Release()
	if err := store.WriteUnit(b); err != nil {
		t.Fatalf("WriteUnit failed: %v", err)
	}
}

func truncateStore(store *partition.BoundedStore, size int64) error {
	return os.Truncate(store.Path(), size)
}

func sealStore(t *testing.T, store *partition.BoundedStore) {
	t.Helper()
	if err := store.FinishWrite(); err != nil {
		t.Fatalf("FinishWrite failed: %v", err)
	}
}
