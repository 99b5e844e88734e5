package store

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/warepix/warepix/internal/domain"
)

// Slot names of the record store. Each slot is one serialized mapping held
// as a unit, read and written whole on every mutation.
const (
	SlotProducts = "productData"
	SlotOrders   = "orderData"
	SlotSettings = "settings"
)

// SlotStore keeps named JSON slots as files in a directory. Writes go
// through a temp file and rename so a crashed flush never truncates a slot.
type SlotStore struct {
	dir string
	mu  sync.Mutex
}

func NewSlotStore(dir string) *SlotStore {
	return &SlotStore{dir: dir}
}

func (s *SlotStore) path(slot string) string {
	return filepath.Join(s.dir, slot+".json")
}

// Load decodes the slot into out. A slot that was never written leaves out
// untouched, so callers start from their zero mapping.
func (s *SlotStore) Load(slot string, out interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(slot, out)
}

func (s *SlotStore) loadLocked(slot string, out interface{}) error {
	data, err := os.ReadFile(s.path(slot))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return domain.StorageErrorf(err, "read slot %s", slot)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return domain.StorageErrorf(err, "decode slot %s", slot)
	}
	return nil
}

// Store serializes v and atomically replaces the slot.
func (s *SlotStore) Store(slot string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeLocked(slot, v)
}

func (s *SlotStore) storeLocked(slot string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return domain.StorageErrorf(err, "encode slot %s", slot)
	}
	tmp := s.path(slot) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return domain.StorageErrorf(err, "write slot %s", slot)
	}
	if err := os.Rename(tmp, s.path(slot)); err != nil {
		return domain.StorageErrorf(err, "replace slot %s", slot)
	}
	return nil
}

// Update runs one load-mutate-store cycle under the store lock, making the
// whole-mapping read/modify/write explicit and race-free for batch callers.
func (s *SlotStore) Update(slot string, out interface{}, mutate func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(slot, out); err != nil {
		return err
	}
	if err := mutate(); err != nil {
		return err
	}
	return s.storeLocked(slot, out)
}

// Remove deletes the slot file. Missing slots are ignored.
func (s *SlotStore) Remove(slot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(slot))
	if err != nil && !os.IsNotExist(err) {
		return domain.StorageErrorf(err, "remove slot %s", slot)
	}
	return nil
}
