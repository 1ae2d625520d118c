// Package memstore is the in-process implementation of calib.Store used by
// tests and by deployments that load calibration once at startup.
package memstore

import (
	"sync"

	"go.viam.com/fpp/calib"
)

// Store is a mutex-guarded map-backed calib.Store.
type Store struct {
	mu   sync.RWMutex
	data map[string]calib.Calibration
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: make(map[string]calib.Calibration)}
}

// Get implements calib.Store.
func (s *Store) Get(posid string) (calib.Calibration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.data[posid]
	return c, ok
}

// Put implements calib.Store.
func (s *Store) Put(c calib.Calibration) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[c.PosID] = c
	return nil
}

// All implements calib.Store.
func (s *Store) All() map[string]calib.Calibration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]calib.Calibration, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}
