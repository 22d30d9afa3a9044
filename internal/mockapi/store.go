// Package mockapi is an in-memory stand-in for the acquisition backend: a
// seeded device fleet with REST listings, generated cover media and a
// WebSocket feed of device status changes.
package mockapi

import (
	"sync"

	"github.com/acqdash/console/internal/api"
)

// Store holds the fleet. All reads return copies.
type Store struct {
	mu        sync.RWMutex
	devices   []api.Device
	index     map[string]int
	accounts  []api.Account
	scenarios []api.Scenario
}

func NewStore() *Store {
	return &Store{
		index: make(map[string]int),
	}
}

// ListDevices returns one 1-based page in insertion order.
func (s *Store) ListDevices(page, perPage int) api.Page[api.Device] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	page = max(1, page)
	perPage = max(1, perPage)
	start := min((page-1)*perPage, len(s.devices))
	end := min(start+perPage, len(s.devices))

	items := make([]api.Device, end-start)
	copy(items, s.devices[start:end])
	return api.Page[api.Device]{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   len(s.devices),
		HasMore: end < len(s.devices),
	}
}

func (s *Store) GetDevice(id string) (api.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return api.Device{}, false
	}
	return s.devices[i], true
}

// UpdateDevice inserts d or replaces the device with the same ID.
func (s *Store) UpdateDevice(d api.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[d.ID]; ok {
		s.devices[i] = d
		return
	}
	s.index[d.ID] = len(s.devices)
	s.devices = append(s.devices, d)
}

func (s *Store) SetAccounts(accounts []api.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append([]api.Account(nil), accounts...)
}

func (s *Store) Accounts() []api.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.Account(nil), s.accounts...)
}

func (s *Store) SetScenarios(scenarios []api.Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios = append([]api.Scenario(nil), scenarios...)
}

func (s *Store) Scenarios() []api.Scenario {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.Scenario(nil), s.scenarios...)
}

// Counts tallies devices per status. Every known status is present.
func (s *Store) Counts() api.StatusMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(api.StatusMap, len(api.AllDeviceStatuses))
	for _, st := range api.AllDeviceStatuses {
		counts[st] = 0
	}
	for _, d := range s.devices {
		counts[d.Status]++
	}
	return counts
}

// Hello builds the connection greeting from the current contents.
func (s *Store) Hello() api.HelloPayload {
	counts := s.Counts()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return api.HelloPayload{
		Devices:   len(s.devices),
		Accounts:  len(s.accounts),
		Scenarios: len(s.scenarios),
		Counts:    counts,
	}
}
