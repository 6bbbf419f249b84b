// Package ledger records which token addresses have already been alerted on.
package ledger

import "sync"

// Ledger is the dedup gate for one pipeline session.
//
// Seen addresses are never removed. Reserve and Release manage a separate
// in-flight set so that two concurrent discoveries of one address cannot both
// dispatch.
type Ledger interface {
	HasSeen(address string) bool
	MarkSeen(address string)
	Reserve(address string) bool
	Release(address string)
	Len() int
}

// Memory is a process-local Ledger.
type Memory struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	pending map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		seen:    make(map[string]struct{}),
		pending: make(map[string]struct{}),
	}
}

func (m *Memory) HasSeen(address string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[address]
	return ok
}

// MarkSeen is idempotent and also clears any reservation for address.
func (m *Memory) MarkSeen(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[address] = struct{}{}
	delete(m.pending, address)
}

// Reserve claims address for dispatch. It fails if the address is already
// seen or reserved by another caller.
func (m *Memory) Reserve(address string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[address]; ok {
		return false
	}
	if _, ok := m.pending[address]; ok {
		return false
	}
	m.pending[address] = struct{}{}
	return true
}

// Release drops a reservation without marking the address seen.
func (m *Memory) Release(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, address)
}

// Len counts seen addresses only.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}
