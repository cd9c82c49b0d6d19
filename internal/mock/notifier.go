package mock

import (
	"sync"

	"spread_trader/internal/core"
)

// MockNotifier implements core.INotifier and records every notification
type MockNotifier struct {
	mu      sync.Mutex
	Entries []core.EntryNotification
	Exits   []core.ExitNotification
}

func NewNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (n *MockNotifier) NotifyEntry(notification core.EntryNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Entries = append(n.Entries, notification)
}

func (n *MockNotifier) NotifyExit(notification core.ExitNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Exits = append(n.Exits, notification)
}

// EntryCount returns how many entry notifications were recorded
func (n *MockNotifier) EntryCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Entries)
}

// ExitCount returns how many exit notifications were recorded
func (n *MockNotifier) ExitCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Exits)
}
