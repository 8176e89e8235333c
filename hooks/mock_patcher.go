package hooks

import (
	"sync"

	"github.com/alinkof1/supertux-trainer/memory"

	"github.com/pkg/errors"
)

type mockPatch struct {
	replacement memory.Address
	live        bool
}

// MockPatcher simulates the low-level patch capability without touching
// any process. The original entry point it reports is the target address
// itself, since nothing is actually relocated. Used by tests and the
// demo console.
type MockPatcher struct {
	mu      sync.Mutex
	patches map[memory.Address]*mockPatch

	// FailInstall forces the next InstallRedirect to fail, for exercising
	// error paths.
	FailInstall bool
}

// NewMockPatcher creates an empty mock patcher.
func NewMockPatcher() *MockPatcher {
	return &MockPatcher{
		patches: make(map[memory.Address]*mockPatch),
	}
}

func (m *MockPatcher) InstallRedirect(target, replacement memory.Address) (memory.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailInstall {
		m.FailInstall = false
		return 0, errors.New("simulated patch failure")
	}
	if _, exists := m.patches[target]; exists {
		return 0, errors.Errorf("redirect already installed at %s", target.ToString())
	}

	m.patches[target] = &mockPatch{replacement: replacement}

	return target, nil
}

func (m *MockPatcher) RestoreOriginal(target memory.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, exists := m.patches[target]
	if !exists {
		return errors.Errorf("no redirect installed at %s", target.ToString())
	}
	if p.live {
		return errors.Errorf("redirect at %s still live", target.ToString())
	}

	delete(m.patches, target)
	return nil
}

func (m *MockPatcher) ToggleExecution(target memory.Address, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, exists := m.patches[target]
	if !exists {
		return errors.Errorf("no redirect installed at %s", target.ToString())
	}

	p.live = enabled
	return nil
}

// IsLive reports whether the redirect at target is currently live.
func (m *MockPatcher) IsLive(target memory.Address) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, exists := m.patches[target]
	return exists && p.live
}

// InstalledCount returns the number of prepared redirects.
func (m *MockPatcher) InstalledCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.patches)
}
