// Package session ties the signed-in identity to the notification
// subscription and the query cache.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/officetracker/oit/internal/debug"
	"github.com/officetracker/oit/internal/types"
)

// Backend is the part of the API the manager needs.
type Backend interface {
	SessionStatus(ctx context.Context) (types.SessionStatus, error)
	Logout(ctx context.Context) error
}

// Notifier is the push subscription. *notify.Service implements it.
type Notifier interface {
	Start(viewerID string) error
	Stop()
	Viewer() string
}

// Cache is cleared on logout. *cache.Store implements it.
type Cache interface {
	Clear()
}

// Manager follows the session and keeps one subscription for the
// current viewer.
type Manager struct {
	backend  Backend
	notifier Notifier
	cache    Cache

	mu     sync.Mutex
	status types.SessionStatus
}

// NewManager creates a manager. notifier and cache may be nil.
func NewManager(backend Backend, notifier Notifier, cache Cache) *Manager {
	return &Manager{backend: backend, notifier: notifier, cache: cache}
}

// Refresh asks the backend who is signed in. The subscription is started
// for an authenticated viewer, restarted when the viewer changed and
// stopped when nobody is signed in.
func (m *Manager) Refresh(ctx context.Context) (types.SessionStatus, error) {
	status, err := m.backend.SessionStatus(ctx)
	if err != nil {
		return types.SessionStatus{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
	viewer := status.ViewerID()

	if m.notifier == nil {
		return status, nil
	}
	current := m.notifier.Viewer()
	switch {
	case viewer == "":
		m.notifier.Stop()
	case current == viewer:
		// already subscribed
	default:
		if current != "" {
			debug.Logf("session: viewer changed from %s to %s\n", current, viewer)
			m.notifier.Stop()
		}
		if err := m.notifier.Start(viewer); err != nil {
			return status, fmt.Errorf("starting notifications: %w", err)
		}
	}
	return status, nil
}

// Logout ends the session, stops the subscription and forgets all cached
// data. The local state is reset even when the backend call fails.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.backend.Logout(ctx)

	m.mu.Lock()
	m.status = types.SessionStatus{}
	m.mu.Unlock()
	if m.notifier != nil {
		m.notifier.Stop()
	}
	if m.cache != nil {
		m.cache.Clear()
	}
	return err
}

// Status returns the last known session status.
func (m *Manager) Status() types.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Viewer returns the identity of the signed-in user, or "".
func (m *Manager) Viewer() string {
	return m.Status().ViewerID()
}
