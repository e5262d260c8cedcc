package cart

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/domain"
	"github.com/okaziba/storefront/internal/repository"
)

// Manager owns the live cart stores, one per identity. Stores are created
// on first use and loaded lazily; sign-in moves a store from its device key
// to the user key.
type Manager struct {
	mu       sync.Mutex
	stores   map[string]*Store
	repos    *repository.Repositories
	notifier Notifier
	logger   *zap.Logger
}

// NewManager creates the store registry
func NewManager(repos *repository.Repositories, notifier Notifier, logger *zap.Logger) *Manager {
	return &Manager{
		stores:   make(map[string]*Store),
		repos:    repos,
		notifier: notifier,
		logger:   logger,
	}
}

// Get returns the store for an identity, constructing and loading it on
// first use
func (m *Manager) Get(ctx context.Context, identity domain.Identity) (*Store, error) {
	m.mu.Lock()
	store, ok := m.stores[identity.Key()]
	if !ok {
		store = NewStore(identity, m.repos, m.notifier, m.logger)
		m.stores[identity.Key()] = store
	}
	m.mu.Unlock()

	if !ok {
		if _, err := store.Load(ctx); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// SignIn merges the device's guest cart into the user's cart and re-keys
// the store under the authenticated identity
func (m *Manager) SignIn(ctx context.Context, deviceID string, user domain.Identity) (*Store, error) {
	guest := domain.Identity{DeviceID: deviceID}

	store, err := m.Get(ctx, guest)
	if err != nil {
		return nil, err
	}

	if err := store.SignIn(ctx, user); err != nil {
		return nil, err
	}

	m.mu.Lock()
	delete(m.stores, guest.Key())
	m.stores[store.Identity().Key()] = store
	m.mu.Unlock()

	return store, nil
}

// Evict drops an identity's store, ending its session
func (m *Manager) Evict(identity domain.Identity) {
	m.mu.Lock()
	delete(m.stores, identity.Key())
	m.mu.Unlock()
}
