package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okaziba/storefront/internal/domain"
)

func newTestManager(t *testing.T) (*Manager, *mockCartLineRepository, *mockGuestCartRepository) {
	t.Helper()
	products := fixtureCatalog()
	cartLines := newMockCartLineRepository(products)
	guest := newMockGuestCartRepository()

	manager := NewManager(testRepos(products, cartLines, guest), nil, testLogger())
	return manager, cartLines, guest
}

func TestManager_GetReturnsSameStorePerIdentity(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	first, err := manager.Get(ctx, domain.Identity{DeviceID: "device-1"})
	require.NoError(t, err)
	second, err := manager.Get(ctx, domain.Identity{DeviceID: "device-1"})
	require.NoError(t, err)

	assert.Same(t, first, second)

	other, err := manager.Get(ctx, domain.Identity{DeviceID: "device-2"})
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestManager_SignInRekeysStoreUnderUser(t *testing.T) {
	manager, cartLines, _ := newTestManager(t)
	ctx := context.Background()

	guestStore, err := manager.Get(ctx, domain.Identity{DeviceID: "device-1"})
	require.NoError(t, err)
	_, err = guestStore.Add(ctx, "p1", nil, 2)
	require.NoError(t, err)

	userStore, err := manager.SignIn(ctx, "device-1", signedInUser)
	require.NoError(t, err)
	assert.Same(t, guestStore, userStore)
	assert.Equal(t, 2, cartLines.quantityOf("user-1", "p1"))

	// The user key now resolves to the merged store; the device key starts
	// a fresh anonymous session
	byUser, err := manager.Get(ctx, domain.Identity{UserID: "user-1"})
	require.NoError(t, err)
	assert.Same(t, userStore, byUser)

	byDevice, err := manager.Get(ctx, domain.Identity{DeviceID: "device-1"})
	require.NoError(t, err)
	assert.NotSame(t, userStore, byDevice)
	assert.False(t, byDevice.Identity().Authenticated())
}

func TestManager_FailedMergeLeavesAnonymousStore(t *testing.T) {
	manager, cartLines, guest := newTestManager(t)
	ctx := context.Background()

	guestStore, err := manager.Get(ctx, domain.Identity{DeviceID: "device-1"})
	require.NoError(t, err)
	_, err = guestStore.Add(ctx, "p1", nil, 2)
	require.NoError(t, err)
	_, err = guestStore.Add(ctx, "p2", nil, 1)
	require.NoError(t, err)

	cartLines.failProductID = "p2"
	_, err = manager.SignIn(ctx, "device-1", signedInUser)
	require.Error(t, err)

	// The store stays cached under the device key, so a request carrying
	// only the device id must never see another user's cart
	byDevice, err := manager.Get(ctx, domain.Identity{DeviceID: "device-1"})
	require.NoError(t, err)
	assert.Same(t, guestStore, byDevice)
	assert.False(t, byDevice.Identity().Authenticated())

	// Retrying the sign-in completes the merge without double-counting
	cartLines.failProductID = ""
	userStore, err := manager.SignIn(ctx, "device-1", signedInUser)
	require.NoError(t, err)
	assert.Same(t, guestStore, userStore)
	assert.Equal(t, 2, cartLines.quantityOf("user-1", "p1"))
	assert.Equal(t, 1, cartLines.quantityOf("user-1", "p2"))
	assert.Empty(t, guest.stored("device-1"))

	byDevice, err = manager.Get(ctx, domain.Identity{DeviceID: "device-1"})
	require.NoError(t, err)
	assert.NotSame(t, userStore, byDevice)
	assert.False(t, byDevice.Identity().Authenticated())
}

func TestManager_EvictDropsStore(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	identity := domain.Identity{DeviceID: "device-1"}
	first, err := manager.Get(ctx, identity)
	require.NoError(t, err)

	manager.Evict(identity)

	second, err := manager.Get(ctx, identity)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}
