package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okaziba/storefront/internal/domain"
)

var signedInUser = domain.Identity{UserID: "user-1", Email: "u@example.com"}

func TestSignIn_MergesGuestCartIntoEmptyRemote(t *testing.T) {
	store, cartLines, guest, _ := newGuestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "p1", nil, 2)
	require.NoError(t, err)
	_, err = store.Add(ctx, "p2", nil, 1)
	require.NoError(t, err)

	require.NoError(t, store.SignIn(ctx, signedInUser))

	assert.Equal(t, 2, cartLines.quantityOf("user-1", "p1"))
	assert.Equal(t, 1, cartLines.quantityOf("user-1", "p2"))
	assert.Equal(t, 2, cartLines.count("user-1"))

	// Guest cart is gone once every line made it across
	assert.Empty(t, guest.stored("device-1"))
	assert.Contains(t, guest.cleared, "device-1")

	lines := store.Lines()
	assert.Len(t, lines, 2)
	assert.True(t, store.Identity().Authenticated())
}

func TestSignIn_SumsQuantitiesWithExistingRemoteLines(t *testing.T) {
	store, cartLines, _, _ := newGuestStore(t)
	ctx := context.Background()

	require.NoError(t, cartLines.Insert(ctx, "user-1", &domain.CartLine{ProductID: "p1", Quantity: 3}))

	_, err := store.Add(ctx, "p1", nil, 2)
	require.NoError(t, err)
	_, err = store.Add(ctx, "p2", nil, 1)
	require.NoError(t, err)

	require.NoError(t, store.SignIn(ctx, signedInUser))

	assert.Equal(t, 5, cartLines.quantityOf("user-1", "p1"))
	assert.Equal(t, 1, cartLines.quantityOf("user-1", "p2"))
	assert.Equal(t, 2, cartLines.count("user-1"))
}

func TestSignIn_VariantLinesStayDistinct(t *testing.T) {
	store, cartLines, _, _ := newGuestStore(t)
	ctx := context.Background()
	v1 := "v1"

	require.NoError(t, cartLines.Insert(ctx, "user-1", &domain.CartLine{ProductID: "p1", Quantity: 1}))

	_, err := store.Add(ctx, "p1", &v1, 2)
	require.NoError(t, err)

	require.NoError(t, store.SignIn(ctx, signedInUser))

	// Base line untouched, variant line inserted separately
	assert.Equal(t, 2, cartLines.count("user-1"))
	assert.Equal(t, 1, cartLines.quantityOf("user-1", "p1"))
}

func TestSignIn_PartialFailureRetriesWithoutDoubleCounting(t *testing.T) {
	store, cartLines, guest, _ := newGuestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "p1", nil, 2)
	require.NoError(t, err)
	_, err = store.Add(ctx, "p2", nil, 1)
	require.NoError(t, err)

	cartLines.failProductID = "p2"
	err = store.SignIn(ctx, signedInUser)
	require.Error(t, err)

	// First line landed remotely and was marked synced; the guest cart
	// survives for retry
	assert.Equal(t, 2, cartLines.quantityOf("user-1", "p1"))
	retained := guest.stored("device-1")
	require.Len(t, retained, 2)
	assert.True(t, retained[0].Synced)
	assert.False(t, retained[1].Synced)

	cartLines.failProductID = ""
	require.NoError(t, store.SignIn(ctx, signedInUser))

	assert.Equal(t, 2, cartLines.quantityOf("user-1", "p1"))
	assert.Equal(t, 1, cartLines.quantityOf("user-1", "p2"))
	assert.Empty(t, guest.stored("device-1"))
}

func TestSignIn_FailedMergeKeepsAnonymousIdentity(t *testing.T) {
	store, cartLines, _, _ := newGuestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "p2", nil, 1)
	require.NoError(t, err)

	cartLines.failProductID = "p2"
	require.Error(t, store.SignIn(ctx, signedInUser))

	// The store must not present itself as user-1 until the merge lands
	assert.False(t, store.Identity().Authenticated())
	assert.Equal(t, "device:device-1", store.Identity().Key())
}

func TestSignIn_RequiresAuthenticatedIdentity(t *testing.T) {
	store, _, _, _ := newGuestStore(t)

	err := store.SignIn(context.Background(), domain.Identity{DeviceID: "device-2"})
	require.Error(t, err)
	assert.False(t, store.Identity().Authenticated())
}

func TestSignIn_RejectsDifferentUser(t *testing.T) {
	store, _, _, _ := newGuestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SignIn(ctx, signedInUser))

	err := store.SignIn(ctx, domain.Identity{UserID: "user-2"})
	require.Error(t, err)
	assert.Equal(t, "user-1", store.Identity().UserID)
}

func TestSignIn_GuestLoadFailureFallsBackToRemoteCart(t *testing.T) {
	store, cartLines, guest, _ := newGuestStore(t)
	ctx := context.Background()

	require.NoError(t, cartLines.Insert(ctx, "user-1", &domain.CartLine{ProductID: "p1", Quantity: 4}))
	guest.loadErr = errors.New("read timeout")

	require.NoError(t, store.SignIn(ctx, signedInUser))

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 4, lines[0].Quantity)
}

func TestSignIn_EmptyGuestCartSkipsMerge(t *testing.T) {
	store, cartLines, guest, _ := newGuestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SignIn(ctx, signedInUser))

	assert.Equal(t, 0, cartLines.count("user-1"))
	assert.Empty(t, guest.cleared)
}

func TestSignIn_MergedLinesAreSelected(t *testing.T) {
	store, _, _, _ := newGuestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, "p1", nil, 2)
	require.NoError(t, err)

	require.NoError(t, store.SignIn(ctx, signedInUser))

	checkout := store.SelectedCheckout()
	assert.Equal(t, 2, checkout.Count)
	assert.Equal(t, 80.0, checkout.Subtotal)
}
