package cart

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/domain"
	apperrors "github.com/okaziba/storefront/pkg/errors"
)

// SignIn switches the store from the anonymous device context to the
// authenticated user and merges the guest cart into the user's remote cart.
//
// Each guest line syncs sequentially: an existing remote line for the same
// (product, variant) pair has its quantity incremented, otherwise a new
// remote line is inserted. Sequencing matters: two concurrent existence
// checks for the same pair could both miss and both insert.
//
// Every synced line is marked in the guest store before the next one is
// processed, so a merge that fails partway can be retried without
// double-counting the lines that already made it across. The guest cart is
// cleared only after the full set has synced.
//
// The store keeps its anonymous identity until the merge and the remote
// reload have both succeeded. A failed sign-in must never leave an
// authenticated cart reachable under the device key.
func (s *Store) SignIn(ctx context.Context, user domain.Identity) error {
	if !user.Authenticated() {
		return &apperrors.ErrValidation{Field: "user_id", Message: "sign-in requires an authenticated identity"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-entry by the same user retries a merge that failed partway;
	// synced marks keep the retry from double-counting.
	if s.identity.Authenticated() && s.identity.UserID != user.UserID {
		return &apperrors.ErrValidation{Field: "identity", Message: "already authenticated as another user"}
	}

	deviceID := s.identity.DeviceID
	user.DeviceID = deviceID

	guestLines, err := s.repos.GuestCart.Load(ctx, deviceID)
	if err != nil {
		// The guest snapshot is unreadable; proceed with the remote cart
		// rather than blocking sign-in.
		s.logger.Error("Failed to read guest cart for merge", zap.String("device_id", deviceID), zap.Error(err))
		guestLines = nil
	}

	if len(guestLines) > 0 {
		if err := s.mergeLocked(ctx, user.UserID, deviceID, guestLines); err != nil {
			s.logger.Error("Guest cart merge failed, guest lines retained for retry",
				zap.String("device_id", deviceID),
				zap.Error(err))
			return err
		}
	}

	lines, err := s.repos.CartLine.ListByUser(ctx, user.UserID)
	if err != nil {
		s.logger.Error("Failed to load remote cart after merge", zap.Error(err))
		return err
	}

	s.identity = user
	s.commit(lines)
	return nil
}

func (s *Store) mergeLocked(ctx context.Context, userID, deviceID string, guestLines []domain.CartLine) error {
	for i := range guestLines {
		if guestLines[i].Synced {
			continue
		}
		if guestLines[i].Quantity < 1 {
			guestLines[i].Synced = true
			continue
		}

		if err := s.syncLine(ctx, userID, guestLines[i]); err != nil {
			return err
		}

		guestLines[i].Synced = true
		if err := s.repos.GuestCart.Save(ctx, deviceID, guestLines); err != nil {
			// The line is already remote; losing the mark risks one
			// double-count on retry, same as losing the device.
			s.logger.Warn("Failed to persist merge progress", zap.String("device_id", deviceID), zap.Error(err))
		}
	}

	if err := s.repos.GuestCart.Clear(ctx, deviceID); err != nil {
		s.logger.Warn("Failed to clear guest cart after merge", zap.String("device_id", deviceID), zap.Error(err))
	}

	return nil
}

func (s *Store) syncLine(ctx context.Context, userID string, guest domain.CartLine) error {
	existing, err := s.repos.CartLine.FindByProductVariant(ctx, userID, guest.ProductID, guest.VariantID)

	var notFound *apperrors.ErrNotFound
	switch {
	case err == nil:
		return s.repos.CartLine.UpdateQuantity(ctx, userID, existing.ID, existing.Quantity+guest.Quantity)
	case errors.As(err, &notFound):
		line := &domain.CartLine{
			ProductID: guest.ProductID,
			VariantID: guest.VariantID,
			Quantity:  guest.Quantity,
		}
		return s.repos.CartLine.Insert(ctx, userID, line)
	default:
		return err
	}
}
