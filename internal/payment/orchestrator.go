package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/domain"
	apperrors "github.com/okaziba/storefront/pkg/errors"
)

// CartClearer removes the purchased lines after a verified payment
type CartClearer interface {
	ClearLines(ctx context.Context, lineIDs []string) error
}

// CheckoutContext is everything a payment attempt needs: the selection,
// the chosen address and delivery method, the priced total, and the
// caller's session token for the verification round-trip.
type CheckoutContext struct {
	SelectedLineIDs  []string
	Address          *domain.ShippingAddress
	DeliveryMethodID string
	DiscountCode     *string
	Amount           float64
	Email            string
	SessionToken     string
}

// Orchestrator drives one identity's payment state machine:
// idle -> processing -> success or error, with error -> idle as the only
// back-edge (manual retry). The provider callback is never trusted on its
// own; only the server-side verification moves an attempt to success.
type Orchestrator struct {
	provider SessionInitiator
	verifier Verifier
	cart     CartClearer
	logger   *zap.Logger
	currency string
	window   time.Duration
	now      func() time.Time

	mu       sync.Mutex
	attempt  domain.PaymentAttempt
	checkout CheckoutContext
	session  *Session
}

// NewOrchestrator creates a payment orchestrator. window bounds how long an
// attempt may sit in processing before degrading to error.
func NewOrchestrator(provider SessionInitiator, verifier Verifier, cart CartClearer, currency string, window time.Duration, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		verifier: verifier,
		cart:     cart,
		logger:   logger,
		currency: currency,
		window:   window,
		now:      time.Now,
		attempt:  domain.PaymentAttempt{Status: domain.PaymentStatusIdle},
	}
}

// Status returns the current attempt. A processing attempt past the bounded
// window degrades to error here rather than sitting stuck forever.
func (o *Orchestrator) Status() domain.PaymentAttempt {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.attempt.Status == domain.PaymentStatusProcessing &&
		o.window > 0 &&
		o.now().Sub(o.attempt.StartedAt) > o.window {
		o.attempt.Status = domain.PaymentStatusError
		o.attempt.ErrorMessage = "payment confirmation timed out; check your order history before retrying"
		o.logger.Warn("Payment attempt timed out in processing", zap.String("reference", o.attempt.Reference))
	}

	return o.attempt
}

// Initiate opens a provider session for the current checkout. It requires a
// non-empty selection and a chosen address; either failing is a validation
// error with no state transition, so the caller can redirect to address
// selection.
func (o *Orchestrator) Initiate(ctx context.Context, checkout CheckoutContext) (*Session, error) {
	if len(checkout.SelectedLineIDs) == 0 {
		return nil, &apperrors.ErrValidation{Field: "selection", Message: "no cart lines selected"}
	}
	if checkout.Address == nil {
		return nil, &apperrors.ErrValidation{Field: "address", Message: "no shipping address chosen"}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.attempt.Status.CanTransitionTo(domain.PaymentStatusProcessing) {
		return nil, &apperrors.ErrInvalidStateTransition{
			From: string(o.attempt.Status),
			To:   string(domain.PaymentStatusProcessing),
		}
	}

	reference := uuid.NewString()
	o.attempt = domain.PaymentAttempt{
		Reference: reference,
		Amount:    checkout.Amount,
		Status:    domain.PaymentStatusProcessing,
		StartedAt: o.now(),
	}
	o.checkout = checkout

	session, err := o.provider.Initialize(ctx, SessionRequest{
		Email:     checkout.Email,
		Amount:    checkout.Amount,
		Currency:  o.currency,
		Reference: reference,
		Metadata: map[string]interface{}{
			"delivery_method_id": checkout.DeliveryMethodID,
			"address_id":         checkout.Address.ID,
		},
	})
	if err != nil {
		o.logger.Error("Failed to open provider session", zap.String("reference", reference), zap.Error(err))
		o.attempt.Status = domain.PaymentStatusError
		o.attempt.ErrorMessage = "could not reach the payment provider"
		return nil, err
	}

	o.session = session
	o.logger.Info("Payment session opened",
		zap.String("reference", reference),
		zap.Float64("amount", checkout.Amount))

	return session, nil
}

// HandleCallback processes the provider's payment callback by forwarding
// the reference to server-side verification. Success clears exactly the
// purchased lines; a verification rejection after a provider callback is
// surfaced as payment-ambiguous, since funds may have moved.
func (o *Orchestrator) HandleCallback(ctx context.Context, reference string) error {
	o.mu.Lock()

	if o.attempt.Status != domain.PaymentStatusProcessing {
		o.mu.Unlock()
		return &apperrors.ErrValidation{Field: "reference", Message: "no payment in progress"}
	}
	if o.session == nil || o.attempt.Reference != reference {
		o.attempt.Status = domain.PaymentStatusError
		o.attempt.ErrorMessage = "callback did not match the open payment session"
		o.mu.Unlock()
		return &apperrors.ErrPaymentAmbiguous{Reference: reference, Message: "unknown payment session"}
	}

	checkout := o.checkout
	o.mu.Unlock()

	result, err := o.verifier.Verify(ctx, checkout.SessionToken, VerifyRequest{
		Reference:        reference,
		DeliveryMethodID: checkout.DeliveryMethodID,
		AddressID:        checkout.Address.ID,
		DiscountCode:     checkout.DiscountCode,
		SelectedLineIDs:  checkout.SelectedLineIDs,
	})

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		o.attempt.Status = domain.PaymentStatusError

		var rejected *ErrVerificationRejected
		if errors.As(err, &rejected) {
			// The provider signalled payment but our server would not
			// confirm it. A blind retry could double-charge.
			o.attempt.ErrorMessage = "we received a signal from the payment provider but could not verify it; check your order history before retrying"
			o.logger.Error("Payment verification rejected",
				zap.String("reference", reference),
				zap.Error(err))
			return &apperrors.ErrPaymentAmbiguous{Reference: reference, Message: rejected.Message}
		}

		o.attempt.ErrorMessage = "could not reach the verification service"
		o.logger.Error("Payment verification failed", zap.String("reference", reference), zap.Error(err))
		return err
	}

	o.attempt.Status = domain.PaymentStatusSuccess
	o.logger.Info("Payment verified",
		zap.String("reference", reference),
		zap.String("order_id", result.OrderID))

	// Only the purchased lines leave the cart; unselected lines stay.
	if err := o.cart.ClearLines(ctx, checkout.SelectedLineIDs); err != nil {
		// The order exists server-side; the cart will self-correct on the
		// next load.
		o.logger.Error("Failed to clear purchased lines", zap.String("reference", reference), zap.Error(err))
	}

	return nil
}

// HandleDismissed returns to idle when the user closes the provider's
// payment window without paying. Not an error.
func (o *Orchestrator) HandleDismissed() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.attempt.Status != domain.PaymentStatusProcessing {
		return
	}

	o.logger.Info("Payment window dismissed", zap.String("reference", o.attempt.Reference))
	o.attempt = domain.PaymentAttempt{Status: domain.PaymentStatusIdle}
	o.session = nil
}

// Retry discards a failed attempt, the only back-edge in the machine
func (o *Orchestrator) Retry() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.attempt.Status.CanTransitionTo(domain.PaymentStatusIdle) {
		return &apperrors.ErrInvalidStateTransition{
			From: string(o.attempt.Status),
			To:   string(domain.PaymentStatusIdle),
		}
	}

	o.attempt = domain.PaymentAttempt{Status: domain.PaymentStatusIdle}
	o.session = nil
	return nil
}
