package errors

import "fmt"

// ErrNotFound indicates a requested record does not exist
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized indicates a missing or invalid credential
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	return e.Message
}

// ErrValidation indicates a request rejected before any remote call
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// DiscountRejectReason classifies why a discount code cannot be redeemed
type DiscountRejectReason string

const (
	DiscountNotFound  DiscountRejectReason = "not_found"
	DiscountInactive  DiscountRejectReason = "inactive"
	DiscountExpired   DiscountRejectReason = "expired"
	DiscountExhausted DiscountRejectReason = "exhausted"
)

// ErrDiscountRejected indicates a discount code that failed validation
type ErrDiscountRejected struct {
	Code   string
	Reason DiscountRejectReason
}

func (e *ErrDiscountRejected) Error() string {
	return fmt.Sprintf("discount code %q rejected: %s", e.Code, e.Reason)
}

// ErrInvalidStateTransition indicates a payment status change that the
// state machine does not permit
type ErrInvalidStateTransition struct {
	From string
	To   string
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// ErrPaymentAmbiguous indicates the provider acknowledged a payment but the
// server-side verification did not confirm it. Funds may have moved; the
// caller must not silently retry.
type ErrPaymentAmbiguous struct {
	Reference string
	Message   string
}

func (e *ErrPaymentAmbiguous) Error() string {
	return fmt.Sprintf("payment %s unverified: %s", e.Reference, e.Message)
}
