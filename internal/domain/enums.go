package domain

// PaymentStatus represents the state of a payment attempt
type PaymentStatus string

const (
	PaymentStatusIdle       PaymentStatus = "IDLE"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusSuccess    PaymentStatus = "SUCCESS"
	PaymentStatusError      PaymentStatus = "ERROR"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusIdle,
		PaymentStatusProcessing,
		PaymentStatusSuccess,
		PaymentStatusError:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a status transition is valid. The only back-edge
// is ERROR -> IDLE (manual retry); SUCCESS is terminal.
func (s PaymentStatus) CanTransitionTo(newStatus PaymentStatus) bool {
	switch s {
	case PaymentStatusIdle:
		return newStatus == PaymentStatusProcessing
	case PaymentStatusProcessing:
		return newStatus == PaymentStatusSuccess ||
			newStatus == PaymentStatusError ||
			newStatus == PaymentStatusIdle // provider window dismissed
	case PaymentStatusError:
		return newStatus == PaymentStatusIdle
	case PaymentStatusSuccess:
		return false // terminal
	default:
		return false
	}
}

// DiscountType represents how a discount code's value is applied
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "PERCENTAGE"
	DiscountTypeFixed      DiscountType = "FIXED"
)

// IsValid checks if the discount type is valid
func (t DiscountType) IsValid() bool {
	switch t {
	case DiscountTypePercentage, DiscountTypeFixed:
		return true
	default:
		return false
	}
}
