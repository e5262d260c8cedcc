package pricing

import "github.com/okaziba/storefront/internal/domain"

// Breakdown is the priced checkout: every field is a pure function of the
// four inputs, recomputed on any change; totals are never cached across
// input changes.
type Breakdown struct {
	Subtotal        float64
	DeliveryPremium float64
	DynamicFee      float64
	DiscountAmount  float64
	GrandTotal      float64
}

// Quote computes the checkout total from the selected subtotal, the chosen
// delivery method's flat premium, the dynamic logistics fee from the rate
// quote, and an optional validated discount. The grand total never goes
// negative regardless of the discount's size.
func Quote(subtotal float64, method domain.DeliveryMethod, dynamicFee float64, discount *domain.DiscountCode) Breakdown {
	b := Breakdown{
		Subtotal:        subtotal,
		DeliveryPremium: method.Premium,
		DynamicFee:      dynamicFee,
	}

	if discount != nil {
		b.DiscountAmount = discountAmount(subtotal, *discount)
	}

	total := subtotal + dynamicFee + method.Premium - b.DiscountAmount
	if total < 0 {
		total = 0
	}
	b.GrandTotal = total

	return b
}

// discountAmount converts a discount code into an absolute deduction,
// capped at the subtotal so a fixed discount larger than the order cannot
// push the total below zero on its own.
func discountAmount(subtotal float64, discount domain.DiscountCode) float64 {
	var amount float64
	switch discount.Type {
	case domain.DiscountTypePercentage:
		amount = subtotal * discount.Value / 100
	case domain.DiscountTypeFixed:
		amount = discount.Value
	}

	if amount > subtotal {
		amount = subtotal
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}
