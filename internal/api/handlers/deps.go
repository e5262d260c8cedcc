package handlers

import (
	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/cart"
	"github.com/okaziba/storefront/internal/config"
	"github.com/okaziba/storefront/internal/payment"
	"github.com/okaziba/storefront/internal/pricing"
	"github.com/okaziba/storefront/internal/repository"
)

// Deps bundles what the handlers need. Built once in main and shared.
type Deps struct {
	Cfg       *config.Config
	Repos     *repository.Repositories
	Carts     *cart.Manager
	Quoter    pricing.Quoter
	Discounts *pricing.DiscountValidator
	Provider  payment.SessionInitiator
	Verifier  payment.Verifier
	Checkouts *CheckoutSessions
	Logger    *zap.Logger
}
