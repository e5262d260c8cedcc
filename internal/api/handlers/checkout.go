package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/okaziba/storefront/internal/api/middleware"
	"github.com/okaziba/storefront/internal/cart"
	"github.com/okaziba/storefront/internal/domain"
	"github.com/okaziba/storefront/internal/payment"
	"github.com/okaziba/storefront/internal/pricing"
	apperrors "github.com/okaziba/storefront/pkg/errors"
)

// CheckoutState is one identity's in-flight checkout: chosen address and
// delivery method, applied discount, the live shipping fee, and the
// payment state machine.
type CheckoutState struct {
	mu           sync.Mutex
	Orchestrator *payment.Orchestrator
	Fetcher      *pricing.FeeFetcher
	Discount     *domain.DiscountCode
	AddressID    string
	MethodID     string
}

// CheckoutSessions holds live checkout state per identity
type CheckoutSessions struct {
	mu       sync.Mutex
	sessions map[string]*CheckoutState
}

// NewCheckoutSessions creates the checkout registry
func NewCheckoutSessions() *CheckoutSessions {
	return &CheckoutSessions{sessions: make(map[string]*CheckoutState)}
}

// Get returns the identity's checkout, creating it on first use with an
// orchestrator bound to the identity's cart store
func (s *CheckoutSessions) Get(identity domain.Identity, deps *Deps, store *cart.Store) *CheckoutState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sessions[identity.Key()]
	if !ok {
		state = &CheckoutState{
			Orchestrator: payment.NewOrchestrator(
				deps.Provider,
				deps.Verifier,
				store,
				deps.Cfg.Payment.Currency,
				deps.Cfg.Payment.ProcessingWindow,
				deps.Logger,
			),
			Fetcher: pricing.NewFeeFetcher(deps.Quoter, deps.Logger),
		}
		s.sessions[identity.Key()] = state
	}

	return state
}

// Evict drops an identity's checkout state. Called when the checkout
// completes and when a guest identity is re-keyed after sign-in, so
// orchestrators and fee fetchers do not pile up for the process lifetime.
func (s *CheckoutSessions) Evict(identity domain.Identity) {
	s.mu.Lock()
	delete(s.sessions, identity.Key())
	s.mu.Unlock()
}

// refreshFee re-quotes the shipping fee for the current destination and
// selection. Triggered whenever the address or the delivery method changes.
// The quote outlives the request that triggered it: the handler responds
// before the fee lands, so the refresh must not die with the request
// context. The quote client's own timeout bounds the call.
func (state *CheckoutState) refreshFee(ctx context.Context, deps *Deps, store *cart.Store, addressID string) {
	ctx = context.WithoutCancel(ctx)

	addr, err := deps.Repos.Address.GetByID(ctx, addressID)
	if err != nil {
		deps.Logger.Warn("Skipping rate quote, address unavailable")
		return
	}

	dest, err := pricing.ResolveDestination(ctx, deps.Repos.Zone, *addr)
	if err != nil {
		deps.Logger.Warn("Skipping rate quote, destination unresolved")
		return
	}

	checkout := store.SelectedCheckout()
	state.Fetcher.Refresh(ctx, pricing.QuoteRequest{
		Location:    dest,
		CartTotal:   checkout.Subtotal,
		ItemsWeight: checkout.Weight,
	})
}

// SelectAddressRequest picks the shipping destination for this checkout
type SelectAddressRequest struct {
	AddressID string `json:"address_id" binding:"required"`
}

// SelectMethodRequest picks the delivery speed for this checkout
type SelectMethodRequest struct {
	DeliveryMethodID string `json:"delivery_method_id" binding:"required"`
}

// ApplyDiscountRequest applies a discount code to this checkout
type ApplyDiscountRequest struct {
	Code string `json:"code" binding:"required"`
}

// CallbackRequest is the provider's payment callback
type CallbackRequest struct {
	Reference string `json:"reference" binding:"required"`
}

// QuoteResponse is the priced checkout; ShippingPending tells the client
// to render a loading indicator for the shipping line instead of a number
type QuoteResponse struct {
	Subtotal        float64 `json:"subtotal"`
	DeliveryPremium float64 `json:"delivery_premium"`
	DynamicFee      float64 `json:"dynamic_fee"`
	ShippingPending bool    `json:"shipping_pending"`
	DiscountAmount  float64 `json:"discount_amount"`
	GrandTotal      float64 `json:"grand_total"`
}

// InitiateResponse hands the client what it needs to open the provider's
// payment window
type InitiateResponse struct {
	Reference        string  `json:"reference"`
	AccessCode       string  `json:"access_code"`
	AuthorizationURL string  `json:"authorization_url"`
	Amount           float64 `json:"amount"`
}

// StatusResponse reports the payment attempt state
type StatusResponse struct {
	Reference    string `json:"reference,omitempty"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Ambiguous    bool   `json:"ambiguous,omitempty"`
}

func checkoutForRequest(c *gin.Context, deps *Deps) (domain.Identity, *cart.Store, *CheckoutState, bool) {
	identity, ok := middleware.GetIdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return domain.Identity{}, nil, nil, false
	}

	store, err := deps.Carts.Get(c.Request.Context(), identity)
	if err != nil {
		respondError(c, deps.Logger, err)
		return domain.Identity{}, nil, nil, false
	}

	return identity, store, deps.Checkouts.Get(identity, deps, store), true
}

// HandleSelectAddress handles POST /v1/checkout/address
func HandleSelectAddress(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, store, state, ok := checkoutForRequest(c, deps)
		if !ok {
			return
		}

		var req SelectAddressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "details": err.Error()})
			return
		}

		addr, err := deps.Repos.Address.GetByID(c.Request.Context(), req.AddressID)
		if err != nil {
			respondError(c, deps.Logger, err)
			return
		}
		if identity.Authenticated() && addr.UserID != identity.UserID {
			c.JSON(http.StatusForbidden, gin.H{"error": "address belongs to another user"})
			return
		}

		state.mu.Lock()
		state.AddressID = req.AddressID
		state.mu.Unlock()

		state.refreshFee(c.Request.Context(), deps, store, req.AddressID)
		c.Status(http.StatusNoContent)
	}
}

// HandleSelectMethod handles POST /v1/checkout/method
func HandleSelectMethod(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, store, state, ok := checkoutForRequest(c, deps)
		if !ok {
			return
		}

		var req SelectMethodRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "details": err.Error()})
			return
		}

		if _, err := deps.Repos.DeliveryMethod.GetByID(c.Request.Context(), req.DeliveryMethodID); err != nil {
			respondError(c, deps.Logger, err)
			return
		}

		state.mu.Lock()
		state.MethodID = req.DeliveryMethodID
		addressID := state.AddressID
		state.mu.Unlock()

		if addressID != "" {
			state.refreshFee(c.Request.Context(), deps, store, addressID)
		}
		c.Status(http.StatusNoContent)
	}
}

// HandleApplyDiscount handles POST /v1/checkout/discount
func HandleApplyDiscount(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, state, ok := checkoutForRequest(c, deps)
		if !ok {
			return
		}

		var req ApplyDiscountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "details": err.Error()})
			return
		}

		discount, err := deps.Discounts.Validate(c.Request.Context(), req.Code)
		if err != nil {
			respondError(c, deps.Logger, err)
			return
		}

		state.mu.Lock()
		state.Discount = discount
		state.mu.Unlock()

		c.JSON(http.StatusOK, gin.H{"code": discount.Code, "type": discount.Type, "value": discount.Value})
	}
}

// HandleGetQuote handles GET /v1/checkout/quote
func HandleGetQuote(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, store, state, ok := checkoutForRequest(c, deps)
		if !ok {
			return
		}

		state.mu.Lock()
		methodID := state.MethodID
		discount := state.Discount
		state.mu.Unlock()

		method := domain.DeliveryMethod{}
		if methodID != "" {
			m, err := deps.Repos.DeliveryMethod.GetByID(c.Request.Context(), methodID)
			if err != nil {
				respondError(c, deps.Logger, err)
				return
			}
			method = *m
		}

		fee, pending := state.Fetcher.Fee()
		checkout := store.SelectedCheckout()
		breakdown := pricing.Quote(checkout.Subtotal, method, fee, discount)

		c.JSON(http.StatusOK, QuoteResponse{
			Subtotal:        breakdown.Subtotal,
			DeliveryPremium: breakdown.DeliveryPremium,
			DynamicFee:      breakdown.DynamicFee,
			ShippingPending: pending,
			DiscountAmount:  breakdown.DiscountAmount,
			GrandTotal:      breakdown.GrandTotal,
		})
	}
}

// HandleInitiatePayment handles POST /v1/checkout/initiate
func HandleInitiatePayment(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, store, state, ok := checkoutForRequest(c, deps)
		if !ok {
			return
		}
		if !identity.Authenticated() {
			c.JSON(http.StatusForbidden, gin.H{"error": "sign in to check out"})
			return
		}

		state.mu.Lock()
		addressID := state.AddressID
		methodID := state.MethodID
		discount := state.Discount
		state.mu.Unlock()

		var addr *domain.ShippingAddress
		if addressID != "" {
			a, err := deps.Repos.Address.GetByID(c.Request.Context(), addressID)
			if err != nil {
				respondError(c, deps.Logger, err)
				return
			}
			addr = a
		}

		method := domain.DeliveryMethod{}
		if methodID != "" {
			m, err := deps.Repos.DeliveryMethod.GetByID(c.Request.Context(), methodID)
			if err != nil {
				respondError(c, deps.Logger, err)
				return
			}
			method = *m
		}

		var discountCode *string
		if discount != nil {
			discountCode = &discount.Code
		}

		fee, pending := state.Fetcher.Fee()
		if pending {
			// A quote is still in flight; initiating now would price the
			// order off a stale or zero shipping fee.
			c.JSON(http.StatusConflict, gin.H{"error": "shipping quote in progress, retry shortly"})
			return
		}
		checkout := store.SelectedCheckout()
		breakdown := pricing.Quote(checkout.Subtotal, method, fee, discount)

		session, err := state.Orchestrator.Initiate(c.Request.Context(), payment.CheckoutContext{
			SelectedLineIDs:  checkout.LineIDs,
			Address:          addr,
			DeliveryMethodID: methodID,
			DiscountCode:     discountCode,
			Amount:           breakdown.GrandTotal,
			Email:            identity.Email,
			SessionToken:     middleware.SessionToken(c),
		})
		if err != nil {
			// A missing address redirects the client to address selection
			var validation *apperrors.ErrValidation
			if errors.As(err, &validation) && validation.Field == "address" {
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"error":    validation.Error(),
					"field":    "address",
					"redirect": "address_selection",
				})
				return
			}
			respondError(c, deps.Logger, err)
			return
		}

		c.JSON(http.StatusOK, InitiateResponse{
			Reference:        session.Reference,
			AccessCode:       session.AccessCode,
			AuthorizationURL: session.AuthorizationURL,
			Amount:           breakdown.GrandTotal,
		})
	}
}

// HandlePaymentCallback handles POST /v1/checkout/callback
func HandlePaymentCallback(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _, state, ok := checkoutForRequest(c, deps)
		if !ok {
			return
		}

		var req CallbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "details": err.Error()})
			return
		}

		if err := state.Orchestrator.HandleCallback(c.Request.Context(), req.Reference); err != nil {
			respondError(c, deps.Logger, err)
			return
		}

		// The checkout is done; its state has nothing left to serve
		resp := statusResponse(state)
		deps.Checkouts.Evict(identity)
		c.JSON(http.StatusOK, resp)
	}
}

// HandlePaymentDismissed handles POST /v1/checkout/dismiss, the provider
// window closed without payment
func HandlePaymentDismissed(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, state, ok := checkoutForRequest(c, deps)
		if !ok {
			return
		}

		state.Orchestrator.HandleDismissed()
		c.JSON(http.StatusOK, statusResponse(state))
	}
}

// HandlePaymentRetry handles POST /v1/checkout/retry
func HandlePaymentRetry(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, state, ok := checkoutForRequest(c, deps)
		if !ok {
			return
		}

		if err := state.Orchestrator.Retry(); err != nil {
			respondError(c, deps.Logger, err)
			return
		}

		c.JSON(http.StatusOK, statusResponse(state))
	}
}

// HandlePaymentStatus handles GET /v1/checkout/status
func HandlePaymentStatus(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, state, ok := checkoutForRequest(c, deps)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, statusResponse(state))
	}
}

func statusResponse(state *CheckoutState) StatusResponse {
	attempt := state.Orchestrator.Status()
	return StatusResponse{
		Reference:    attempt.Reference,
		Status:       string(attempt.Status),
		ErrorMessage: attempt.ErrorMessage,
	}
}
