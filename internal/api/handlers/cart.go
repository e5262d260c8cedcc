package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/api/middleware"
	"github.com/okaziba/storefront/internal/cart"
	"github.com/okaziba/storefront/internal/domain"
)

// CartLineResponse is one line of the cart as rendered to the client
type CartLineResponse struct {
	ID           string  `json:"id"`
	ProductID    string  `json:"product_id"`
	VariantID    *string `json:"variant_id,omitempty"`
	Name         string  `json:"name"`
	UnitPrice    float64 `json:"unit_price"`
	Image        string  `json:"image"`
	Quantity     int     `json:"quantity"`
	Weight       float64 `json:"weight"`
	VariantLabel *string `json:"variant_label,omitempty"`
	Selected     bool    `json:"selected"`
}

// CartResponse is the full cart snapshot plus the selection-derived totals
type CartResponse struct {
	Lines            []CartLineResponse `json:"lines"`
	SelectedSubtotal float64            `json:"selected_subtotal"`
	SelectedCount    int                `json:"selected_count"`
}

// AddToCartRequest puts a product in the cart
type AddToCartRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	VariantID *string `json:"variant_id,omitempty"`
	Quantity  int     `json:"quantity" binding:"required,min=1"`
}

// UpdateQuantityRequest changes one line's quantity; zero removes the line
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// ToggleSelectionRequest flips one line's checkout selection
type ToggleSelectionRequest struct {
	LineID string `json:"line_id" binding:"required"`
}

func cartResponse(store *cart.Store, lines []domain.CartLine) CartResponse {
	resp := CartResponse{Lines: make([]CartLineResponse, 0, len(lines))}
	checkout := store.SelectedCheckout()

	for _, line := range lines {
		resp.Lines = append(resp.Lines, CartLineResponse{
			ID:           line.ID,
			ProductID:    line.ProductID,
			VariantID:    line.VariantID,
			Name:         line.Name,
			UnitPrice:    line.UnitPrice,
			Image:        line.Image,
			Quantity:     line.Quantity,
			Weight:       line.Weight,
			VariantLabel: line.VariantLabel,
			Selected:     store.IsSelected(line.ID),
		})
	}

	resp.SelectedSubtotal = checkout.Subtotal
	resp.SelectedCount = checkout.Count
	return resp
}

// HandleGetCart handles GET /v1/cart
func HandleGetCart(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		store, ok := storeForRequest(c, deps)
		if !ok {
			return
		}

		lines, err := store.Load(c.Request.Context())
		if err != nil {
			respondError(c, deps.Logger, err)
			return
		}

		c.JSON(http.StatusOK, cartResponse(store, lines))
	}
}

// HandleAddToCart handles POST /v1/cart
func HandleAddToCart(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		store, ok := storeForRequest(c, deps)
		if !ok {
			return
		}

		var req AddToCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "details": err.Error()})
			return
		}

		lines, err := store.Add(c.Request.Context(), req.ProductID, req.VariantID, req.Quantity)
		if err != nil {
			respondError(c, deps.Logger, err)
			return
		}

		c.JSON(http.StatusOK, cartResponse(store, lines))
	}
}

// HandleUpdateCartLine handles PATCH /v1/cart/lines/:id
func HandleUpdateCartLine(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		store, ok := storeForRequest(c, deps)
		if !ok {
			return
		}

		var req UpdateQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "details": err.Error()})
			return
		}

		lines, err := store.SetQuantity(c.Request.Context(), c.Param("id"), *req.Quantity)
		if err != nil {
			respondError(c, deps.Logger, err)
			return
		}

		c.JSON(http.StatusOK, cartResponse(store, lines))
	}
}

// HandleRemoveCartLine handles DELETE /v1/cart/lines/:id
func HandleRemoveCartLine(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		store, ok := storeForRequest(c, deps)
		if !ok {
			return
		}

		lines, err := store.Remove(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, deps.Logger, err)
			return
		}

		c.JSON(http.StatusOK, cartResponse(store, lines))
	}
}

// HandleToggleSelection handles POST /v1/cart/selection/toggle
func HandleToggleSelection(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		store, ok := storeForRequest(c, deps)
		if !ok {
			return
		}

		var req ToggleSelectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "details": err.Error()})
			return
		}

		if err := store.ToggleSelection(req.LineID); err != nil {
			respondError(c, deps.Logger, err)
			return
		}

		c.JSON(http.StatusOK, cartResponse(store, store.Lines()))
	}
}

// HandleToggleSelectAll handles POST /v1/cart/selection/toggle-all
func HandleToggleSelectAll(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		store, ok := storeForRequest(c, deps)
		if !ok {
			return
		}

		store.ToggleSelectAll()
		c.JSON(http.StatusOK, cartResponse(store, store.Lines()))
	}
}

// HandleMergeCart handles POST /v1/cart/merge, the one-time guest cart
// merge after sign-in
func HandleMergeCart(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middleware.GetIdentityFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !identity.Authenticated() {
			c.JSON(http.StatusForbidden, gin.H{"error": "sign in before merging the guest cart"})
			return
		}
		if identity.DeviceID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing device id"})
			return
		}

		store, err := deps.Carts.SignIn(c.Request.Context(), identity.DeviceID, identity)
		if err != nil {
			deps.Logger.Error("Guest cart merge failed", zap.String("user_id", identity.UserID), zap.Error(err))
			respondError(c, deps.Logger, err)
			return
		}

		// The cart store re-keyed from the device to the user; drop any
		// checkout state still hanging off the device key
		deps.Checkouts.Evict(domain.Identity{DeviceID: identity.DeviceID})

		c.JSON(http.StatusOK, cartResponse(store, store.Lines()))
	}
}

func storeForRequest(c *gin.Context, deps *Deps) (*cart.Store, bool) {
	identity, ok := middleware.GetIdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}

	store, err := deps.Carts.Get(c.Request.Context(), identity)
	if err != nil {
		respondError(c, deps.Logger, err)
		return nil, false
	}

	return store, true
}
