package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/okaziba/storefront/internal/api/middleware"
	"github.com/okaziba/storefront/internal/domain"
)

// CreateAddressRequest adds a shipping address for the signed-in user
type CreateAddressRequest struct {
	FullName    string `json:"full_name" binding:"required"`
	Phone       string `json:"phone" binding:"required"`
	AddressLine string `json:"address_line" binding:"required"`
	ZoneID      string `json:"zone_id" binding:"required"`
	SubZoneID   string `json:"sub_zone_id" binding:"required"`
	AreaID      string `json:"area_id" binding:"required"`
	IsDefault   bool   `json:"is_default"`
}

// AddressResponse is one shipping address
type AddressResponse struct {
	ID          string `json:"id"`
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	AddressLine string `json:"address_line"`
	ZoneID      string `json:"zone_id"`
	SubZoneID   string `json:"sub_zone_id"`
	AreaID      string `json:"area_id"`
	IsDefault   bool   `json:"is_default"`
}

// HandleListAddresses handles GET /v1/addresses
func HandleListAddresses(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := authenticatedIdentity(c)
		if !ok {
			return
		}

		addresses, err := deps.Repos.Address.ListByUser(c.Request.Context(), identity.UserID)
		if err != nil {
			respondError(c, deps.Logger, err)
			return
		}

		out := make([]AddressResponse, 0, len(addresses))
		for _, addr := range addresses {
			out = append(out, addressResponse(addr))
		}
		c.JSON(http.StatusOK, gin.H{"addresses": out})
	}
}

// HandleCreateAddress handles POST /v1/addresses. Each of the three zone
// levels must exist before the address is accepted.
func HandleCreateAddress(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := authenticatedIdentity(c)
		if !ok {
			return
		}

		var req CreateAddressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "details": err.Error()})
			return
		}

		for _, zoneID := range []string{req.ZoneID, req.SubZoneID, req.AreaID} {
			if _, err := deps.Repos.Zone.GetByID(c.Request.Context(), zoneID); err != nil {
				respondError(c, deps.Logger, err)
				return
			}
		}

		addr := &domain.ShippingAddress{
			UserID:      identity.UserID,
			FullName:    req.FullName,
			Phone:       req.Phone,
			AddressLine: req.AddressLine,
			ZoneID:      req.ZoneID,
			SubZoneID:   req.SubZoneID,
			AreaID:      req.AreaID,
			IsDefault:   req.IsDefault,
		}

		if err := deps.Repos.Address.Create(c.Request.Context(), addr); err != nil {
			respondError(c, deps.Logger, err)
			return
		}

		c.JSON(http.StatusCreated, addressResponse(*addr))
	}
}

// HandleSetDefaultAddress handles POST /v1/addresses/:id/default
func HandleSetDefaultAddress(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := authenticatedIdentity(c)
		if !ok {
			return
		}

		if err := deps.Repos.Address.SetDefault(c.Request.Context(), identity.UserID, c.Param("id")); err != nil {
			respondError(c, deps.Logger, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func authenticatedIdentity(c *gin.Context) (domain.Identity, bool) {
	identity, ok := middleware.GetIdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return domain.Identity{}, false
	}
	if !identity.Authenticated() {
		c.JSON(http.StatusForbidden, gin.H{"error": "sign in required"})
		return domain.Identity{}, false
	}
	return identity, true
}

func addressResponse(addr domain.ShippingAddress) AddressResponse {
	return AddressResponse{
		ID:          addr.ID,
		FullName:    addr.FullName,
		Phone:       addr.Phone,
		AddressLine: addr.AddressLine,
		ZoneID:      addr.ZoneID,
		SubZoneID:   addr.SubZoneID,
		AreaID:      addr.AreaID,
		IsDefault:   addr.IsDefault,
	}
}
