package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/okaziba/storefront/internal/domain"
)

// ZoneResponse is one node of the location tree
type ZoneResponse struct {
	ID       string  `json:"id"`
	ParentID *string `json:"parent_id,omitempty"`
	Name     string  `json:"name"`
	Position int     `json:"position"`
}

// HandleListZones handles GET /v1/zones?parent=<id>; no parent queries the
// roots
func HandleListZones(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var parentID *string
		if parent := c.Query("parent"); parent != "" {
			parentID = &parent
		}

		zones, err := deps.Repos.Zone.ChildrenOf(c.Request.Context(), parentID)
		if err != nil {
			respondError(c, deps.Logger, err)
			return
		}

		out := make([]ZoneResponse, 0, len(zones))
		for _, zone := range zones {
			out = append(out, zoneResponse(zone))
		}
		c.JSON(http.StatusOK, gin.H{"zones": out})
	}
}

// HandleListDeliveryMethods handles GET /v1/delivery-methods
func HandleListDeliveryMethods(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		methods, err := deps.Repos.DeliveryMethod.List(c.Request.Context())
		if err != nil {
			respondError(c, deps.Logger, err)
			return
		}

		type methodResponse struct {
			ID      string  `json:"id"`
			Name    string  `json:"name"`
			Premium float64 `json:"premium"`
		}

		out := make([]methodResponse, 0, len(methods))
		for _, m := range methods {
			out = append(out, methodResponse{ID: m.ID, Name: m.Name, Premium: m.Premium})
		}
		c.JSON(http.StatusOK, gin.H{"delivery_methods": out})
	}
}

func zoneResponse(zone domain.LogisticsZone) ZoneResponse {
	return ZoneResponse{
		ID:       zone.ID,
		ParentID: zone.ParentID,
		Name:     zone.Name,
		Position: zone.Position,
	}
}
