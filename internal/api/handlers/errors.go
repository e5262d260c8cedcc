package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/okaziba/storefront/pkg/errors"
)

// respondError converts a typed service error into an HTTP response. All
// remote-call failures arrive here already wrapped; nothing propagates as a
// panic to the client.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		notFound   *apperrors.ErrNotFound
		validation *apperrors.ErrValidation
		unauth     *apperrors.ErrUnauthorized
		discount   *apperrors.ErrDiscountRejected
		ambiguous  *apperrors.ErrPaymentAmbiguous
		transition *apperrors.ErrInvalidStateTransition
	)

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": validation.Error(), "field": validation.Field})
	case errors.As(err, &unauth):
		c.JSON(http.StatusUnauthorized, gin.H{"error": unauth.Error()})
	case errors.As(err, &discount):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": discount.Error(), "reason": string(discount.Reason)})
	case errors.As(err, &ambiguous):
		// Surfaced distinctly: funds may have moved, support follow-up
		c.JSON(http.StatusConflict, gin.H{
			"error":     ambiguous.Error(),
			"reference": ambiguous.Reference,
			"ambiguous": true,
		})
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"error": transition.Error()})
	default:
		logger.Error("Unhandled service error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
