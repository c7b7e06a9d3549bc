package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mercadopago-checkout/internal/models"
	"mercadopago-checkout/internal/payments"
	"mercadopago-checkout/internal/service"
)

// CheckoutHandler exposes preference creation to HTTP clients.
type CheckoutHandler struct {
	service *service.CheckoutService
	siteURL string
}

// NewCheckoutHandler constructs a handler instance. siteURL overrides the
// request-derived base URL when set.
func NewCheckoutHandler(service *service.CheckoutService, siteURL string) *CheckoutHandler {
	return &CheckoutHandler{service: service, siteURL: siteURL}
}

func (h *CheckoutHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "checkout service unavailable"})
		return false
	}
	return true
}

// CreatePreference starts a checkout for the posted cart and returns the redirect URL.
func (h *CheckoutHandler) CreatePreference(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No items provided"})
		return
	}

	session, err := h.service.CreatePreference(c.Request.Context(), req.Items, checkoutRequestContext(c, h.siteURL))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CheckoutResponse{
		InitPoint:    session.InitPoint,
		PreferenceID: session.PreferenceID,
	})
}

func (h *CheckoutHandler) writeError(c *gin.Context, err error) {
	if providerErr, ok := payments.AsProviderError(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Error creating preference",
			"details": providerErr.Body,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrNoItems):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No items provided"})
	case service.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
