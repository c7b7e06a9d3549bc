package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mercadopago-checkout/internal/models"
	"mercadopago-checkout/internal/service"
	"mercadopago-checkout/pkg/logger"
)

// OrderPaymentHandler lets a caller read back the payment states reconciled
// for its own checkouts. Guests identify themselves with the X-Idempotency-Key
// they checked out with.
type OrderPaymentHandler struct {
	service *service.OrderPaymentService
}

func NewOrderPaymentHandler(service *service.OrderPaymentService) *OrderPaymentHandler {
	return &OrderPaymentHandler{service: service}
}

func (h *OrderPaymentHandler) ListByReference(c *gin.Context) {
	reference := c.Param("reference")

	payments, err := h.service.ListForReference(c.Request.Context(), reference, callerContext(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	if payments == nil {
		payments = []models.OrderPayment{}
	}

	c.JSON(http.StatusOK, models.OrderPaymentListResponse{
		ExternalReference: reference,
		Payments:          payments,
	})
}

func (h *OrderPaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.service.GetForCaller(c.Request.Context(), c.Param("payment_id"), callerContext(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

func (h *OrderPaymentHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "order payments are not stored"})
	case errors.Is(err, service.ErrReferenceNotOwned):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	case errors.Is(err, service.ErrOrderPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
	default:
		logger.FromContext(c.Request.Context()).WithError(err).Error("Failed to read order payments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read order payments"})
	}
}
