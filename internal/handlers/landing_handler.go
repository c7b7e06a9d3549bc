package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mercadopago-checkout/internal/models"
	"mercadopago-checkout/internal/service"
	"mercadopago-checkout/pkg/logger"
)

const (
	MessagePaymentSuccess = "Payment completed successfully"
	MessagePaymentFailure = "Payment was cancelled or failed"
	MessagePaymentPending = "Your payment is being processed"

	defaultFailureReason = "Unknown"
)

// LandingHandler answers the browser redirects that follow a checkout. The
// responses depend on the query string only.
type LandingHandler struct {
	service *service.LandingService
}

func NewLandingHandler(service *service.LandingService) *LandingHandler {
	return &LandingHandler{service: service}
}

func (h *LandingHandler) Success(c *gin.Context) {
	var query models.PaymentSuccessQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		logger.FromContext(c.Request.Context()).WithError(err).Debug("Ignoring unparseable landing query")
	}

	if query.PaymentID != nil && *query.PaymentID != "" && h.service != nil {
		status := ""
		if query.Status != nil {
			status = *query.Status
		}
		h.service.VerifyReturn(c.Request.Context(), *query.PaymentID, status)
	}

	c.JSON(http.StatusOK, models.PaymentSuccessResponse{
		Message:   MessagePaymentSuccess,
		PaymentID: query.PaymentID,
		Status:    query.Status,
	})
}

func (h *LandingHandler) Failure(c *gin.Context) {
	c.JSON(http.StatusBadRequest, models.PaymentFailureResponse{
		Message: MessagePaymentFailure,
		Reason:  c.DefaultQuery("reason", defaultFailureReason),
	})
}

func (h *LandingHandler) Pending(c *gin.Context) {
	c.JSON(http.StatusOK, models.PaymentPendingResponse{
		Message: MessagePaymentPending,
	})
}
