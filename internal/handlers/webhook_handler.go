package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mercadopago-checkout/internal/models"
	"mercadopago-checkout/internal/payments/mercadopago"
	"mercadopago-checkout/internal/service"
	"mercadopago-checkout/pkg/logger"
	"mercadopago-checkout/pkg/validator"
)

const maxNotificationBodyBytes = 64 << 10

// WebhookHandler receives provider notifications. It answers 200 for anything
// it handled or deliberately ignored and 400 otherwise, so the provider redelivers.
type WebhookHandler struct {
	service *service.WebhookService
}

func NewWebhookHandler(service *service.WebhookService) *WebhookHandler {
	validator.Init()
	return &WebhookHandler{service: service}
}

func (h *WebhookHandler) Receive(c *gin.Context) {
	log := logger.FromContext(c.Request.Context())

	if h == nil || h.service == nil {
		log.Error("Webhook received but no webhook service is configured")
		writeEmpty(c, http.StatusBadRequest)
		return
	}

	var query models.PaymentNotificationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		log.WithError(err).Warn("Rejected malformed webhook query")
		writeEmpty(c, http.StatusBadRequest)
		return
	}

	notification := service.Notification{
		Type:      strings.TrimSpace(query.Type),
		PaymentID: strings.TrimSpace(query.DataID),
		RequestID: c.GetHeader(mercadopago.RequestIDHeader),
		Signature: c.GetHeader(mercadopago.SignatureHeader),
	}

	if notification.Type == "" && query.Topic != "" {
		notification.Type = strings.TrimSpace(query.Topic)
		notification.PaymentID = strings.TrimSpace(query.ID)
	}

	if (notification.Type == "" || notification.PaymentID == "") && c.Request.Body != nil && c.Request.Method == http.MethodPost {
		fillFromBody(c, &notification)
	}

	if notification.Type == service.NotificationTypePayment && notification.PaymentID != "" {
		if err := validator.ValidateNotificationID(notification.PaymentID); err != nil {
			log.WithError(err).Warn("Rejected payment notification with malformed id")
			writeEmpty(c, http.StatusBadRequest)
			return
		}
	}

	result, err := h.service.HandleNotification(c.Request.Context(), notification)
	if err != nil {
		log.WithError(err).WithField("type", notification.Type).Error("Error processing webhook")
		writeEmpty(c, http.StatusBadRequest)
		return
	}

	if result.Duplicate {
		log.WithField("payment_id", notification.PaymentID).Debug("Acknowledged redelivered notification")
	}
	writeEmpty(c, http.StatusOK)
}

// fillFromBody completes a notification from its JSON body when the query
// string left fields out. Unreadable bodies are ignored.
func fillFromBody(c *gin.Context, notification *service.Notification) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxNotificationBodyBytes))
	if err != nil || len(raw) == 0 {
		return
	}

	var body models.PaymentNotificationBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return
	}

	if notification.Type == "" {
		notification.Type = strings.TrimSpace(body.Type)
	}
	if notification.PaymentID == "" && body.Data.ID.Set {
		notification.PaymentID = strings.TrimSpace(body.Data.ID.Value)
	}
}

func writeEmpty(c *gin.Context, status int) {
	c.Status(status)
	c.Writer.WriteHeaderNow()
}
