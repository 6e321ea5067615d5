package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"nastia-backend/internal/metrics"
	"nastia-backend/internal/models"
	"nastia-backend/internal/payments"
)

type CheckoutApplier interface {
	ApplyCheckout(ctx context.Context, session payments.CheckoutSession) error
}

type WebhookHandler struct {
	secret     string
	reconciler CheckoutApplier
}

func NewWebhookHandler(secret string, reconciler CheckoutApplier) *WebhookHandler {
	return &WebhookHandler{secret: secret, reconciler: reconciler}
}

// HandleWebhook godoc
// @Summary     Payment processor webhook
// @Description Verifies the event signature and applies completed checkouts (credit top-up, plan change, referrer bonus). Persistence failures are logged but the webhook still succeeds, so the processor does not retry-storm.
// @Tags        webhooks
// @Accept      json
// @Produce     json
// @Param       Stripe-Signature header string true "Signed event header"
// @Success     200 {object} models.WebhookResponse
// @Failure     400 {object} models.ErrorResponse
// @Router      /webhook [post]
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to read request body"})
		return
	}

	event, err := payments.ConstructEvent(body, c.GetHeader("Stripe-Signature"), h.secret, payments.DefaultTolerance)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid signature"})
		return
	}

	if event.IsCheckoutCompleted() {
		// Failures here must not bounce the webhook: the processor would
		// retry and (absent an idempotency key) double-apply on recovery.
		if err := h.reconciler.ApplyCheckout(c.Request.Context(), event.Data.Object); err != nil {
			metrics.WebhookEvents.WithLabelValues(event.Type, "failed").Inc()
			log.Error().Err(err).Str("event_id", event.ID).Msg("checkout apply failed, webhook acknowledged anyway")
		} else {
			metrics.WebhookEvents.WithLabelValues(event.Type, "applied").Inc()
		}
	} else {
		metrics.WebhookEvents.WithLabelValues(event.Type, "skipped").Inc()
	}

	c.JSON(http.StatusOK, models.WebhookResponse{Status: "success"})
}
