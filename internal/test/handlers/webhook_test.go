package handlers_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"nastia-backend/internal/handlers"
	"nastia-backend/internal/payments"
)

const webhookSecret = "whsec_test"

type fakeApplier struct {
	err      error
	sessions []payments.CheckoutSession
}

func (f *fakeApplier) ApplyCheckout(_ context.Context, session payments.CheckoutSession) error {
	f.sessions = append(f.sessions, session)
	return f.err
}

func webhookRouter(applier *fakeApplier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/webhook", handlers.NewWebhookHandler(webhookSecret, applier).HandleWebhook)
	return router
}

func postWebhook(router *gin.Engine, payload []byte, signature string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", "/webhook", bytes.NewBuffer(payload))
	req.Header.Set("Stripe-Signature", signature)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleWebhook_CheckoutApplied(t *testing.T) {
	applier := &fakeApplier{}
	router := webhookRouter(applier)
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","client_reference_id":"user-1","amount_total":6900,"mode":"payment"}}}`)

	w := postWebhook(router, payload, payments.SignPayload(payload, webhookSecret, time.Now()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "success")
	assert.Len(t, applier.sessions, 1)
	assert.Equal(t, "user-1", applier.sessions[0].ClientReferenceID)
	assert.Equal(t, 6900, applier.sessions[0].AmountTotal)
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	applier := &fakeApplier{}
	router := webhookRouter(applier)
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`)

	w := postWebhook(router, payload, "t=123,v1=deadbeef")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid signature")
	assert.Empty(t, applier.sessions)
}

func TestHandleWebhook_MissingSignature(t *testing.T) {
	router := webhookRouter(&fakeApplier{})

	w := postWebhook(router, []byte(`{}`), "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleWebhook_OtherEventTypesSkipped(t *testing.T) {
	applier := &fakeApplier{}
	router := webhookRouter(applier)
	payload := []byte(`{"id":"evt_2","type":"invoice.paid","data":{"object":{}}}`)

	w := postWebhook(router, payload, payments.SignPayload(payload, webhookSecret, time.Now()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, applier.sessions)
}

// A persistence failure is logged but still acknowledged, so the processor
// does not keep retrying a checkout that would double-apply on recovery.
func TestHandleWebhook_ApplyFailureStillAcknowledged(t *testing.T) {
	applier := &fakeApplier{err: assert.AnError}
	router := webhookRouter(applier)
	payload := []byte(`{"id":"evt_3","type":"checkout.session.completed","data":{"object":{"id":"cs_3","client_reference_id":"user-1","amount_total":6900}}}`)

	w := postWebhook(router, payload, payments.SignPayload(payload, webhookSecret, time.Now()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "success")
	assert.Len(t, applier.sessions, 1)
}
