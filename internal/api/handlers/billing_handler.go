package handlers

import (
	"io"
	"net/http"

	"filedrop/internal/api/middleware"
	"filedrop/internal/engine/billing"
	"filedrop/internal/pkg/errors"
)

// maxWebhookBody bounds an event payload; larger bodies are refused rather than truncated.
const maxWebhookBody = 1 << 20

type BillingHandler struct {
	webhooks *billing.Handler
	sessions *billing.Sessions
}

func NewBillingHandler(webhooks *billing.Handler, sessions *billing.Sessions) *BillingHandler {
	return &BillingHandler{webhooks: webhooks, sessions: sessions}
}

func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	url, err := h.sessions.Checkout(r.Context(), middleware.ProfileFrom(r.Context()))
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *BillingHandler) Portal(w http.ResponseWriter, r *http.Request) {
	url, err := h.sessions.Portal(r.Context(), middleware.ProfileFrom(r.Context()))
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			errors.WriteError(w, http.StatusRequestEntityTooLarge, errors.ErrCodeInvalidInput, "Payload too large", nil)
			return
		}
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Failed to read body", nil)
		return
	}

	if err := h.webhooks.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		var sigErr *errors.InvalidSignatureError
		if errors.As(err, &sigErr) {
			errors.WriteDomainError(w, err)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Webhook processing failed", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
