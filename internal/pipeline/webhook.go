package pipeline

import (
	"context"
	"encoding/json"
	"net/http"

	logger "github.com/stacklok/nc-bridge/internal/logging"
	"github.com/stacklok/nc-bridge/internal/storage"
)

// nextcloudWebhookPayload is the subset of the Nextcloud webhook body the
// receiver cares about: which registered webhook fired and what event
// name triggered it.
type nextcloudWebhookPayload struct {
	WebhookID string `json:"webhookId"`
	Event     struct {
		Class string `json:"class"`
	} `json:"event"`
}

// indexingPresetID is the preset under which the admin web registers the
// webhooks that should wake the scanner (file create/update/delete).
const indexingPresetID = "indexing"

// WebhookWaker is implemented by Pipeline; narrowed so the HTTP handler
// doesn't need the full Pipeline surface.
type WebhookWaker interface {
	WakeScanner()
}

// WebhookHandler receives Nextcloud's webhook callbacks and, for any
// event matching a registration made under the indexing preset, wakes
// the scanner instead of waiting for the next periodic scan. This closes
// a gap left open by an otherwise purely time-driven scanner: a file
// change should be picked up promptly, not only on the next tick.
type WebhookHandler struct {
	store *storage.Store
	pipe  WebhookWaker
}

// NewWebhookHandler builds a WebhookHandler.
func NewWebhookHandler(store *storage.Store, pipe WebhookWaker) *WebhookHandler {
	return &WebhookHandler{store: store, pipe: pipe}
}

// ServeHTTP implements http.Handler for POST /webhooks/nextcloud.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload nextcloudWebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if payload.WebhookID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if h.matchesIndexingPreset(r.Context(), payload.WebhookID) {
		h.pipe.WakeScanner()
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *WebhookHandler) matchesIndexingPreset(ctx context.Context, webhookID string) bool {
	registered, err := h.store.GetWebhooksByPreset(ctx, indexingPresetID)
	if err != nil {
		logger.Warnf("failed to look up webhook registrations: %v", err)
		return false
	}
	for _, w := range registered {
		if w.WebhookID == webhookID {
			return true
		}
	}
	return false
}
