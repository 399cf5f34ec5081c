package adminweb

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// WebhookRegistrar is the external collaborator that actually talks to
// Nextcloud's webhook-registration OCS API; adminweb only tracks which
// presets are enabled locally and delegates the upstream call here.
type WebhookRegistrar interface {
	RegisterWebhook(ctx context.Context, presetID string) (webhookID string, err error)
	UnregisterWebhook(ctx context.Context, webhookID string) error
}

// WebhookPane lists every registration currently tracked, grouped by
// preset, for `GET /app/webhooks`.
func (a *Web) WebhookPane(w http.ResponseWriter, r *http.Request) {
	registered, err := a.store.ListWebhooks(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	byPreset := map[string][]string{}
	for _, reg := range registered {
		byPreset[reg.PresetID] = append(byPreset[reg.PresetID], reg.WebhookID)
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": byPreset})
}

// EnablePreset serves `POST /app/webhooks/enable/{preset_id}`: registers
// a webhook upstream for the named preset and records it.
func (a *Web) EnablePreset(registrar WebhookRegistrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		presetID := chi.URLParam(r, "preset_id")
		if presetID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "preset_id is required"})
			return
		}

		webhookID, err := registrar.RegisterWebhook(r.Context(), presetID)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}

		if err := a.store.PutWebhook(r.Context(), webhookID, presetID); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"preset_id": presetID, "webhook_id": webhookID, "status": "enabled"})
	}
}

// DisablePreset serves `POST /app/webhooks/disable/{preset_id}`:
// unregisters every webhook tracked under the preset and clears them.
func (a *Web) DisablePreset(registrar WebhookRegistrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		presetID := chi.URLParam(r, "preset_id")
		if presetID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "preset_id is required"})
			return
		}

		registered, err := a.store.GetWebhooksByPreset(r.Context(), presetID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		for _, reg := range registered {
			if err := registrar.UnregisterWebhook(r.Context(), reg.WebhookID); err != nil {
				writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
				return
			}
		}

		count, err := a.store.ClearPreset(r.Context(), presetID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"preset_id": presetID, "status": "disabled", "removed": count})
	}
}
