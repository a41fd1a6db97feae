package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/example/rental-engine/internal/integration/carrier"
)

// CarrierWebhook ingests tracking updates. It always answers 200 once the
// payload has been read, even when internal processing fails; anything else
// puts the carrier into a redelivery storm.
func (h *Handlers) CarrierWebhook(w http.ResponseWriter, r *http.Request) {
	var payload carrier.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Printf("[API] Malformed carrier webhook: %v", err)
		respondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if err := h.orchestrator.IngestTrackingEvent(r.Context(), payload); err != nil {
		log.Printf("[API] Failed to process carrier webhook for shipment %s: %v", payload.Result.ShipmentID, err)
		respondJSON(w, http.StatusOK, map[string]string{"status": "error_recorded"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
