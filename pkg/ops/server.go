// Package ops exposes the worker's operational control surface: health and
// readiness probes, metrics, heartbeat visibility, and the manual
// force-release-lock recovery action.
package ops

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prospexa-ai/platform/pkg/common/logger"
	"github.com/prospexa-ai/platform/pkg/common/models"
	"github.com/prospexa-ai/platform/pkg/observability/metrics"
)

// HeartbeatStore is the slice of the repository the control surface needs.
// *outreach.Repository satisfies it.
type HeartbeatStore interface {
	ListHeartbeats(ctx context.Context) ([]models.WorkerHeartbeat, error)
	ForceReleaseLock(ctx context.Context) (int64, error)
}

type handler struct {
	store    HeartbeatStore
	workerID string
}

func NewRouter(store HeartbeatStore, workerID string) *mux.Router {
	h := &handler{store: store, workerID: workerID}

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1/ops").Subrouter()
	api.HandleFunc("/workers", h.listWorkers).Methods(http.MethodGet)
	api.HandleFunc("/lock/release", h.forceReleaseLock).Methods(http.MethodPost)

	return router
}

func (h *handler) listWorkers(w http.ResponseWriter, r *http.Request) {
	beats, err := h.store.ListHeartbeats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list workers")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"worker_id": h.workerID,
		"workers":   beats,
	})
}

// forceReleaseLock is the operator recovery hatch after a catastrophic
// failure: it strips the holder flag from every worker so the next cycle
// re-acquires cleanly.
func (h *handler) forceReleaseLock(w http.ResponseWriter, r *http.Request) {
	released, err := h.store.ForceReleaseLock(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to release lock")
		return
	}
	logger.WithField("released", released).Warn("cycle lock force-released by operator")
	writeJSON(w, http.StatusOK, map[string]interface{}{"released": released})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
