package httpapi

import (
	"net/http"

	"jobpulse-engine/internal/logging"
)

type DashboardHandler struct {
	Dashboard Dashboard
	Log       *logging.Logger
}

func (h DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Dashboard.ComputeSnapshot(r.Context())
	if err != nil {
		writeErr(w, r, h.Log, err)
		return
	}
	writeJSON(w, snap)
}
