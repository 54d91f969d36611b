package api

import (
	"net/http"
	"time"

	"github.com/sourcerer-app/sourcerer/internal/build"
	"github.com/sourcerer-app/sourcerer/internal/frontend/metrics"
)

type healthStatus struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    int64  `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, healthStatus{
		Status:    "healthy",
		Version:   build.Version,
		Uptime:    metrics.GetUptime(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
