package endpoints

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/doodlesbykumbi/tenant-settings/pkg/server"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server/store"
)

// StatusResponse represents the response from /status
type StatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RegisterStatusEndpoints registers the status, info and metrics endpoints
func RegisterStatusEndpoints(s *server.Server) {
	// GET / - Service info (no tenant required)
	s.Router.HandleFunc("/", handleInfo()).Methods("GET")

	// GET /status - Database connectivity
	s.Router.HandleFunc("/status", handleStatus(s.HealthStore)).Methods("GET")

	// GET /metrics - Prometheus exposition
	s.Router.Handle("/metrics", metricsHandler(s.Gatherer)).Methods("GET")
}

func handleInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := os.Getenv("SETTINGS_VERSION_DISPLAY")
		if version == "" {
			version = "0.1.0"
		}
		respondWithJSON(w, http.StatusOK, map[string]string{
			"service": "tenant-settings",
			"version": version,
		})
	}
}

func handleStatus(healthStore store.HealthStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := healthStore.CheckConnectivity(r.Context()); err != nil {
			respondWithJSON(w, http.StatusServiceUnavailable, StatusResponse{
				Status: "error",
				Error:  "database connectivity check failed",
			})
			return
		}
		respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
	}
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
