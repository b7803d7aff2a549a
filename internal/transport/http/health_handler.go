package http

import (
	"net/http"

	"github.com/go-chi/render"

	"remcli/internal/services"
)

// HealthHandler serves the health, stats and version endpoints. All
// three delegate straight to the health service; request logging is the
// middleware chain's job.
type HealthHandler struct {
	service *services.HealthService
}

// NewHealthHandler creates the handler for the health endpoint group.
func NewHealthHandler(service *services.HealthService) *HealthHandler {
	return &HealthHandler{service: service}
}

// HealthCheck reports overall service health. GET /api/health.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.HealthCheck(r.Context()))
}

// Stats reports directory and connection statistics. GET /api/health/stats.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.SystemStats(r.Context()))
}

// Version reports build and version facts. GET /api/version.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Version())
}
