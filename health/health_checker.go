// Package health reports catalog freshness for the prescriber API.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/clinicware/prescriber-api/interfaces"
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	catalog interfaces.CatalogStore
}

// NewHealthChecker creates a health checker over the catalog store
func NewHealthChecker(catalog interfaces.CatalogStore) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		catalog: catalog,
	}
}

// HealthCheck returns the catalog health for the /health endpoint. The
// service can still compose prescriptions with a stale catalog, so age
// only degrades, it does not take the service down; an empty catalog does.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	medicines := h.catalog.GetMedicines()
	categories := h.catalog.GetCategories()
	lastUpdate := h.catalog.GetLastUpdated()
	isUpdating := h.catalog.IsUpdating()

	catalogAge := time.Since(lastUpdate)

	switch {
	case len(medicines) == 0 || len(categories) == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case catalogAge > 48*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case catalogAge > 24*time.Hour:
		status = "degraded"
		httpStatus = http.StatusOK

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"last_update":          lastUpdate.Format(time.RFC3339),
		"catalog_age_hours":    math.Round(catalogAge.Hours()*10) / 10,
		"medicines":            len(medicines),
		"complaint_categories": len(categories),
		"is_updating":          isUpdating,
		"next_update":          h.CalculateNextUpdate().Format(time.RFC3339),
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled catalog refresh time.
// Refreshes run at 6:00 and 18:00 local time.
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	now := time.Now()

	sixAM := time.Date(now.Year(), now.Month(), now.Day(), 6, 0, 0, 0, now.Location())
	sixPM := time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, now.Location())

	if now.Before(sixAM) {
		return sixAM
	}

	if now.Before(sixPM) {
		return sixPM
	}

	return sixAM.AddDate(0, 0, 1)
}
