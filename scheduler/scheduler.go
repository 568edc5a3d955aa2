// Package scheduler refreshes the in-memory reference catalogs from the
// clinic records API. Refreshes run twice daily on a cron schedule, the
// swap into the catalog container is atomic, and a monitor goroutine warns
// when the catalog goes stale.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/clinicware/prescriber-api/clinicapi"
	"github.com/clinicware/prescriber-api/interfaces"
	"github.com/clinicware/prescriber-api/logging"
	"github.com/clinicware/prescriber-api/metrics"
)

// refreshTimeout bounds one full catalog pull from the upstream API.
const refreshTimeout = 2 * time.Minute

// Compile-time check to ensure Scheduler implements the Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// Scheduler pulls catalog refreshes on a fixed schedule.
type Scheduler struct {
	catalog   interfaces.CatalogStore
	source    interfaces.CatalogSource
	scheduler *gocron.Scheduler

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewScheduler creates a scheduler refreshing the given catalog store from
// the given source.
func NewScheduler(catalog interfaces.CatalogStore, source interfaces.CatalogSource) *Scheduler {
	return &Scheduler{
		catalog:   catalog,
		source:    source,
		scheduler: gocron.NewScheduler(time.Local),
		stopCh:    make(chan struct{}),
	}
}

// Start loads the catalogs once, schedules the twice-daily refresh and
// starts the staleness monitor. A failed initial load is not fatal: the
// service comes up unhealthy and a retry loop keeps trying until the first
// successful pull.
func (s *Scheduler) Start() error {
	if err := s.refresh(); err != nil {
		logging.Warn("Initial catalog load failed, retrying in background", "error", err)
		s.startInitialRetry()
	}

	// Refresh at 06:00 and 18:00 daily.
	_, err := s.scheduler.Every(1).Days().At("06:00;18:00").Do(func() {
		if err := s.refresh(); err != nil {
			logging.Error("Catalog refresh failed", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule catalog refreshes", "error", err)
		return fmt.Errorf("failed to schedule catalog refreshes: %w", err)
	}

	s.scheduler.StartAsync()
	s.startStalenessMonitor()

	return nil
}

// Stop stops the cron scheduler and the background goroutines.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// refresh pulls both catalogs and swaps them into the store.
func (s *Scheduler) refresh() error {
	if !s.catalog.BeginUpdate() {
		logging.Info("Catalog refresh already in progress, skipping")
		return nil
	}
	defer s.catalog.EndUpdate()

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	medicines, err := s.source.ListMedicines(ctx)
	if err != nil {
		logging.Error("Failed to fetch medicine catalog", "error", err)
		return fmt.Errorf("fetch medicine catalog: %w", err)
	}

	categories, err := s.source.ListComplaintCategories(ctx)
	if err != nil {
		logging.Error("Failed to fetch complaint categories", "error", err)
		return fmt.Errorf("fetch complaint categories: %w", err)
	}

	reportCatalogQuality(medicines, categories)

	s.catalog.UpdateData(medicines, categories)
	metrics.CatalogEntries.WithLabelValues("medicines").Set(float64(len(medicines)))
	metrics.CatalogEntries.WithLabelValues("complaint_categories").Set(float64(len(categories)))

	logging.Info("Catalog refresh completed",
		"duration", time.Since(start).String(),
		"medicines", len(medicines),
		"complaint_categories", len(categories),
	)
	return nil
}

// startInitialRetry keeps trying the first load on a short interval until
// the catalog holds data.
func (s *Scheduler) startInitialRetry() {
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				if !s.catalog.GetLastUpdated().IsZero() {
					return
				}
				if err := s.refresh(); err != nil {
					logging.Warn("Catalog still unavailable", "error", err)
				}
			}
		}
	}()
}

// startStalenessMonitor warns when the catalog misses both daily refreshes.
func (s *Scheduler) startStalenessMonitor() {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				lastUpdate := s.catalog.GetLastUpdated()
				if !lastUpdate.IsZero() && time.Since(lastUpdate) > 25*time.Hour {
					logging.Warn("Catalog hasn't refreshed in over 25 hours", "last_update", lastUpdate)
				}
			}
		}
	}()
}

// reportCatalogQuality logs catalog entries that degrade the composition
// experience: a medicine without types or strengths gives autofill nothing
// to fill, a category without detail lines cannot be selected from.
func reportCatalogQuality(medicines []clinicapi.Medicine, categories []clinicapi.ComplaintCategory) {
	var bareMedicines []string
	for _, m := range medicines {
		if len(m.Types) == 0 && len(m.CommonStrengths) == 0 {
			bareMedicines = append(bareMedicines, m.Name)
		}
	}
	if len(bareMedicines) > 0 {
		logging.Warn("Medicines without types or strengths",
			"count", len(bareMedicines),
			"names", bareMedicines,
		)
	}

	var emptyCategories []string
	for _, c := range categories {
		if len(c.Details) == 0 {
			emptyCategories = append(emptyCategories, c.Name)
		}
	}
	if len(emptyCategories) > 0 {
		logging.Warn("Complaint categories without detail lines",
			"count", len(emptyCategories),
			"names", emptyCategories,
		)
	}
}
