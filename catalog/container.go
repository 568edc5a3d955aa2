// Package catalog provides thread-safe in-memory storage for the read-only
// reference data the composition workflow depends on: the medicine catalog
// and the complaint categories. Data is held behind atomic pointers so a
// refresh swaps complete snapshots without blocking readers.
package catalog

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/clinicware/prescriber-api/clinicapi"
	"github.com/clinicware/prescriber-api/interfaces"
	"github.com/clinicware/prescriber-api/logging"
)

// Compile-time check to ensure Container implements CatalogStore
var _ interfaces.CatalogStore = (*Container)(nil)

// Container holds the catalogs with atomic pointers for zero-downtime updates
type Container struct {
	medicines     atomic.Value // []clinicapi.Medicine
	medicinesMap  atomic.Value // map[string]clinicapi.Medicine, lowercase name key
	categories    atomic.Value // []clinicapi.ComplaintCategory
	categoriesMap atomic.Value // map[string]clinicapi.ComplaintCategory, id key
	lastUpdated   atomic.Value // time.Time
	updating      atomic.Bool
}

// NewContainer creates a new Container with empty catalogs
func NewContainer() *Container {
	c := &Container{}
	c.medicines.Store(make([]clinicapi.Medicine, 0))
	c.medicinesMap.Store(make(map[string]clinicapi.Medicine))
	c.categories.Store(make([]clinicapi.ComplaintCategory, 0))
	c.categoriesMap.Store(make(map[string]clinicapi.ComplaintCategory))
	c.lastUpdated.Store(time.Time{})
	return c
}

// Thread-safe getters with type check

// GetMedicines returns the medicine catalog
func (c *Container) GetMedicines() []clinicapi.Medicine {
	if v := c.medicines.Load(); v != nil {
		if medicines, ok := v.([]clinicapi.Medicine); ok {
			return medicines
		}
	}

	logging.Warn("Medicine catalog is empty or invalid")
	return []clinicapi.Medicine{}
}

// GetMedicinesMap returns the medicine catalog keyed by lowercase name
func (c *Container) GetMedicinesMap() map[string]clinicapi.Medicine {
	if v := c.medicinesMap.Load(); v != nil {
		if medicinesMap, ok := v.(map[string]clinicapi.Medicine); ok {
			return medicinesMap
		}
	}

	logging.Warn("Medicine catalog map is empty or invalid")
	return make(map[string]clinicapi.Medicine)
}

// GetCategories returns the complaint category catalog
func (c *Container) GetCategories() []clinicapi.ComplaintCategory {
	if v := c.categories.Load(); v != nil {
		if categories, ok := v.([]clinicapi.ComplaintCategory); ok {
			return categories
		}
	}

	logging.Warn("Complaint category catalog is empty or invalid")
	return []clinicapi.ComplaintCategory{}
}

// GetCategoriesMap returns the complaint categories keyed by id
func (c *Container) GetCategoriesMap() map[string]clinicapi.ComplaintCategory {
	if v := c.categoriesMap.Load(); v != nil {
		if categoriesMap, ok := v.(map[string]clinicapi.ComplaintCategory); ok {
			return categoriesMap
		}
	}

	logging.Warn("Complaint category map is empty or invalid")
	return make(map[string]clinicapi.ComplaintCategory)
}

// GetLastUpdated returns the timestamp of the last catalog refresh
func (c *Container) GetLastUpdated() time.Time {
	if v := c.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true if a catalog refresh is currently in progress
func (c *Container) IsUpdating() bool {
	return c.updating.Load()
}

// UpdateData atomically swaps both catalogs and their lookup maps
func (c *Container) UpdateData(medicines []clinicapi.Medicine, categories []clinicapi.ComplaintCategory) {
	medicinesMap := make(map[string]clinicapi.Medicine, len(medicines))
	for i := range medicines {
		medicinesMap[strings.ToLower(medicines[i].Name)] = medicines[i]
	}
	categoriesMap := make(map[string]clinicapi.ComplaintCategory, len(categories))
	for i := range categories {
		categoriesMap[categories[i].ID] = categories[i]
	}

	// Atomic swap (zero downtime replacement)
	c.medicines.Store(medicines)
	c.medicinesMap.Store(medicinesMap)
	c.categories.Store(categories)
	c.categoriesMap.Store(categoriesMap)
	c.lastUpdated.Store(time.Now())
}

// BeginUpdate marks the start of a catalog refresh.
// Returns true if the refresh can proceed, false if another is in progress
func (c *Container) BeginUpdate() bool {
	return c.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a catalog refresh
func (c *Container) EndUpdate() {
	c.updating.Store(false)
}

// Snapshot returns an immutable view of both catalogs for one workflow
// session. The slices are the container's current values; refreshes swap
// pointers and never mutate them in place, so a session keeps reading the
// same data for its whole life.
func (c *Container) Snapshot() Snapshot {
	return Snapshot{
		Medicines:  c.GetMedicines(),
		Categories: c.GetCategories(),
		TakenAt:    time.Now(),
	}
}

// Snapshot is the per-session immutable view of the catalogs.
type Snapshot struct {
	Medicines  []clinicapi.Medicine
	Categories []clinicapi.ComplaintCategory
	TakenAt    time.Time
}

// FindMedicine looks up a catalog entry by exact name, case-insensitive.
func (s Snapshot) FindMedicine(name string) (clinicapi.Medicine, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for i := range s.Medicines {
		if strings.ToLower(s.Medicines[i].Name) == needle {
			return s.Medicines[i], true
		}
	}
	return clinicapi.Medicine{}, false
}

// FindCategory looks up a complaint category by id.
func (s Snapshot) FindCategory(id string) (clinicapi.ComplaintCategory, bool) {
	for i := range s.Categories {
		if s.Categories[i].ID == id {
			return s.Categories[i], true
		}
	}
	return clinicapi.ComplaintCategory{}, false
}

// FindCategoryByName looks up a complaint category by exact name,
// case-insensitive.
func (s Snapshot) FindCategoryByName(name string) (clinicapi.ComplaintCategory, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for i := range s.Categories {
		if strings.ToLower(s.Categories[i].Name) == needle {
			return s.Categories[i], true
		}
	}
	return clinicapi.ComplaintCategory{}, false
}

// SearchCategories returns up to limit category names whose lowercase name
// contains the query as a substring. An empty query matches nothing.
func (s Snapshot) SearchCategories(query string, limit int) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var names []string
	for i := range s.Categories {
		if strings.Contains(strings.ToLower(s.Categories[i].Name), q) {
			names = append(names, s.Categories[i].Name)
			if limit > 0 && len(names) == limit {
				break
			}
		}
	}
	return names
}
