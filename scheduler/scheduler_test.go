package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clinicware/prescriber-api/catalog"
	"github.com/clinicware/prescriber-api/clinicapi"
)

// fakeSource serves canned catalogs and can be switched to fail.
type fakeSource struct {
	medicines  []clinicapi.Medicine
	categories []clinicapi.ComplaintCategory
	fail       atomic.Bool
	calls      atomic.Int32
}

func (f *fakeSource) ListMedicines(ctx context.Context) ([]clinicapi.Medicine, error) {
	f.calls.Add(1)
	if f.fail.Load() {
		return nil, errors.New("upstream unavailable")
	}
	return f.medicines, nil
}

func (f *fakeSource) ListComplaintCategories(ctx context.Context) ([]clinicapi.ComplaintCategory, error) {
	if f.fail.Load() {
		return nil, errors.New("upstream unavailable")
	}
	return f.categories, nil
}

func testSource() *fakeSource {
	return &fakeSource{
		medicines: []clinicapi.Medicine{
			{Name: "Napa", Types: []string{"Tablet"}, CommonStrengths: []string{"500mg"}},
			{Name: "Seclo", Types: []string{"Capsule"}, CommonStrengths: []string{"20mg"}},
		},
		categories: []clinicapi.ComplaintCategory{
			{ID: "c1", Name: "Fever", Details: []string{"High temperature", "Chills"}},
		},
	}
}

func TestRefreshPopulatesCatalog(t *testing.T) {
	container := catalog.NewContainer()
	source := testSource()
	s := NewScheduler(container, source)

	if err := s.refresh(); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	if got := len(container.GetMedicines()); got != 2 {
		t.Errorf("expected 2 medicines in the catalog, got %d", got)
	}
	if got := len(container.GetCategories()); got != 1 {
		t.Errorf("expected 1 category in the catalog, got %d", got)
	}
	if container.GetLastUpdated().IsZero() {
		t.Error("expected last-updated timestamp to be set")
	}

	if _, ok := container.GetMedicinesMap()["napa"]; !ok {
		t.Error("expected the medicines map to be keyed by lowercase name")
	}
}

func TestRefreshFailureLeavesCatalogUntouched(t *testing.T) {
	container := catalog.NewContainer()
	source := testSource()
	s := NewScheduler(container, source)

	if err := s.refresh(); err != nil {
		t.Fatalf("seed refresh failed: %v", err)
	}
	seededAt := container.GetLastUpdated()

	source.fail.Store(true)
	if err := s.refresh(); err == nil {
		t.Fatal("expected refresh to fail with a failing source")
	}

	if got := len(container.GetMedicines()); got != 2 {
		t.Errorf("failed refresh should not clear the catalog, got %d medicines", got)
	}
	if !container.GetLastUpdated().Equal(seededAt) {
		t.Error("failed refresh should not advance the last-updated timestamp")
	}
	if container.IsUpdating() {
		t.Error("updating flag should be released after a failed refresh")
	}
}

func TestRefreshSkipsWhenUpdateInProgress(t *testing.T) {
	container := catalog.NewContainer()
	source := testSource()
	s := NewScheduler(container, source)

	if !container.BeginUpdate() {
		t.Fatal("could not take the update flag")
	}
	defer container.EndUpdate()

	before := source.calls.Load()
	if err := s.refresh(); err != nil {
		t.Fatalf("refresh should be a silent no-op while updating, got %v", err)
	}
	if source.calls.Load() != before {
		t.Error("refresh should not hit the source while an update is in progress")
	}
}

func TestStartSurvivesFailingSource(t *testing.T) {
	container := catalog.NewContainer()
	source := testSource()
	source.fail.Store(true)

	s := NewScheduler(container, source)
	if err := s.Start(); err != nil {
		t.Fatalf("Start should not fail when the upstream is down, got %v", err)
	}
	defer s.Stop()

	if !container.GetLastUpdated().IsZero() {
		t.Error("catalog should remain empty until the upstream comes back")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	container := catalog.NewContainer()
	s := NewScheduler(container, testSource())

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	s.Stop()
	s.Stop()

	// Give the background goroutines a moment to observe the stop.
	time.Sleep(10 * time.Millisecond)
}
