// Package interfaces defines core abstractions for the prescriber API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"time"

	"github.com/clinicware/prescriber-api/clinicapi"
)

// CatalogStore defines the contract for the in-memory reference catalogs.
// It provides thread-safe access to the medicine and complaint category
// data with atomic swaps for zero-downtime refreshes.
type CatalogStore interface {
	GetMedicines() []clinicapi.Medicine
	GetMedicinesMap() map[string]clinicapi.Medicine
	GetCategories() []clinicapi.ComplaintCategory
	GetCategoriesMap() map[string]clinicapi.ComplaintCategory
	GetLastUpdated() time.Time
	IsUpdating() bool

	UpdateData(medicines []clinicapi.Medicine, categories []clinicapi.ComplaintCategory)
	BeginUpdate() bool
	EndUpdate()
}

// CatalogSource is the slice of the clinic API the refresh job needs.
type CatalogSource interface {
	ListMedicines(ctx context.Context) ([]clinicapi.Medicine, error)
	ListComplaintCategories(ctx context.Context) ([]clinicapi.ComplaintCategory, error)
}

// PrescriptionStore is the slice of the clinic API the assembler writes
// through. The remote API owns all persistence; this service never stores
// prescriptions itself.
type PrescriptionStore interface {
	ListPrescriptions(ctx context.Context) ([]clinicapi.Prescription, error)
	GetPrescription(ctx context.Context, id string) (clinicapi.Prescription, error)
	CreatePrescription(ctx context.Context, rx clinicapi.Prescription) (clinicapi.Prescription, error)
	UpdatePrescription(ctx context.Context, id string, rx clinicapi.Prescription) error
	ListPatients(ctx context.Context) ([]clinicapi.Patient, error)
	CreatePatient(ctx context.Context, p clinicapi.Patient) (clinicapi.Patient, error)
}

// ClinicDirectory is the read-side slice of the clinic API the HTTP
// surface passes through: report listings for the attach step and the
// letterhead settings.
type ClinicDirectory interface {
	ListReports(ctx context.Context, patientID string) ([]clinicapi.Report, error)
	GetSettings(ctx context.Context) (clinicapi.Settings, error)
}

// InputValidator guards every user-supplied value before it reaches the
// composition engine or the upstream API.
type InputValidator interface {
	ValidateQuery(input string) error
	ValidateObjectID(input string) (string, error)
	ValidatePatient(p *clinicapi.Patient) error
	ValidateRosterPatient(p *clinicapi.Patient) error
	ValidateMedicineLine(line *clinicapi.MedicineLine) error
}

// Scheduler defines the contract for the catalog refresh job and its
// staleness monitoring.
type Scheduler interface {
	Start() error
	Stop()
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns current system health status
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled catalog refresh time
	CalculateNextUpdate() time.Time
}
