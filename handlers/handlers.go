// Package handlers provides HTTP request handlers for the prescriber API
// endpoints: suggestion lookups, prescription composition, history and
// exports, patient management and the printable sheet.
package handlers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clinicware/prescriber-api/catalog"
	"github.com/clinicware/prescriber-api/clinicapi"
	"github.com/clinicware/prescriber-api/interfaces"
	"github.com/clinicware/prescriber-api/logging"
	"github.com/clinicware/prescriber-api/metrics"
	"github.com/clinicware/prescriber-api/prescribing"
	"github.com/clinicware/prescriber-api/printview"
)

var suggestionFields = map[string]bool{
	prescribing.FieldName:     true,
	prescribing.FieldType:     true,
	prescribing.FieldStrength: true,
	prescribing.FieldDosage:   true,
	prescribing.FieldAdvice:   true,
}

// Handler carries the dependencies the HTTP surface needs.
type Handler struct {
	catalog   *catalog.Container
	store     interfaces.PrescriptionStore
	directory interfaces.ClinicDirectory
	validator interfaces.InputValidator
	assembler *prescribing.Assembler
	renderer  *printview.Renderer
	checker   interfaces.HealthChecker
}

// New creates a handler with injected dependencies.
func New(
	cat *catalog.Container,
	store interfaces.PrescriptionStore,
	directory interfaces.ClinicDirectory,
	validator interfaces.InputValidator,
	assembler *prescribing.Assembler,
	renderer *printview.Renderer,
	checker interfaces.HealthChecker,
) *Handler {
	return &Handler{
		catalog:   cat,
		store:     store,
		directory: directory,
		validator: validator,
		assembler: assembler,
		renderer:  renderer,
		checker:   checker,
	}
}

// respondUpstreamError maps composition and upstream failures onto HTTP
// statuses: draft precondition failures are the caller's fault, a 404 from
// the records API stays a 404, anything else from upstream is a bad gateway.
func respondUpstreamError(w http.ResponseWriter, err error) {
	var vErr *prescribing.ValidationError
	if errors.As(err, &vErr) {
		RespondWithError(w, http.StatusBadRequest, vErr.Error())
		return
	}

	var apiErr *clinicapi.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusNotFound {
			RespondWithError(w, http.StatusNotFound, apiErr.Message)
			return
		}
		logging.Error("Upstream clinic API error", "status", apiErr.StatusCode, "message", apiErr.Message)
		RespondWithError(w, http.StatusBadGateway, "clinic records API error")
		return
	}

	logging.Error("Request failed", "error", err)
	RespondWithError(w, http.StatusInternalServerError, "internal error")
}

// Suggestions returns autocomplete candidates for one medicine field.
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	field := chi.URLParam(r, "field")
	if !suggestionFields[field] {
		RespondWithError(w, http.StatusBadRequest, "unknown suggestion field: "+field)
		return
	}

	// An empty partial is the just-focused state: the unfiltered pool.
	query := r.URL.Query().Get("q")
	if query != "" {
		if err := h.validator.ValidateQuery(query); err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	engine := prescribing.NewEngine(h.catalog.Snapshot())
	items := engine.Suggestions(field, query)
	if items == nil {
		items = []string{}
	}

	RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"field":       field,
		"suggestions": items,
	})
}

// Categories serves the complaint category catalog. With a query it returns
// the matching category names for the complaint search box, without one the
// full catalog for the selection page.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		RespondWithJSON(w, http.StatusOK, h.catalog.GetCategories())
		return
	}

	if err := h.validator.ValidateQuery(query); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	names := h.catalog.Snapshot().SearchCategories(query, 8)
	if names == nil {
		names = []string{}
	}
	RespondWithJSON(w, http.StatusOK, names)
}

// CreatePrescription assembles a draft into a numbered document and saves
// it through the records API.
func (h *Handler) CreatePrescription(w http.ResponseWriter, r *http.Request) {
	var draft prescribing.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for i := range draft.Medicines {
		if err := h.validator.ValidateMedicineLine(&draft.Medicines[i]); err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	rx, err := h.assembler.Save(r.Context(), draft)
	if err != nil {
		respondUpstreamError(w, err)
		return
	}

	metrics.PrescriptionsComposedTotal.WithLabelValues("created").Inc()
	RespondWithJSON(w, http.StatusCreated, rx)
}

// UpdatePrescription overwrites the clinical content of a saved document.
func (h *Handler) UpdatePrescription(w http.ResponseWriter, r *http.Request) {
	id, err := h.validator.ValidateObjectID(chi.URLParam(r, "id"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var draft prescribing.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for i := range draft.Medicines {
		if err := h.validator.ValidateMedicineLine(&draft.Medicines[i]); err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	rx, err := h.assembler.Update(r.Context(), id, draft)
	if err != nil {
		respondUpstreamError(w, err)
		return
	}

	metrics.PrescriptionsComposedTotal.WithLabelValues("updated").Inc()
	RespondWithJSON(w, http.StatusOK, rx)
}

// GetPrescription returns one saved document, used to seed edit mode.
func (h *Handler) GetPrescription(w http.ResponseWriter, r *http.Request) {
	id, err := h.validator.ValidateObjectID(chi.URLParam(r, "id"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rx, err := h.store.GetPrescription(r.Context(), id)
	if err != nil {
		respondUpstreamError(w, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, rx)
}

// PrintPrescription renders the printable A4 sheet for a saved document.
func (h *Handler) PrintPrescription(w http.ResponseWriter, r *http.Request) {
	id, err := h.validator.ValidateObjectID(chi.URLParam(r, "id"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(r.Context(), &buf, id); err != nil {
		respondUpstreamError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// historyFilter narrows the prescription list by patient and date range.
type historyFilter struct {
	patientID string
	from      time.Time
	to        time.Time
}

func parseHistoryFilter(r *http.Request) (historyFilter, error) {
	var f historyFilter
	q := r.URL.Query()
	f.patientID = strings.TrimSpace(q.Get("patientId"))

	if raw := q.Get("from"); raw != "" {
		t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return f, fmt.Errorf("invalid from date: %s", raw)
		}
		f.from = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return f, fmt.Errorf("invalid to date: %s", raw)
		}
		// Inclusive end of day.
		f.to = t.AddDate(0, 0, 1)
	}
	if !f.from.IsZero() && !f.to.IsZero() && f.to.Before(f.from) {
		return f, fmt.Errorf("date range is inverted")
	}
	return f, nil
}

func (f historyFilter) matches(rx clinicapi.Prescription) bool {
	if f.patientID != "" && rx.Patient.PatientID != f.patientID && rx.Patient.ID != f.patientID {
		return false
	}
	if !f.from.IsZero() && rx.CreatedAt.Before(f.from) {
		return false
	}
	if !f.to.IsZero() && !rx.CreatedAt.Before(f.to) {
		return false
	}
	return true
}

func (h *Handler) filteredHistory(r *http.Request) ([]clinicapi.Prescription, error) {
	filter, err := parseHistoryFilter(r)
	if err != nil {
		return nil, &prescribing.ValidationError{Msg: err.Error()}
	}

	all, err := h.store.ListPrescriptions(r.Context())
	if err != nil {
		return nil, err
	}

	results := make([]clinicapi.Prescription, 0, len(all))
	for _, rx := range all {
		if filter.matches(rx) {
			results = append(results, rx)
		}
	}

	// Newest first, the order the history page shows.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

// History lists saved prescriptions newest first, optionally narrowed by
// ?patientId, ?from and ?to (dates, inclusive).
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	results, err := h.filteredHistory(r)
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, results)
}

// HistoryCSV exports the filtered history as a CSV download.
func (h *Handler) HistoryCSV(w http.ResponseWriter, r *http.Request) {
	results, err := h.filteredHistory(r)
	if err != nil {
		respondUpstreamError(w, err)
		return
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.Write([]string{"date", "number", "patient_id", "patient", "phone", "category", "complaints", "medicines"})
	for _, rx := range results {
		medicines := make([]string, 0, len(rx.Medicines))
		for _, m := range rx.Medicines {
			parts := []string{m.Name, m.Type, m.Strength, m.Dosage, m.Duration}
			fields := parts[:0]
			for _, p := range parts {
				if p != "" {
					fields = append(fields, p)
				}
			}
			medicines = append(medicines, strings.Join(fields, " "))
		}
		cw.Write([]string{
			rx.CreatedAt.Format("2006-01-02"),
			rx.Number,
			rx.Patient.PatientID,
			rx.Patient.Name,
			rx.Patient.Phone,
			rx.Patient.Category,
			strings.Join(rx.Complaints, "; "),
			strings.Join(medicines, "; "),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		logging.Error("CSV export failed", "error", err)
		RespondWithError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="prescriptions.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Stats summarizes prescribing activity for the dashboard: totals, 7 and
// 30 day windows, a daily series for the past week and per-category counts.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.ListPrescriptions(r.Context())
	if err != nil {
		respondUpstreamError(w, err)
		return
	}

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := dayStart.AddDate(0, 0, -6)
	monthAgo := dayStart.AddDate(0, 0, -29)

	daily := make([]map[string]interface{}, 7)
	dayCounts := make(map[string]int)
	byCategory := make(map[string]int)
	last7, last30 := 0, 0

	for _, rx := range all {
		if !rx.CreatedAt.Before(weekAgo) {
			last7++
			dayCounts[rx.CreatedAt.In(now.Location()).Format("2006-01-02")]++
		}
		if !rx.CreatedAt.Before(monthAgo) {
			last30++
		}
		category := rx.Patient.Category
		if category == "" {
			category = "Uncategorized"
		}
		byCategory[category]++
	}

	for i := 0; i < 7; i++ {
		day := weekAgo.AddDate(0, 0, i).Format("2006-01-02")
		daily[i] = map[string]interface{}{
			"date":  day,
			"count": dayCounts[day],
		}
	}

	RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"total":        len(all),
		"last_7_days":  last7,
		"last_30_days": last30,
		"daily":        daily,
		"by_category":  byCategory,
	})
}

// Reports lists a patient's uploaded reports for the attach step.
func (h *Handler) Reports(w http.ResponseWriter, r *http.Request) {
	patientID := strings.TrimSpace(r.URL.Query().Get("patientId"))
	if patientID == "" {
		RespondWithError(w, http.StatusBadRequest, "patientId is required")
		return
	}

	reports, err := h.directory.ListReports(r.Context(), patientID)
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	if reports == nil {
		reports = []clinicapi.Report{}
	}
	RespondWithJSON(w, http.StatusOK, reports)
}

// ListPatients returns the patient roster for the picker.
func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.store.ListPatients(r.Context())
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, patients)
}

// CreatePatient registers a patient through the roster form, minting a
// display id when the caller provides none. Registration requires the
// full form (age, phone, category); only the composer's inline
// new-patient path may create a name-only record.
func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var p clinicapi.Patient
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.ValidateRosterPatient(&p); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if p.PatientID == "" {
		p.PatientID = fmt.Sprintf("P%d", time.Now().UnixMilli())
	}

	created, err := h.store.CreatePatient(r.Context(), p)
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, created)
}

// Settings returns the clinic letterhead settings.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.directory.GetSettings(r.Context())
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, settings)
}

// HealthCheck reports catalog freshness and process health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, details, httpStatus := h.checker.HealthCheck()
	details["status"] = status
	RespondWithJSON(w, httpStatus, details)
}
