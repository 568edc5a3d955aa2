package prescribing

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/clinicware/prescriber-api/clinicapi"
	"github.com/clinicware/prescriber-api/interfaces"
	"github.com/clinicware/prescriber-api/logging"
)

// ValidationError is a client-side precondition failure. It is raised before
// any API call is made and maps to a 400 at the HTTP surface, as opposed to
// upstream clinicapi.APIError failures.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Draft is the working state the assembler packages into a prescription
// document.
type Draft struct {
	Patient         clinicapi.Patient        `json:"patient"`
	Complaints      []string                 `json:"complaints"`
	Medicines       []clinicapi.MedicineLine `json:"medicines"`
	Notes           clinicapi.Notes          `json:"notes"`
	AttachedReports []clinicapi.Report       `json:"attachedReports,omitempty"`
}

// Assembler combines patient identity, complaints, medicines and notes into
// one persisted prescription. Sequence number derivation is serialized per
// category prefix so two concurrent saves through this process cannot mint
// the same number; the remote API itself offers no uniqueness guarantee, so
// saves racing across separate instances remain unprotected.
type Assembler struct {
	store interfaces.PrescriptionStore

	mu          sync.Mutex
	prefixLocks map[string]*sync.Mutex
}

// NewAssembler creates an assembler writing through the given store.
func NewAssembler(store interfaces.PrescriptionStore) *Assembler {
	return &Assembler{
		store:       store,
		prefixLocks: make(map[string]*sync.Mutex),
	}
}

func (a *Assembler) lockPrefix(prefix string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.prefixLocks[prefix]
	if !ok {
		l = &sync.Mutex{}
		a.prefixLocks[prefix] = l
	}
	return l
}

// NumberPrefix derives the sequence number prefix from a patient category:
// its first two characters, uppercased.
func NumberPrefix(category string) string {
	category = strings.TrimSpace(category)
	if len(category) > 2 {
		category = category[:2]
	}
	return strings.ToUpper(category)
}

// Save validates the draft, resolves the patient (creating one when the
// draft carries a new-patient form), derives the next sequence number for
// the patient's category and persists the document. On success the returned
// prescription carries the server-assigned id and creation timestamp.
func (a *Assembler) Save(ctx context.Context, draft Draft) (clinicapi.Prescription, error) {
	if len(draft.Medicines) == 0 {
		return clinicapi.Prescription{}, &ValidationError{Msg: "add at least one medicine"}
	}
	for i, m := range draft.Medicines {
		if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.Dosage) == "" {
			return clinicapi.Prescription{}, &ValidationError{
				Msg: fmt.Sprintf("medicine %d needs a name and a dosage", i+1),
			}
		}
	}

	patient, err := a.resolvePatient(ctx, draft.Patient)
	if err != nil {
		return clinicapi.Prescription{}, err
	}

	prefix := NumberPrefix(patient.Category)

	// Hold the prefix lock across the read-count and the create so the
	// count cannot go stale between the two within this process.
	lock := a.lockPrefix(prefix)
	lock.Lock()
	defer lock.Unlock()

	number, err := a.nextNumber(ctx, prefix)
	if err != nil {
		return clinicapi.Prescription{}, err
	}

	rx := clinicapi.Prescription{
		Patient:         patient,
		Complaints:      draft.Complaints,
		Medicines:       draft.Medicines,
		Notes:           draft.Notes,
		AttachedReports: draft.AttachedReports,
		Number:          number,
	}
	if rx.Complaints == nil {
		rx.Complaints = []string{}
	}

	saved, err := a.store.CreatePrescription(ctx, rx)
	if err != nil {
		return clinicapi.Prescription{}, err
	}

	logging.Info("Prescription saved",
		"id", saved.ID,
		"number", number,
		"patient_id", patient.PatientID,
		"complaints", len(rx.Complaints),
		"medicines", len(rx.Medicines),
	)
	return saved, nil
}

// Update overwrites an existing prescription with the draft's complaints,
// medicines and notes. The stored patient snapshot, sequence number and
// creation timestamp are carried over unchanged; the API supports
// full-document PUT only.
func (a *Assembler) Update(ctx context.Context, id string, draft Draft) (clinicapi.Prescription, error) {
	if len(draft.Medicines) == 0 {
		return clinicapi.Prescription{}, &ValidationError{Msg: "add at least one medicine"}
	}
	for i, m := range draft.Medicines {
		if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.Dosage) == "" {
			return clinicapi.Prescription{}, &ValidationError{
				Msg: fmt.Sprintf("medicine %d needs a name and a dosage", i+1),
			}
		}
	}

	existing, err := a.store.GetPrescription(ctx, id)
	if err != nil {
		return clinicapi.Prescription{}, err
	}

	existing.Complaints = draft.Complaints
	if existing.Complaints == nil {
		existing.Complaints = []string{}
	}
	existing.Medicines = draft.Medicines
	existing.Notes = draft.Notes
	if draft.Patient.Name != "" {
		existing.Patient = draft.Patient
	}

	if err := a.store.UpdatePrescription(ctx, id, existing); err != nil {
		return clinicapi.Prescription{}, err
	}

	logging.Info("Prescription updated", "id", id, "medicines", len(existing.Medicines))
	return existing, nil
}

// resolvePatient returns the draft's patient as-is when it is an existing
// record, otherwise creates a minimally valid new patient first. A new
// patient needs at least a name; a missing patientId is minted from the
// current time.
func (a *Assembler) resolvePatient(ctx context.Context, p clinicapi.Patient) (clinicapi.Patient, error) {
	if p.PatientID != "" || p.ID != "" {
		return p, nil
	}
	if strings.TrimSpace(p.Name) == "" {
		return clinicapi.Patient{}, &ValidationError{Msg: "select a patient or enter a patient name"}
	}

	p.PatientID = fmt.Sprintf("P%d", time.Now().UnixMilli())
	saved, err := a.store.CreatePatient(ctx, p)
	if err != nil {
		return clinicapi.Patient{}, err
	}
	logging.Info("Patient created", "patient_id", saved.PatientID, "name", saved.Name)
	return saved, nil
}

// nextNumber counts existing prescriptions whose number starts with the
// prefix and returns "<prefix>/<count+1>".
func (a *Assembler) nextNumber(ctx context.Context, prefix string) (string, error) {
	existing, err := a.store.ListPrescriptions(ctx)
	if err != nil {
		return "", fmt.Errorf("derive sequence number: %w", err)
	}

	count := 0
	for i := range existing {
		if strings.HasPrefix(existing[i].Number, prefix+"/") {
			count++
		}
	}
	return fmt.Sprintf("%s/%d", prefix, count+1), nil
}
