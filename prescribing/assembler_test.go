package prescribing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/clinicware/prescriber-api/clinicapi"
)

// fakeStore is an in-memory PrescriptionStore.
type fakeStore struct {
	prescriptions   []clinicapi.Prescription
	patients        []clinicapi.Patient
	listErr         error
	createdPatients int
	updated         map[string]clinicapi.Prescription
}

func newFakeStore() *fakeStore {
	return &fakeStore{updated: make(map[string]clinicapi.Prescription)}
}

func (f *fakeStore) ListPrescriptions(ctx context.Context) ([]clinicapi.Prescription, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.prescriptions, nil
}

func (f *fakeStore) GetPrescription(ctx context.Context, id string) (clinicapi.Prescription, error) {
	for _, rx := range f.prescriptions {
		if rx.ID == id {
			return rx, nil
		}
	}
	return clinicapi.Prescription{}, &clinicapi.APIError{StatusCode: 404, Message: "prescription not found"}
}

func (f *fakeStore) CreatePrescription(ctx context.Context, rx clinicapi.Prescription) (clinicapi.Prescription, error) {
	rx.ID = "68b000000000000000000001"
	f.prescriptions = append(f.prescriptions, rx)
	return rx, nil
}

func (f *fakeStore) UpdatePrescription(ctx context.Context, id string, rx clinicapi.Prescription) error {
	f.updated[id] = rx
	return nil
}

func (f *fakeStore) ListPatients(ctx context.Context) ([]clinicapi.Patient, error) {
	return f.patients, nil
}

func (f *fakeStore) CreatePatient(ctx context.Context, p clinicapi.Patient) (clinicapi.Patient, error) {
	f.createdPatients++
	p.ID = "68b0000000000000000000aa"
	f.patients = append(f.patients, p)
	return p, nil
}

func validDraft() Draft {
	return Draft{
		Patient: clinicapi.Patient{
			Name:      "Rahim Uddin",
			PatientID: "P1700000000000",
			Category:  "Thalassemia",
		},
		Complaints: []string{"High temperature for 3 days"},
		Medicines: []clinicapi.MedicineLine{
			{Name: "Napa", Dosage: "1+0+1", Duration: "7 days"},
		},
	}
}

func TestNumberPrefix(t *testing.T) {
	tests := []struct {
		category string
		want     string
	}{
		{"Thalassemia", "TH"},
		{"G6PD", "G6"},
		{"HS", "HS"},
		{"cml", "CM"},
		{"  COT  ", "CO"},
		{"", ""},
		{"x", "X"},
	}
	for _, tc := range tests {
		if got := NumberPrefix(tc.category); got != tc.want {
			t.Errorf("NumberPrefix(%q) = %q, want %q", tc.category, got, tc.want)
		}
	}
}

func TestSaveRequiresMedicines(t *testing.T) {
	a := NewAssembler(newFakeStore())

	draft := validDraft()
	draft.Medicines = nil

	_, err := a.Save(context.Background(), draft)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a ValidationError, got %v", err)
	}
}

func TestSaveRejectsIncompleteMedicineLine(t *testing.T) {
	a := NewAssembler(newFakeStore())

	draft := validDraft()
	draft.Medicines = append(draft.Medicines, clinicapi.MedicineLine{Name: "Seclo"})

	_, err := a.Save(context.Background(), draft)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Msg, "medicine 2") {
		t.Errorf("the error should point at the offending line, got %q", verr.Msg)
	}
}

func TestSaveDerivesSequenceNumber(t *testing.T) {
	store := newFakeStore()
	store.prescriptions = []clinicapi.Prescription{
		{Number: "TH/1"},
		{Number: "TH/2"},
		{Number: "G6/1"},
	}
	a := NewAssembler(store)

	saved, err := a.Save(context.Background(), validDraft())
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.Number != "TH/3" {
		t.Errorf("expected number TH/3, got %q", saved.Number)
	}
}

func TestSaveFirstNumberForPrefix(t *testing.T) {
	a := NewAssembler(newFakeStore())

	saved, err := a.Save(context.Background(), validDraft())
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.Number != "TH/1" {
		t.Errorf("expected number TH/1, got %q", saved.Number)
	}
}

func TestSaveExistingPatientPassesThrough(t *testing.T) {
	store := newFakeStore()
	a := NewAssembler(store)

	if _, err := a.Save(context.Background(), validDraft()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if store.createdPatients != 0 {
		t.Errorf("a draft with a patientId must not create a patient, created %d", store.createdPatients)
	}
}

func TestSaveCreatesNewPatientWithMintedID(t *testing.T) {
	store := newFakeStore()
	a := NewAssembler(store)

	draft := validDraft()
	draft.Patient = clinicapi.Patient{Name: "Walk-in Patient", Category: "COT"}

	saved, err := a.Save(context.Background(), draft)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if store.createdPatients != 1 {
		t.Fatalf("expected one patient created, got %d", store.createdPatients)
	}
	if !strings.HasPrefix(saved.Patient.PatientID, "P") || len(saved.Patient.PatientID) < 2 {
		t.Errorf("expected a minted P<timestamp> id, got %q", saved.Patient.PatientID)
	}
	if saved.Number != "CO/1" {
		t.Errorf("expected the new patient's category prefix, got %q", saved.Number)
	}
}

func TestSaveNewPatientNeedsName(t *testing.T) {
	a := NewAssembler(newFakeStore())

	draft := validDraft()
	draft.Patient = clinicapi.Patient{}

	_, err := a.Save(context.Background(), draft)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a ValidationError, got %v", err)
	}
}

func TestSaveNilComplaintsBecomeEmptyList(t *testing.T) {
	store := newFakeStore()
	a := NewAssembler(store)

	draft := validDraft()
	draft.Complaints = nil

	saved, err := a.Save(context.Background(), draft)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.Complaints == nil {
		t.Error("complaints should persist as an empty list, not null")
	}
}

func TestSaveSequenceNumberListFailure(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("upstream down")
	a := NewAssembler(store)

	_, err := a.Save(context.Background(), validDraft())
	if err == nil {
		t.Fatal("expected Save to fail when the number cannot be derived")
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		t.Error("an upstream failure is not a validation error")
	}
}

func TestUpdatePreservesNumberAndPatient(t *testing.T) {
	store := newFakeStore()
	store.prescriptions = []clinicapi.Prescription{{
		ID:      "68b000000000000000000009",
		Patient: clinicapi.Patient{Name: "Rahim Uddin", PatientID: "P1", Category: "HS"},
		Number:  "HS/4",
		Medicines: []clinicapi.MedicineLine{
			{Name: "Napa", Dosage: "1+0+1"},
		},
	}}
	a := NewAssembler(store)

	draft := Draft{
		Medicines: []clinicapi.MedicineLine{{Name: "Seclo", Dosage: "0+0+1"}},
		Notes:     clinicapi.Notes{GeneralAdvice: "Plenty of fluids"},
	}

	updated, err := a.Update(context.Background(), "68b000000000000000000009", draft)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Number != "HS/4" {
		t.Errorf("update must not renumber, got %q", updated.Number)
	}
	if updated.Patient.Name != "Rahim Uddin" {
		t.Errorf("a draft without a patient name keeps the stored patient, got %q", updated.Patient.Name)
	}
	if len(updated.Medicines) != 1 || updated.Medicines[0].Name != "Seclo" {
		t.Errorf("medicines should be replaced, got %v", updated.Medicines)
	}
	if updated.Complaints == nil {
		t.Error("nil draft complaints should persist as an empty list")
	}
	if _, ok := store.updated["68b000000000000000000009"]; !ok {
		t.Error("expected the store to receive the update")
	}
}

func TestUpdateReplacesPatientWhenNamed(t *testing.T) {
	store := newFakeStore()
	store.prescriptions = []clinicapi.Prescription{{
		ID:        "68b000000000000000000009",
		Patient:   clinicapi.Patient{Name: "Rahim Uddin", PatientID: "P1"},
		Medicines: []clinicapi.MedicineLine{{Name: "Napa", Dosage: "1+0+1"}},
	}}
	a := NewAssembler(store)

	draft := Draft{
		Patient:   clinicapi.Patient{Name: "Karim Mia", PatientID: "P2"},
		Medicines: []clinicapi.MedicineLine{{Name: "Napa", Dosage: "1+0+1"}},
	}

	updated, err := a.Update(context.Background(), "68b000000000000000000009", draft)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Patient.PatientID != "P2" {
		t.Errorf("a named draft patient should replace the stored one, got %+v", updated.Patient)
	}
}

func TestUpdateRejectsIncompleteMedicineLine(t *testing.T) {
	store := newFakeStore()
	store.prescriptions = []clinicapi.Prescription{{
		ID:        "68b000000000000000000009",
		Patient:   clinicapi.Patient{Name: "Rahim Uddin", PatientID: "P1"},
		Medicines: []clinicapi.MedicineLine{{Name: "Napa", Dosage: "1+0+1"}},
	}}
	a := NewAssembler(store)

	draft := Draft{
		Medicines: []clinicapi.MedicineLine{{Name: "Insulin", Duration: "30 days"}},
	}

	_, err := a.Update(context.Background(), "68b000000000000000000009", draft)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a ValidationError for a dosage-less line, got %v", err)
	}
	if len(store.updated) != 0 {
		t.Error("a rejected update must not reach the store")
	}
}

func TestUpdateUnknownID(t *testing.T) {
	a := NewAssembler(newFakeStore())

	draft := Draft{Medicines: []clinicapi.MedicineLine{{Name: "Napa", Dosage: "1+0+1"}}}
	_, err := a.Update(context.Background(), "68b0000000000000000000ff", draft)

	var apiErr *clinicapi.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 404 {
		t.Errorf("expected the upstream 404 to pass through, got %v", err)
	}
}
