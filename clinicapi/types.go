package clinicapi

import (
	"fmt"
	"strings"
	"time"
)

// Patient is a patient record as stored by the clinic API. Prescriptions
// embed a copied snapshot of these values rather than a reference.
type Patient struct {
	ID        string `json:"_id,omitempty"`
	Name      string `json:"name"`
	Age       int    `json:"age,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Phone     string `json:"phone,omitempty"`
	PatientID string `json:"patientId"`
	Category  string `json:"category,omitempty"`
}

// Categories a patient can be filed under. The first two characters of the
// category become the prescription number prefix.
var PatientCategories = []string{
	"G6PD",
	"Hemophilia",
	"HS",
	"CML",
	"COT",
	"CCS",
	"Thalassemia",
}

// Medicine is a read-only catalog entry. Name is the lookup key used by
// autocomplete and autofill.
type Medicine struct {
	ID              string   `json:"_id,omitempty"`
	Name            string   `json:"name"`
	Types           []string `json:"types"`
	CommonStrengths []string `json:"commonStrengths"`
	DefaultDosage   string   `json:"defaultDosage"`
	UsageAdvice     string   `json:"usageAdvice"`
}

// ComplaintCategory is a read-only catalog entry: a named, ordered list of
// canned complaint phrases.
type ComplaintCategory struct {
	ID      string   `json:"_id"`
	Name    string   `json:"name"`
	Details []string `json:"details"`
}

// MedicineLine is one prescribed medicine. It has no required relation to a
// Medicine catalog entry beyond possibly having been populated via autofill.
type MedicineLine struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Strength string `json:"strength,omitempty"`
	Dosage   string `json:"dosage"`
	Advice   string `json:"advice,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// Notes holds the three rich-text fields of a prescription.
type Notes struct {
	Symptoms      string `json:"symptoms,omitempty"`
	Tests         string `json:"tests,omitempty"`
	GeneralAdvice string `json:"generalAdvice,omitempty"`
}

// Report is an opaque attachment owned by the reports collaborator.
type Report struct {
	ID         string    `json:"_id,omitempty"`
	Name       string    `json:"name,omitempty"`
	URL        string    `json:"url"`
	PatientID  string    `json:"patientId,omitempty"`
	ReportDate time.Time `json:"reportDate,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

// Prescription is the persisted aggregate. Complaints are stored as bare
// strings in selection order; category linkage is not persisted and the
// print renderer reconstructs it by matching against the current catalog.
type Prescription struct {
	ID              string         `json:"_id,omitempty"`
	Patient         Patient        `json:"patient"`
	Complaints      []string       `json:"complaints"`
	Medicines       []MedicineLine `json:"medicines"`
	Notes           Notes          `json:"notes"`
	AttachedReports []Report       `json:"attachedReports,omitempty"`
	Number          string         `json:"prescriptionNumber,omitempty"`
	CreatedAt       time.Time      `json:"createdAt,omitempty"`
}

// Settings is the clinic letterhead data used by the print renderer.
type Settings struct {
	Name           string `json:"name"`
	Phone          string `json:"phone,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	Designation    string `json:"designation,omitempty"`
	ClinicName     string `json:"clinicName,omitempty"`
	ClinicAddress  string `json:"clinicAddress,omitempty"`
	DaysText       string `json:"daysText,omitempty"`
	TimingText     string `json:"timingText,omitempty"`
}

// Parse-time validation. The upstream API is loosely typed, so every decode
// is followed by one of these checks to turn missing fields into explicit
// errors instead of zero values propagating through the workflow.

func (m *Medicine) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("medicine %q: empty name", m.ID)
	}
	return nil
}

func (c *ComplaintCategory) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("complaint category %q: empty id", c.Name)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("complaint category %s: empty name", c.ID)
	}
	return nil
}

func (p *Patient) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("patient %q: empty name", p.PatientID)
	}
	return nil
}

func (rx *Prescription) Validate() error {
	if strings.TrimSpace(rx.ID) == "" {
		return fmt.Errorf("prescription: empty id")
	}
	if err := rx.Patient.Validate(); err != nil {
		return fmt.Errorf("prescription %s: %w", rx.ID, err)
	}
	for i, m := range rx.Medicines {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("prescription %s: medicine %d has empty name", rx.ID, i)
		}
	}
	return nil
}
