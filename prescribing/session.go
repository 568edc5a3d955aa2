package prescribing

import (
	"github.com/clinicware/prescriber-api/catalog"
	"github.com/clinicware/prescriber-api/clinicapi"
)

// Session bundles the composition components over one catalog snapshot, the
// unit of state behind a write-prescription page: suggestion panels, the
// complaint working set, the medicine list and the notes buffer.
type Session struct {
	Snapshot   catalog.Snapshot
	Engine     *Engine
	Panels     *Panels
	Complaints *Selector
	Medicines  *LineBuilder

	Patient clinicapi.Patient
	Notes   clinicapi.Notes
}

// NewSession starts a composition session over the given snapshot.
func NewSession(snapshot catalog.Snapshot) *Session {
	return &Session{
		Snapshot:   snapshot,
		Engine:     NewEngine(snapshot),
		Panels:     NewPanels(),
		Complaints: NewSelector(snapshot),
		Medicines:  NewLineBuilder(),
	}
}

// LoadPrescription seeds the session from a saved document for edit mode:
// patient and notes are copied, the medicine list replaces the builder's
// contents, and the flat complaint strings are re-associated with catalog
// lines.
func (s *Session) LoadPrescription(rx clinicapi.Prescription) {
	s.Patient = rx.Patient
	s.Notes = rx.Notes
	s.Medicines = NewLineBuilder()
	s.Medicines.SetLines(rx.Medicines)
	s.Complaints.LoadFromStrings(rx.Complaints)
}

// SuggestFor recomputes the candidates for a field from the current partial
// text and shows them in that field's panel.
func (s *Session) SuggestFor(field, partial string) []string {
	items := s.Engine.Suggestions(field, partial)
	s.Panels.Show(field, items)
	return items
}

// CommitSuggestion applies the highlighted candidate of a field's panel to
// the medicine buffer. Committing a name additionally autofills the
// dependent fields from the catalog entry.
func (s *Session) CommitSuggestion(field string) bool {
	value, ok := s.Panels.Commit(field)
	if !ok {
		return false
	}
	if field == FieldName {
		if line, ok := s.Engine.Autofill(value); ok {
			s.Medicines.SetBuffer(line)
			return true
		}
	}
	s.Medicines.SetField(field, value)
	return true
}

// Draft packages the session state for the assembler.
func (s *Session) Draft() Draft {
	return Draft{
		Patient:    s.Patient,
		Complaints: s.Complaints.Flatten(),
		Medicines:  s.Medicines.Lines(),
		Notes:      s.Notes,
	}
}
