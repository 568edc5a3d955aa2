// Package prescribing implements the prescription composition workflow: the
// autocomplete engine over the medicine catalog, the complaint selection
// working set, the medicine line builder, and the assembler that turns all
// of it into one persisted prescription document.
package prescribing

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/clinicware/prescriber-api/catalog"
	"github.com/clinicware/prescriber-api/clinicapi"
)

// DefaultDuration is the duration a medicine line starts with and falls back
// to after every add. Autofill never overwrites it.
const DefaultDuration = "7 days"

// Medicine input fields that have suggestion support.
const (
	FieldName     = "name"
	FieldType     = "type"
	FieldStrength = "strength"
	FieldDosage   = "dosage"
	FieldAdvice   = "advice"
)

// staticVocab is the small fixed vocabulary unioned with catalog-mined
// values per field. The name field has no static entries; its pool comes
// entirely from the catalog.
var staticVocab = map[string][]string{
	FieldType:     {"Tablet", "Capsule", "Injection", "Syrup"},
	FieldStrength: {"500mg", "250mg", "1 spoon", "2 spoons", "1/2 spoon"},
	FieldDosage:   {"1+0+1", "1+1+1", "0+1+0", "1+0+0", "0+0+1"},
	FieldAdvice:   {"Before Meal", "After Meal", "With Water"},
}

// Engine produces suggestion lists for the medicine input fields. It reads
// one catalog snapshot for its whole life, so suggestions stay stable for
// the duration of a composition session.
type Engine struct {
	snapshot catalog.Snapshot
	collator *collate.Collator
}

// NewEngine creates an engine over the given catalog snapshot.
func NewEngine(snapshot catalog.Snapshot) *Engine {
	return &Engine{
		snapshot: snapshot,
		collator: collate.New(language.English, collate.IgnoreCase),
	}
}

// Suggestions returns the candidate list for a field: the static vocabulary
// unioned with values mined from every medicine catalog entry, filtered by
// case-insensitive substring containment of partial. An empty partial
// returns the full deduplicated pool, used on focus for browsing. The pool
// is collated so the order is deterministic regardless of map iteration.
func (e *Engine) Suggestions(field, partial string) []string {
	pool := make(map[string]struct{})
	for _, v := range staticVocab[field] {
		pool[v] = struct{}{}
	}

	for i := range e.snapshot.Medicines {
		m := &e.snapshot.Medicines[i]
		switch field {
		case FieldName:
			pool[m.Name] = struct{}{}
		case FieldType:
			for _, t := range m.Types {
				pool[t] = struct{}{}
			}
		case FieldStrength:
			for _, s := range m.CommonStrengths {
				pool[s] = struct{}{}
			}
		case FieldDosage:
			if m.DefaultDosage != "" {
				pool[m.DefaultDosage] = struct{}{}
			}
		case FieldAdvice:
			if m.UsageAdvice != "" {
				pool[m.UsageAdvice] = struct{}{}
			}
		}
	}

	needle := strings.ToLower(partial)
	candidates := make([]string, 0, len(pool))
	for v := range pool {
		if needle == "" || strings.Contains(strings.ToLower(v), needle) {
			candidates = append(candidates, v)
		}
	}

	e.collator.SortStrings(candidates)
	return candidates
}

// Autofill returns a medicine line populated from the catalog entry with the
// given name: first type, first strength, default dosage and advice, and the
// fixed default duration. Returns false when the name is not in the catalog,
// in which case dependent fields must stay as the user typed them.
func (e *Engine) Autofill(name string) (clinicapi.MedicineLine, bool) {
	m, ok := e.snapshot.FindMedicine(name)
	if !ok {
		return clinicapi.MedicineLine{}, false
	}

	line := clinicapi.MedicineLine{
		Name:     m.Name,
		Dosage:   m.DefaultDosage,
		Advice:   m.UsageAdvice,
		Duration: DefaultDuration,
	}
	if len(m.Types) > 0 {
		line.Type = m.Types[0]
	}
	if len(m.CommonStrengths) > 0 {
		line.Strength = m.CommonStrengths[0]
	}
	return line, true
}

// PanelState is the visibility and keyboard state of one field's suggestion
// panel.
type PanelState struct {
	Open      bool
	Highlight int
	Items     []string
}

// Panels tracks per-field suggestion panels independently. Closing one
// field's panel (e.g. on an outside click scoped to that field's region)
// leaves every other panel untouched.
type Panels struct {
	fields map[string]*PanelState
}

// NewPanels creates an empty panel set.
func NewPanels() *Panels {
	return &Panels{fields: make(map[string]*PanelState)}
}

func (p *Panels) state(field string) *PanelState {
	st, ok := p.fields[field]
	if !ok {
		st = &PanelState{}
		p.fields[field] = st
	}
	return st
}

// Show opens the panel for a field with the given candidates and resets the
// highlight to the first entry.
func (p *Panels) Show(field string, items []string) {
	st := p.state(field)
	st.Open = len(items) > 0
	st.Highlight = 0
	st.Items = items
}

// Close hides one field's panel only.
func (p *Panels) Close(field string) {
	st := p.state(field)
	st.Open = false
	st.Items = nil
	st.Highlight = 0
}

// State returns a copy of the panel state for a field.
func (p *Panels) State(field string) PanelState {
	if st, ok := p.fields[field]; ok {
		return *st
	}
	return PanelState{}
}

// MoveDown advances the highlight, wrapping past the end (ArrowDown).
func (p *Panels) MoveDown(field string) {
	st := p.state(field)
	if len(st.Items) == 0 {
		return
	}
	st.Highlight = (st.Highlight + 1) % len(st.Items)
}

// MoveUp retreats the highlight, wrapping past the start (ArrowUp).
func (p *Panels) MoveUp(field string) {
	st := p.state(field)
	if len(st.Items) == 0 {
		return
	}
	st.Highlight = (st.Highlight - 1 + len(st.Items)) % len(st.Items)
}

// Commit returns the highlighted candidate and closes the panel (Enter).
// Returns false when the panel is closed or empty.
func (p *Panels) Commit(field string) (string, bool) {
	st := p.state(field)
	if !st.Open || len(st.Items) == 0 {
		return "", false
	}
	if st.Highlight < 0 || st.Highlight >= len(st.Items) {
		st.Highlight = 0
	}
	selected := st.Items[st.Highlight]
	p.Close(field)
	return selected, true
}
