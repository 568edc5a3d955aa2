package prescribing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/clinicware/prescriber-api/catalog"
	"github.com/clinicware/prescriber-api/clinicapi"
)

// FreeTextIndex marks a selected complaint that did not come from a catalog
// detail line (loaded from a saved prescription whose text no longer matches
// the catalog).
const FreeTextIndex = -1

// maxCategorySuggestions caps the category search suggestion list.
const maxCategorySuggestions = 8

// durationToken matches the day-count token a nudge operates on.
var durationToken = regexp.MustCompile(`(?i)(\d+)\s*(day|days)\b`)

// SelectedComplaint is one working-set entry: a user-chosen, possibly edited
// complaint line. At most one entry exists per (CategoryID, Index) pair.
type SelectedComplaint struct {
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Index        int    `json:"index"`
	Text         string `json:"text"`
}

// Selector tracks which catalog detail lines are selected, with per-line
// text overrides, across category switches. It owns the active-category
// cursor; nothing outside the selector mutates it.
type Selector struct {
	snapshot catalog.Snapshot
	selected []SelectedComplaint
	activeID string
}

// NewSelector creates a selector over the given catalog snapshot.
func NewSelector(snapshot catalog.Snapshot) *Selector {
	return &Selector{snapshot: snapshot}
}

// SuggestCategories returns up to 8 category names matching the query by
// case-insensitive substring containment.
func (s *Selector) SuggestCategories(query string) []string {
	return s.snapshot.SearchCategories(query, maxCategorySuggestions)
}

// ActivateByName makes the named category active so its detail lines can be
// toggled. The match is exact and case-insensitive. Switching the active
// category never touches the working set.
func (s *Selector) ActivateByName(name string) bool {
	cat, ok := s.snapshot.FindCategoryByName(name)
	if !ok {
		return false
	}
	s.activeID = cat.ID
	return true
}

// ActiveCategory returns the currently active category, if any.
func (s *Selector) ActiveCategory() (clinicapi.ComplaintCategory, bool) {
	if s.activeID == "" {
		return clinicapi.ComplaintCategory{}, false
	}
	return s.snapshot.FindCategory(s.activeID)
}

func (s *Selector) find(categoryID string, index int) int {
	for i := range s.selected {
		if s.selected[i].CategoryID == categoryID && s.selected[i].Index == index {
			return i
		}
	}
	return -1
}

// IsSelected reports whether the (category, index) pair is in the working
// set.
func (s *Selector) IsSelected(categoryID string, index int) bool {
	return s.find(categoryID, index) >= 0
}

// SelectedText returns the working-set text for a pair, or the fallback
// (usually the catalog line) when the pair is not selected.
func (s *Selector) SelectedText(categoryID string, index int, fallback string) string {
	if i := s.find(categoryID, index); i >= 0 {
		return s.selected[i].Text
	}
	return fallback
}

// Toggle checks or unchecks one detail line of a category. Checking an
// already-selected pair is a no-op, preserving its edits; unchecking removes
// the entry.
func (s *Selector) Toggle(cat clinicapi.ComplaintCategory, index int, checked bool) {
	if index < 0 || index >= len(cat.Details) {
		return
	}
	if checked {
		if s.find(cat.ID, index) >= 0 {
			return
		}
		s.selected = append(s.selected, SelectedComplaint{
			CategoryID:   cat.ID,
			CategoryName: cat.Name,
			Index:        index,
			Text:         cat.Details[index],
		})
		return
	}
	s.Remove(cat.ID, index)
}

// Edit overrides the text of a selected pair in place.
func (s *Selector) Edit(categoryID string, index int, text string) {
	if i := s.find(categoryID, index); i >= 0 {
		s.selected[i].Text = text
	}
}

// Remove drops a selected pair from the working set.
func (s *Selector) Remove(categoryID string, index int) {
	if i := s.find(categoryID, index); i >= 0 {
		s.selected = append(s.selected[:i], s.selected[i+1:]...)
	}
}

// NudgeDays adjusts the day-count token in a selected entry's text by delta,
// flooring at 1 day. The token is replaced in place and the rest of the text
// is preserved verbatim. Entries without a token are left untouched.
func (s *Selector) NudgeDays(categoryID string, index, delta int) {
	i := s.find(categoryID, index)
	if i < 0 {
		return
	}
	s.selected[i].Text = nudgeDuration(s.selected[i].Text, delta)
}

// nudgeDuration rewrites the first "<n> day(s)" token in text with
// max(1, n+delta) days. Text without a token comes back unchanged.
func nudgeDuration(text string, delta int) string {
	m := durationToken.FindStringSubmatchIndex(text)
	if m == nil {
		return text
	}
	current, err := strconv.Atoi(text[m[2]:m[3]])
	if err != nil {
		return text
	}
	next := current + delta
	if next < 1 {
		next = 1
	}
	return text[:m[0]] + fmt.Sprintf("%d days", next) + text[m[1]:]
}

// Flatten returns one string per selected entry in selection order. This is
// the form that gets persisted; category and index linkage is discarded (the
// print renderer reconstructs it by matching against the catalog).
func (s *Selector) Flatten() []string {
	out := make([]string, len(s.selected))
	for i := range s.selected {
		out[i] = s.selected[i].Text
	}
	return out
}

// Selected returns a copy of the working set in selection order.
func (s *Selector) Selected() []SelectedComplaint {
	out := make([]SelectedComplaint, len(s.selected))
	copy(out, s.selected)
	return out
}

// Reset discards the whole working set and the active category. The catalog
// snapshot is kept; only user state is dropped.
func (s *Selector) Reset() {
	s.selected = nil
	s.activeID = ""
}

// LoadFromStrings rebuilds the working set from a saved prescription's flat
// complaint list, re-associating each string with a catalog detail line by
// exact case-insensitive match. Unmatched strings become free-text entries
// that stay editable but carry no category linkage.
func (s *Selector) LoadFromStrings(texts []string) {
	s.selected = s.selected[:0]
	for i, text := range texts {
		needle := strings.ToLower(strings.TrimSpace(text))
		entry := SelectedComplaint{
			CategoryID:   fmt.Sprintf("custom-%d", i),
			CategoryName: "Custom",
			Index:        FreeTextIndex,
			Text:         text,
		}
		for ci := range s.snapshot.Categories {
			cat := &s.snapshot.Categories[ci]
			for di, line := range cat.Details {
				if strings.ToLower(strings.TrimSpace(line)) == needle {
					entry = SelectedComplaint{
						CategoryID:   cat.ID,
						CategoryName: cat.Name,
						Index:        di,
						Text:         text,
					}
					break
				}
			}
			if entry.Index != FreeTextIndex {
				break
			}
		}
		s.selected = append(s.selected, entry)
	}
}
