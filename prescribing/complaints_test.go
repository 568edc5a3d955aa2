package prescribing

import (
	"slices"
	"testing"

	"github.com/clinicware/prescriber-api/clinicapi"
)

func feverCategory() clinicapi.ComplaintCategory {
	return clinicapi.ComplaintCategory{
		ID:      "c1",
		Name:    "Fever",
		Details: []string{"High temperature for 3 days", "Chills at night"},
	}
}

func TestToggleSelectAndUnselect(t *testing.T) {
	sel := NewSelector(testSnapshot())
	fever := feverCategory()

	sel.Toggle(fever, 0, true)
	if !sel.IsSelected("c1", 0) {
		t.Fatal("expected (c1, 0) selected after check")
	}
	if got := sel.Flatten(); len(got) != 1 || got[0] != "High temperature for 3 days" {
		t.Errorf("working set should hold the catalog line, got %v", got)
	}

	sel.Toggle(fever, 0, false)
	if sel.IsSelected("c1", 0) {
		t.Error("expected (c1, 0) removed after uncheck")
	}
	if got := sel.Flatten(); len(got) != 0 {
		t.Errorf("working set should be empty, got %v", got)
	}
}

func TestToggleRecheckPreservesEdits(t *testing.T) {
	sel := NewSelector(testSnapshot())
	fever := feverCategory()

	sel.Toggle(fever, 0, true)
	sel.Edit("c1", 0, "High temperature for 3 days, worse at night")
	sel.Toggle(fever, 0, true)

	if got := sel.SelectedText("c1", 0, ""); got != "High temperature for 3 days, worse at night" {
		t.Errorf("re-checking a selected line must not reset its edits, got %q", got)
	}
	if got := sel.Flatten(); len(got) != 1 {
		t.Errorf("re-checking must not duplicate the entry, got %v", got)
	}
}

func TestToggleOutOfRangeIndexIgnored(t *testing.T) {
	sel := NewSelector(testSnapshot())
	fever := feverCategory()

	sel.Toggle(fever, -1, true)
	sel.Toggle(fever, len(fever.Details), true)

	if got := sel.Flatten(); len(got) != 0 {
		t.Errorf("out-of-range toggles should be ignored, got %v", got)
	}
}

func TestSelectedTextFallback(t *testing.T) {
	sel := NewSelector(testSnapshot())

	if got := sel.SelectedText("c1", 0, "catalog line"); got != "catalog line" {
		t.Errorf("unselected pair should return the fallback, got %q", got)
	}
}

func TestSelectionSurvivesCategorySwitch(t *testing.T) {
	sel := NewSelector(testSnapshot())
	sel.Toggle(feverCategory(), 1, true)

	if !sel.ActivateByName("hair fall") {
		t.Fatal("expected case-insensitive category activation")
	}
	active, ok := sel.ActiveCategory()
	if !ok || active.ID != "c2" {
		t.Fatalf("expected Hair Fall active, got %+v ok=%v", active, ok)
	}

	if !sel.IsSelected("c1", 1) {
		t.Error("switching categories must not drop prior selections")
	}
}

func TestActivateByNameUnknown(t *testing.T) {
	sel := NewSelector(testSnapshot())

	if sel.ActivateByName("Migraine") {
		t.Error("unknown category name should not activate")
	}
	if _, ok := sel.ActiveCategory(); ok {
		t.Error("no category should be active")
	}
}

func TestNudgeDaysRoundTrip(t *testing.T) {
	sel := NewSelector(testSnapshot())
	sel.Toggle(feverCategory(), 0, true)

	sel.NudgeDays("c1", 0, +1)
	if got := sel.SelectedText("c1", 0, ""); got != "High temperature for 4 days" {
		t.Errorf("expected 4 days after increment, got %q", got)
	}

	sel.NudgeDays("c1", 0, -1)
	if got := sel.SelectedText("c1", 0, ""); got != "High temperature for 3 days" {
		t.Errorf("expected 3 days after decrement, got %q", got)
	}
}

func TestNudgeDaysFloorsAtOne(t *testing.T) {
	sel := NewSelector(testSnapshot())
	sel.Toggle(feverCategory(), 0, true)
	sel.Edit("c1", 0, "Fever for 1 day")

	sel.NudgeDays("c1", 0, -1)
	if got := sel.SelectedText("c1", 0, ""); got != "Fever for 1 days" {
		t.Errorf("day count should floor at 1, got %q", got)
	}
}

func TestNudgeDaysNoTokenUntouched(t *testing.T) {
	sel := NewSelector(testSnapshot())
	sel.Toggle(feverCategory(), 1, true)

	sel.NudgeDays("c1", 1, +1)
	if got := sel.SelectedText("c1", 1, ""); got != "Chills at night" {
		t.Errorf("text without a day token must stay untouched, got %q", got)
	}
}

func TestNudgeDurationFormats(t *testing.T) {
	tests := []struct {
		text  string
		delta int
		want  string
	}{
		{"Dry cough for 5 days", 1, "Dry cough for 6 days"},
		{"Fever for 3 Days with chills", 1, "Fever for 4 days with chills"},
		{"Pain for 2days", -1, "Pain for 1 days"},
		{"Headache since 7 days, mild", -1, "Headache since 6 days, mild"},
		{"Itching all over", 1, "Itching all over"},
		{"Daytime drowsiness", 1, "Daytime drowsiness"},
	}
	for _, tc := range tests {
		if got := nudgeDuration(tc.text, tc.delta); got != tc.want {
			t.Errorf("nudgeDuration(%q, %d) = %q, want %q", tc.text, tc.delta, got, tc.want)
		}
	}
}

func TestFlattenKeepsSelectionOrder(t *testing.T) {
	sel := NewSelector(testSnapshot())
	cough := clinicapi.ComplaintCategory{ID: "c3", Name: "Cough", Details: []string{"Dry cough for 5 days"}}

	sel.Toggle(cough, 0, true)
	sel.Toggle(feverCategory(), 1, true)
	sel.Toggle(feverCategory(), 0, true)

	want := []string{"Dry cough for 5 days", "Chills at night", "High temperature for 3 days"}
	if got := sel.Flatten(); !slices.Equal(got, want) {
		t.Errorf("flatten order should match selection order: got %v, want %v", got, want)
	}
}

func TestRemoveMiddleEntry(t *testing.T) {
	sel := NewSelector(testSnapshot())
	sel.Toggle(feverCategory(), 0, true)
	sel.Toggle(feverCategory(), 1, true)

	sel.Remove("c1", 0)
	if sel.IsSelected("c1", 0) {
		t.Error("removed pair should no longer be selected")
	}
	if !sel.IsSelected("c1", 1) {
		t.Error("other selections must survive a remove")
	}
}

func TestResetDropsStateKeepsCatalog(t *testing.T) {
	sel := NewSelector(testSnapshot())
	sel.Toggle(feverCategory(), 0, true)
	sel.ActivateByName("Fever")

	sel.Reset()

	if len(sel.Flatten()) != 0 {
		t.Error("reset should empty the working set")
	}
	if _, ok := sel.ActiveCategory(); ok {
		t.Error("reset should clear the active category")
	}
	if got := sel.SuggestCategories("fev"); len(got) != 1 || got[0] != "Fever" {
		t.Errorf("the catalog must survive a reset, got %v", got)
	}
}

func TestLoadFromStringsRelinksCatalogLines(t *testing.T) {
	sel := NewSelector(testSnapshot())
	sel.LoadFromStrings([]string{
		"chills at night",
		"Something the catalog never had",
	})

	got := sel.Selected()
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}

	if got[0].CategoryID != "c1" || got[0].Index != 1 {
		t.Errorf("expected case-insensitive relink to (c1, 1), got %+v", got[0])
	}
	if got[0].Text != "chills at night" {
		t.Errorf("relinked entry should keep the saved text verbatim, got %q", got[0].Text)
	}

	if got[1].Index != FreeTextIndex {
		t.Errorf("unmatched text should be free-text, got %+v", got[1])
	}
	if got[1].CategoryName != "Custom" {
		t.Errorf("free-text entries carry the Custom category, got %q", got[1].CategoryName)
	}
}

func TestLoadFromStringsReplacesWorkingSet(t *testing.T) {
	sel := NewSelector(testSnapshot())
	sel.Toggle(feverCategory(), 0, true)

	sel.LoadFromStrings([]string{"Dandruff"})

	got := sel.Flatten()
	if len(got) != 1 || got[0] != "Dandruff" {
		t.Errorf("load should replace the working set, got %v", got)
	}
}

func TestSuggestCategoriesCap(t *testing.T) {
	sel := NewSelector(testSnapshot())

	got := sel.SuggestCategories("a")
	if len(got) > maxCategorySuggestions {
		t.Errorf("suggestions must be capped at %d, got %d", maxCategorySuggestions, len(got))
	}
}
