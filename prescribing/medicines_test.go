package prescribing

import (
	"testing"

	"github.com/clinicware/prescriber-api/clinicapi"
)

func TestLineBuilderStartsWithDefaultDuration(t *testing.T) {
	b := NewLineBuilder()

	buf := b.Buffer()
	if buf.Duration != DefaultDuration {
		t.Errorf("fresh buffer should carry the default duration, got %q", buf.Duration)
	}
	if buf.Name != "" || buf.Dosage != "" {
		t.Errorf("fresh buffer should otherwise be blank, got %+v", buf)
	}
}

func TestAddRequiresNameAndDosage(t *testing.T) {
	tests := []struct {
		label  string
		name   string
		dosage string
		want   bool
	}{
		{"both present", "Napa", "1+0+1", true},
		{"missing name", "", "1+0+1", false},
		{"missing dosage", "Napa", "", false},
		{"whitespace name", "   ", "1+0+1", false},
		{"whitespace dosage", "Napa", "  ", false},
	}
	for _, tc := range tests {
		b := NewLineBuilder()
		b.SetField(FieldName, tc.name)
		b.SetField(FieldDosage, tc.dosage)
		if got := b.Add(); got != tc.want {
			t.Errorf("%s: Add() = %v, want %v", tc.label, got, tc.want)
		}
		wantLen := 0
		if tc.want {
			wantLen = 1
		}
		if b.Len() != wantLen {
			t.Errorf("%s: Len() = %d, want %d", tc.label, b.Len(), wantLen)
		}
	}
}

func TestAddResetsBuffer(t *testing.T) {
	b := NewLineBuilder()
	b.SetBuffer(clinicapi.MedicineLine{
		Name:     "Seclo",
		Type:     "Capsule",
		Strength: "20mg",
		Dosage:   "0+0+1",
		Advice:   "Before Meal",
		Duration: "10 days",
	})

	if !b.Add() {
		t.Fatal("expected Add to succeed")
	}

	buf := b.Buffer()
	if buf.Name != "" || buf.Type != "" || buf.Strength != "" || buf.Dosage != "" || buf.Advice != "" {
		t.Errorf("buffer should be blank after Add, got %+v", buf)
	}
	if buf.Duration != DefaultDuration {
		t.Errorf("buffer duration should reset to the default, got %q", buf.Duration)
	}
}

func TestFailedAddLeavesBufferIntact(t *testing.T) {
	b := NewLineBuilder()
	b.SetField(FieldName, "Napa")
	b.SetField(FieldStrength, "500mg")

	if b.Add() {
		t.Fatal("Add without a dosage should fail")
	}
	buf := b.Buffer()
	if buf.Name != "Napa" || buf.Strength != "500mg" {
		t.Errorf("a rejected Add must not clear the buffer, got %+v", buf)
	}
}

func TestSetFieldCoversEveryColumn(t *testing.T) {
	b := NewLineBuilder()
	b.SetField(FieldName, "Napa")
	b.SetField(FieldType, "Tablet")
	b.SetField(FieldStrength, "500mg")
	b.SetField(FieldDosage, "1+0+1")
	b.SetField(FieldAdvice, "After Meal")
	b.SetField("duration", "5 days")

	want := clinicapi.MedicineLine{
		Name:     "Napa",
		Type:     "Tablet",
		Strength: "500mg",
		Dosage:   "1+0+1",
		Advice:   "After Meal",
		Duration: "5 days",
	}
	if got := b.Buffer(); got != want {
		t.Errorf("buffer = %+v, want %+v", got, want)
	}
}

func TestLinesKeepInsertionOrder(t *testing.T) {
	b := NewLineBuilder()
	for _, name := range []string{"Seclo", "Napa", "Oradin"} {
		b.SetField(FieldName, name)
		b.SetField(FieldDosage, "1+0+1")
		b.Add()
	}

	lines := b.Lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, want := range []string{"Seclo", "Napa", "Oradin"} {
		if lines[i].Name != want {
			t.Errorf("lines[%d].Name = %q, want %q", i, lines[i].Name, want)
		}
	}
}

func TestLinesReturnsCopy(t *testing.T) {
	b := NewLineBuilder()
	b.SetField(FieldName, "Napa")
	b.SetField(FieldDosage, "1+0+1")
	b.Add()

	lines := b.Lines()
	lines[0].Name = "mutated"

	if got := b.Lines()[0].Name; got != "Napa" {
		t.Errorf("mutating the returned slice must not touch the builder, got %q", got)
	}
}

func TestSetLinesBypassesAddGate(t *testing.T) {
	b := NewLineBuilder()
	b.SetField(FieldName, "half-typed")

	saved := []clinicapi.MedicineLine{
		{Name: "Napa", Dosage: "1+0+1"},
		{Name: "Insulin", Duration: "30 days"},
	}
	b.SetLines(saved)

	lines := b.Lines()
	if len(lines) != 2 {
		t.Fatalf("stored lines load verbatim, got %v", lines)
	}
	if lines[1].Name != "Insulin" || lines[1].Dosage != "" {
		t.Errorf("a dosage-less stored line must survive loading, got %+v", lines[1])
	}
	if b.Buffer().Name != "half-typed" {
		t.Errorf("SetLines must not touch the buffer, got %+v", b.Buffer())
	}

	saved[0].Name = "mutated"
	if b.Lines()[0].Name != "Napa" {
		t.Error("SetLines should copy, not alias, the given slice")
	}
}

func TestRemoveBounds(t *testing.T) {
	b := NewLineBuilder()
	for _, name := range []string{"Napa", "Seclo"} {
		b.SetField(FieldName, name)
		b.SetField(FieldDosage, "1+0+1")
		b.Add()
	}

	if b.Remove(-1) || b.Remove(2) {
		t.Error("out-of-range removals should report false")
	}
	if b.Len() != 2 {
		t.Fatalf("out-of-range removals must not shrink the list, Len = %d", b.Len())
	}

	if !b.Remove(0) {
		t.Fatal("in-range removal should succeed")
	}
	if b.Len() != 1 || b.Lines()[0].Name != "Seclo" {
		t.Errorf("expected only Seclo left, got %v", b.Lines())
	}
}
