package prescribing

import (
	"strings"

	"github.com/clinicware/prescriber-api/clinicapi"
)

// LineBuilder accumulates medicine lines for one prescription. The live
// input buffer holds the row being typed; Add moves it into the ordered
// list, which is persisted exactly in insertion order (insertion order is
// print order).
type LineBuilder struct {
	buffer clinicapi.MedicineLine
	lines  []clinicapi.MedicineLine
}

// NewLineBuilder creates a builder with a blank buffer and the default
// duration.
func NewLineBuilder() *LineBuilder {
	return &LineBuilder{
		buffer: clinicapi.MedicineLine{Duration: DefaultDuration},
	}
}

// Buffer returns the current input buffer.
func (b *LineBuilder) Buffer() clinicapi.MedicineLine {
	return b.buffer
}

// SetBuffer replaces the whole input buffer, used by autofill.
func (b *LineBuilder) SetBuffer(line clinicapi.MedicineLine) {
	b.buffer = line
}

// SetField updates one named field of the input buffer.
func (b *LineBuilder) SetField(field, value string) {
	switch field {
	case FieldName:
		b.buffer.Name = value
	case FieldType:
		b.buffer.Type = value
	case FieldStrength:
		b.buffer.Strength = value
	case FieldDosage:
		b.buffer.Dosage = value
	case FieldAdvice:
		b.buffer.Advice = value
	case "duration":
		b.buffer.Duration = value
	}
}

// Add appends the buffer to the list and resets the buffer to blanks with
// the default duration. It is a no-op returning false unless both name and
// dosage are non-empty.
func (b *LineBuilder) Add() bool {
	if strings.TrimSpace(b.buffer.Name) == "" || strings.TrimSpace(b.buffer.Dosage) == "" {
		return false
	}
	b.lines = append(b.lines, b.buffer)
	b.buffer = clinicapi.MedicineLine{Duration: DefaultDuration}
	return true
}

// SetLines replaces the accumulated list with a saved document's lines,
// verbatim and without the Add gate: stored data already passed validation
// at save time, and an edit session must not silently drop what the
// document holds. The buffer is left alone.
func (b *LineBuilder) SetLines(lines []clinicapi.MedicineLine) {
	b.lines = make([]clinicapi.MedicineLine, len(lines))
	copy(b.lines, lines)
}

// Remove drops the line at the given position. Out-of-range indexes are
// ignored; no confirmation is required for removal.
func (b *LineBuilder) Remove(index int) bool {
	if index < 0 || index >= len(b.lines) {
		return false
	}
	b.lines = append(b.lines[:index], b.lines[index+1:]...)
	return true
}

// Lines returns a copy of the accumulated list in insertion order.
func (b *LineBuilder) Lines() []clinicapi.MedicineLine {
	out := make([]clinicapi.MedicineLine, len(b.lines))
	copy(out, b.lines)
	return out
}

// Len returns the number of accumulated lines.
func (b *LineBuilder) Len() int {
	return len(b.lines)
}
