// Package printview renders a persisted prescription as a single printable
// A4 sheet. It is a pure read step: the prescription, the clinic settings
// and the complaint catalog are fetched fresh, the flat complaint strings
// are regrouped under their catalog categories, and the result is laid out
// with fixed content regions (patient strip, complaints column, Rx column,
// signature, clinic footer).
package printview

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/clinicware/prescriber-api/clinicapi"
)

//go:embed sheet.html
var templateFS embed.FS

var sheetTemplate = template.Must(
	template.New("sheet.html").Funcs(template.FuncMap{
		"add1": func(i int) int { return i + 1 },
	}).ParseFS(templateFS, "sheet.html"),
)

// OtherGroup is the bucket for complaint strings that match no catalog
// detail line. Nothing is dropped: an unmatched string still prints, just
// without a category heading of its own.
const OtherGroup = "Other"

// Source is the slice of the clinic API the renderer reads from.
type Source interface {
	GetPrescription(ctx context.Context, id string) (clinicapi.Prescription, error)
	GetSettings(ctx context.Context) (clinicapi.Settings, error)
	ListComplaintCategories(ctx context.Context) ([]clinicapi.ComplaintCategory, error)
}

// ComplaintGroup is one category heading with its complaint lines, in the
// order the lines appear in the stored document.
type ComplaintGroup struct {
	Category string
	Items    []string
}

// SheetData is everything the sheet template needs.
type SheetData struct {
	Prescription clinicapi.Prescription
	Settings     clinicapi.Settings
	Groups       []ComplaintGroup
	Date         string

	// Rich-text notes fields, authored by the doctor in the settings-gated
	// editor, rendered as-is.
	Symptoms      template.HTML
	Tests         template.HTML
	GeneralAdvice template.HTML
}

// Renderer renders printable prescription sheets.
type Renderer struct {
	source Source
}

// NewRenderer creates a renderer reading from the given source.
func NewRenderer(source Source) *Renderer {
	return &Renderer{source: source}
}

// Render fetches the prescription with the given id plus the settings and
// complaint catalog, and writes the printable sheet HTML to w.
func (r *Renderer) Render(ctx context.Context, w io.Writer, id string) error {
	rx, err := r.source.GetPrescription(ctx, id)
	if err != nil {
		return fmt.Errorf("load prescription: %w", err)
	}

	settings, err := r.source.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	categories, err := r.source.ListComplaintCategories(ctx)
	if err != nil {
		return fmt.Errorf("load complaint catalog: %w", err)
	}

	data := SheetData{
		Prescription:  rx,
		Settings:      settings,
		Groups:        GroupComplaints(rx.Complaints, categories),
		Symptoms:      template.HTML(rx.Notes.Symptoms),
		Tests:         template.HTML(rx.Notes.Tests),
		GeneralAdvice: template.HTML(rx.Notes.GeneralAdvice),
		Date:          localDate(rx.CreatedAt),
	}

	return sheetTemplate.Execute(w, data)
}

// GroupComplaints re-associates the flat complaint strings with catalog
// categories by exact case-insensitive match against detail lines. Groups
// appear in the order their first complaint appears; unmatched strings land
// in the "Other" group. Matching happens against the catalog as it is now,
// so a catalog line edited after the save makes its old text fall to
// "Other" rather than disappear.
func GroupComplaints(complaints []string, categories []clinicapi.ComplaintCategory) []ComplaintGroup {
	var groups []ComplaintGroup
	index := make(map[string]int)

	appendTo := func(name, text string) {
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, ComplaintGroup{Category: name})
		}
		groups[i].Items = append(groups[i].Items, text)
	}

	for _, raw := range complaints {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		needle := strings.ToLower(text)

		matched := ""
		for ci := range categories {
			for _, line := range categories[ci].Details {
				if strings.ToLower(strings.TrimSpace(line)) == needle {
					matched = categories[ci].Name
					break
				}
			}
			if matched != "" {
				break
			}
		}

		if matched == "" {
			matched = OtherGroup
		}
		appendTo(matched, text)
	}

	return groups
}

// localDate formats a timestamp the way the sheet shows dates.
func localDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("02/01/2006")
}
