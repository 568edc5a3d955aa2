// Package validation checks user-supplied input before it reaches the
// composition engine or the upstream clinic API.
package validation

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/clinicware/prescriber-api/clinicapi"
	"github.com/clinicware/prescriber-api/interfaces"
)

// DefaultPhoneRegion is the region used to parse phone numbers given
// without a country prefix.
const DefaultPhoneRegion = "BD"

// Dangerous substrings checked before any query touches the catalogs.
// strings.Contains beats a regex alternation for a fixed pattern list.
var dangerousPatterns = []string{
	"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
	"onclick=", "onmouseover=", "onfocus=", "onblur=", "onchange=", "onsubmit=",
	"eval(", "expression(", "url(", "import ", "@import",
	// SQL injection patterns
	"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
	"--", "/*", "*/", "exec(", "execute(",
	// Command injection patterns
	"`", "$(", "${",
	// Path traversal patterns
	"../", "..\\", "%2e%2e", "file://",
	// NoSQL injection patterns (the upstream API sits on MongoDB)
	"{$ne:", "{$gt:", "{$where:", "{$or:", "{$regex:", "{$expr:",
}

// InputValidatorImpl implements the interfaces.InputValidator interface
type InputValidatorImpl struct{}

var _ interfaces.InputValidator = (*InputValidatorImpl)(nil)

// NewInputValidator creates a new input validator
func NewInputValidator() interfaces.InputValidator {
	return &InputValidatorImpl{}
}

// ValidateQuery validates a search or autocomplete query. Single-character
// queries are allowed: suggestion panels filter on every keystroke.
func (v *InputValidatorImpl) ValidateQuery(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("query cannot be empty")
	}

	if len(input) > 80 {
		return fmt.Errorf("query too long: maximum 80 characters")
	}

	if len(strings.Fields(input)) > 8 {
		return fmt.Errorf("query too complex: maximum 8 words allowed")
	}

	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("query contains potentially dangerous content")
		}
	}

	if hasExcessiveRepetition(input) {
		return fmt.Errorf("query contains excessive character repetition")
	}

	return nil
}

// ValidateObjectID validates a document id as used by the upstream API:
// a 24-character lowercase hex string.
func (v *InputValidatorImpl) ValidateObjectID(input string) (string, error) {
	id := strings.TrimSpace(input)
	if id == "" {
		return "", fmt.Errorf("id cannot be empty")
	}

	if len(id) != 24 {
		return "", fmt.Errorf("id must be 24 characters, got %d", len(id))
	}

	for _, r := range id {
		isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
		if !isHex {
			return "", fmt.Errorf("id must be lowercase hexadecimal")
		}
	}

	return id, nil
}

// ValidatePatient checks a patient record before it is created upstream.
func (v *InputValidatorImpl) ValidatePatient(p *clinicapi.Patient) error {
	if p == nil {
		return fmt.Errorf("patient is nil")
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		return fmt.Errorf("patient name cannot be empty")
	}
	if len(name) > 100 {
		return fmt.Errorf("patient name too long: %d characters", len(name))
	}

	if p.Age < 0 || p.Age > 150 {
		return fmt.Errorf("patient age out of range: %d", p.Age)
	}

	if p.Gender != "" {
		switch strings.ToLower(p.Gender) {
		case "male", "female", "other":
		default:
			return fmt.Errorf("unknown gender: %s", p.Gender)
		}
	}

	if p.Phone != "" {
		if err := validatePhone(p.Phone); err != nil {
			return fmt.Errorf("invalid phone number: %w", err)
		}
	}

	if p.Category != "" {
		known := false
		for _, c := range clinicapi.PatientCategories {
			if strings.EqualFold(c, p.Category) {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown patient category: %s", p.Category)
		}
	}

	return nil
}

// ValidateRosterPatient checks a patient registered through the roster
// form, where age, phone and category are mandatory. The composer's
// inline new-patient path stays name-only and uses ValidatePatient.
func (v *InputValidatorImpl) ValidateRosterPatient(p *clinicapi.Patient) error {
	if err := v.ValidatePatient(p); err != nil {
		return err
	}

	if p.Age == 0 {
		return fmt.Errorf("patient age is required")
	}
	if strings.TrimSpace(p.Phone) == "" {
		return fmt.Errorf("patient phone is required")
	}
	if strings.TrimSpace(p.Category) == "" {
		return fmt.Errorf("patient category is required")
	}
	return nil
}

// ValidateMedicineLine checks a medicine list entry. Name and dosage are
// the two fields a prescription line cannot go out without.
func (v *InputValidatorImpl) ValidateMedicineLine(line *clinicapi.MedicineLine) error {
	if line == nil {
		return fmt.Errorf("medicine line is nil")
	}

	if strings.TrimSpace(line.Name) == "" {
		return fmt.Errorf("medicine name cannot be empty")
	}
	if strings.TrimSpace(line.Dosage) == "" {
		return fmt.Errorf("dosage cannot be empty for %s", line.Name)
	}

	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"name", line.Name, 120},
		{"type", line.Type, 40},
		{"strength", line.Strength, 40},
		{"dosage", line.Dosage, 40},
		{"advice", line.Advice, 120},
		{"duration", line.Duration, 40},
	}
	for _, f := range fields {
		if len(f.value) > f.max {
			return fmt.Errorf("%s too long: %d characters (max %d)", f.name, len(f.value), f.max)
		}
		lower := strings.ToLower(f.value)
		for _, pattern := range dangerousPatterns {
			if strings.Contains(lower, pattern) {
				return fmt.Errorf("%s contains potentially dangerous content", f.name)
			}
		}
	}

	return nil
}

func validatePhone(raw string) error {
	num, err := phonenumbers.Parse(raw, DefaultPhoneRegion)
	if err != nil {
		return err
	}
	if !phonenumbers.IsValidNumber(num) {
		return fmt.Errorf("number is not valid for its region")
	}
	return nil
}

// hasExcessiveRepetition flags the same byte repeated more than 10 times
// in a row.
func hasExcessiveRepetition(input string) bool {
	for i := 0; i < len(input)-10; i++ {
		allSame := true
		for j := 1; j <= 10; j++ {
			if input[i] != input[i+j] {
				allSame = false
				break
			}
		}
		if allSame {
			return true
		}
	}
	return false
}
