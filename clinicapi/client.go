// Package clinicapi is the HTTP client for the remote clinic REST API that
// owns all persisted records: patients, the medicine and complaint catalogs,
// prescriptions, reports and the doctor settings. Every response is decoded
// into an explicit struct and validated before it reaches the workflow, so a
// malformed payload surfaces as an error instead of a silent zero value.
package clinicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the clinic API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL (e.g.
// "http://localhost:5000/api"). Trailing slashes are stripped.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// do performs one request. A non-nil in is marshalled as the JSON body; a
// non-nil out receives the decoded response body.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiErrorFromResponse(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

// ListPatients returns all patient records.
func (c *Client) ListPatients(ctx context.Context) ([]Patient, error) {
	var patients []Patient
	if err := c.do(ctx, http.MethodGet, "/patients", nil, &patients); err != nil {
		return nil, err
	}
	for i := range patients {
		if err := patients[i].Validate(); err != nil {
			return nil, fmt.Errorf("GET /patients: %w", err)
		}
	}
	return patients, nil
}

// CreatePatient stores a new patient and returns the saved record.
func (c *Client) CreatePatient(ctx context.Context, p Patient) (Patient, error) {
	if err := p.Validate(); err != nil {
		return Patient{}, err
	}
	var saved Patient
	if err := c.do(ctx, http.MethodPost, "/patients", p, &saved); err != nil {
		return Patient{}, err
	}
	// Some deployments answer with {"message": ...} only; keep the input
	// values when the echo is missing.
	if saved.Name == "" {
		saved = p
	}
	return saved, nil
}

// ListMedicines returns the read-only medicine catalog.
func (c *Client) ListMedicines(ctx context.Context) ([]Medicine, error) {
	var medicines []Medicine
	if err := c.do(ctx, http.MethodGet, "/medicines", nil, &medicines); err != nil {
		return nil, err
	}
	for i := range medicines {
		if err := medicines[i].Validate(); err != nil {
			return nil, fmt.Errorf("GET /medicines: %w", err)
		}
	}
	return medicines, nil
}

// ListComplaintCategories returns the read-only complaint category catalog.
func (c *Client) ListComplaintCategories(ctx context.Context) ([]ComplaintCategory, error) {
	var categories []ComplaintCategory
	if err := c.do(ctx, http.MethodGet, "/complaints", nil, &categories); err != nil {
		return nil, err
	}
	for i := range categories {
		if err := categories[i].Validate(); err != nil {
			return nil, fmt.Errorf("GET /complaints: %w", err)
		}
	}
	return categories, nil
}

// ListReports returns the attachments belonging to a patient.
func (c *Client) ListReports(ctx context.Context, patientID string) ([]Report, error) {
	var reports []Report
	path := "/reports?patientId=" + url.QueryEscape(patientID)
	if err := c.do(ctx, http.MethodGet, path, nil, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// ListPrescriptions returns all persisted prescriptions.
func (c *Client) ListPrescriptions(ctx context.Context) ([]Prescription, error) {
	var prescriptions []Prescription
	if err := c.do(ctx, http.MethodGet, "/prescriptions", nil, &prescriptions); err != nil {
		return nil, err
	}
	for i := range prescriptions {
		if err := prescriptions[i].Validate(); err != nil {
			return nil, fmt.Errorf("GET /prescriptions: %w", err)
		}
	}
	return prescriptions, nil
}

// GetPrescription fetches one prescription by id.
func (c *Client) GetPrescription(ctx context.Context, id string) (Prescription, error) {
	var rx Prescription
	if err := c.do(ctx, http.MethodGet, "/prescriptions/"+url.PathEscape(id), nil, &rx); err != nil {
		return Prescription{}, err
	}
	if rx.ID == "" {
		rx.ID = id
	}
	if err := rx.Validate(); err != nil {
		return Prescription{}, fmt.Errorf("GET /prescriptions/%s: %w", id, err)
	}
	return rx, nil
}

// CreatePrescription persists a new prescription and returns the saved
// document with its server-assigned id and creation timestamp.
func (c *Client) CreatePrescription(ctx context.Context, rx Prescription) (Prescription, error) {
	var saved Prescription
	if err := c.do(ctx, http.MethodPost, "/prescriptions", rx, &saved); err != nil {
		return Prescription{}, err
	}
	if saved.ID == "" {
		return Prescription{}, fmt.Errorf("POST /prescriptions: response missing _id")
	}
	return saved, nil
}

// UpdatePrescription overwrites an existing prescription. The API supports
// full-document PUT only, never partial patches.
func (c *Client) UpdatePrescription(ctx context.Context, id string, rx Prescription) error {
	return c.do(ctx, http.MethodPut, "/prescriptions/"+url.PathEscape(id), rx, nil)
}

// GetSettings fetches the clinic letterhead data.
func (c *Client) GetSettings(ctx context.Context) (Settings, error) {
	var settings Settings
	if err := c.do(ctx, http.MethodGet, "/settings", nil, &settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}
