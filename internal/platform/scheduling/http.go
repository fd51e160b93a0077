package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPProvider calls the scheduling provider's REST API.
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// HTTPProviderOption configures an HTTPProvider.
type HTTPProviderOption func(*HTTPProvider)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) HTTPProviderOption {
	return func(p *HTTPProvider) { p.httpClient = c }
}

func NewHTTPProvider(baseURL, apiKey string, opts ...HTTPProviderOption) *HTTPProvider {
	p := &HTTPProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("X-Api-Key", p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrAppointmentNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("scheduling provider: unexpected status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (p *HTTPProvider) AppointmentByBarcode(ctx context.Context, barCode string) (*Appointment, error) {
	var appt Appointment
	path := "/appointments/by-barcode/" + url.PathEscape(barCode)
	if err := p.do(ctx, http.MethodGet, path, nil, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

func (p *HTTPProvider) CancelAppointment(ctx context.Context, appointmentID string) error {
	path := "/appointments/" + url.PathEscape(appointmentID) + "/cancel"
	return p.do(ctx, http.MethodPost, path, nil, nil)
}

func (p *HTTPProvider) UpdateResult(ctx context.Context, appointmentID, latestResult, status string) error {
	path := "/appointments/" + url.PathEscape(appointmentID) + "/result"
	body := map[string]string{
		"latest_result": latestResult,
		"status":        status,
	}
	return p.do(ctx, http.MethodPut, path, body, nil)
}
