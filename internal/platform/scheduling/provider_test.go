package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMemoryProviderLookup(t *testing.T) {
	p := NewMemoryProvider()
	p.Put(&Appointment{ID: "a1", BarCode: "BC100", Status: StatusSubmitted})

	appt, err := p.AppointmentByBarcode(context.Background(), "BC100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.ID != "a1" {
		t.Errorf("expected appointment a1, got %s", appt.ID)
	}
}

func TestMemoryProviderUnknownBarcode(t *testing.T) {
	p := NewMemoryProvider()
	_, err := p.AppointmentByBarcode(context.Background(), "nope")
	if !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestMemoryProviderUpdateResult(t *testing.T) {
	p := NewMemoryProvider()
	p.Put(&Appointment{ID: "a1", BarCode: "BC100", Status: StatusInProgress})

	if err := p.UpdateResult(context.Background(), "a1", "Negative", StatusReported); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	appt, _ := p.AppointmentByBarcode(context.Background(), "BC100")
	if appt.LatestResult != "Negative" || appt.Status != StatusReported {
		t.Errorf("writeback not applied: %+v", appt)
	}
}

func TestMemoryProviderCancel(t *testing.T) {
	p := NewMemoryProvider()
	p.Put(&Appointment{ID: "a1", BarCode: "BC100", Status: StatusPending})

	if err := p.CancelAppointment(context.Background(), "a1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	appt, _ := p.AppointmentByBarcode(context.Background(), "BC100")
	if appt.Status != StatusCanceled {
		t.Errorf("expected Canceled, got %s", appt.Status)
	}
}

func TestMemoryProviderCancelTerminalStatus(t *testing.T) {
	p := NewMemoryProvider()
	p.Put(&Appointment{ID: "a1", BarCode: "BC100", Status: StatusReported})

	if err := p.CancelAppointment(context.Background(), "a1"); err == nil {
		t.Fatal("expected cancel of a reported appointment to fail")
	}
	appt, _ := p.AppointmentByBarcode(context.Background(), "BC100")
	if appt.Status != StatusReported {
		t.Errorf("expected status unchanged, got %s", appt.Status)
	}
}

func TestCancelable(t *testing.T) {
	if !Cancelable(StatusInProgress) {
		t.Error("InProgress should be cancelable")
	}
	if Cancelable(StatusReported) {
		t.Error("Reported should not be cancelable")
	}
	if Cancelable(StatusCanceled) {
		t.Error("Canceled should not be cancelable")
	}
}

func TestHTTPProviderAppointmentByBarcode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/appointments/by-barcode/BC100" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "key123" {
			t.Errorf("missing api key header")
		}
		json.NewEncoder(w).Encode(Appointment{
			ID:             "a1",
			BarCode:        "BC100",
			CollectionTime: time.Date(2021, 10, 24, 9, 0, 0, 0, time.UTC),
			Status:         StatusSubmitted,
		})
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "key123")
	appt, err := p.AppointmentByBarcode(context.Background(), "BC100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.ID != "a1" {
		t.Errorf("expected a1, got %s", appt.ID)
	}
}

func TestHTTPProviderNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "")
	_, err := p.AppointmentByBarcode(context.Background(), "missing")
	if !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestHTTPProviderServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "")
	_, err := p.AppointmentByBarcode(context.Background(), "BC100")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestHTTPProviderUpdateResult(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "")
	if err := p.UpdateResult(context.Background(), "a1", "Positive", StatusReported); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["latest_result"] != "Positive" || got["status"] != StatusReported {
		t.Errorf("unexpected body: %v", got)
	}
}
