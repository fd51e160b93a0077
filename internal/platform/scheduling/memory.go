package scheduling

import (
	"context"
	"fmt"
	"sync"
)

// MemoryProvider is an in-process Provider for tests and development mode.
type MemoryProvider struct {
	mu    sync.RWMutex
	byBar map[string]*Appointment
	byID  map[string]*Appointment
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		byBar: make(map[string]*Appointment),
		byID:  make(map[string]*Appointment),
	}
}

// Put registers or replaces an appointment.
func (p *MemoryProvider) Put(appt *Appointment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := *appt
	p.byBar[cp.BarCode] = &cp
	p.byID[cp.ID] = &cp
}

func (p *MemoryProvider) AppointmentByBarcode(_ context.Context, barCode string) (*Appointment, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	appt, ok := p.byBar[barCode]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *appt
	return &cp, nil
}

func (p *MemoryProvider) CancelAppointment(_ context.Context, appointmentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	appt, ok := p.byID[appointmentID]
	if !ok {
		return ErrAppointmentNotFound
	}
	if !Cancelable(appt.Status) {
		return fmt.Errorf("appointment %s is not cancelable from %s", appointmentID, appt.Status)
	}
	appt.Status = StatusCanceled
	return nil
}

func (p *MemoryProvider) UpdateResult(_ context.Context, appointmentID, latestResult, status string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	appt, ok := p.byID[appointmentID]
	if !ok {
		return ErrAppointmentNotFound
	}
	appt.LatestResult = latestResult
	appt.Status = status
	return nil
}
