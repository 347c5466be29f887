package records

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	contractx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/contract"
)

// InMemoryStore is a volatile record store for tests and demo runs. Safe for
// concurrent access.
type InMemoryStore struct {
	mu           sync.RWMutex
	patients     []PatientRow
	appointments []AppointmentRow
}

var (
	_ contractx.PatronDirectory = (*InMemoryStore)(nil)
	_ contractx.AppointmentBook = (*InMemoryStore)(nil)
)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// NewSeededInMemoryStore returns a store preloaded with the sample rows.
func NewSeededInMemoryStore(now time.Time) *InMemoryStore {
	return &InMemoryStore{
		patients:     SamplePatients(),
		appointments: SampleAppointments(now),
	}
}

func (s *InMemoryStore) VerifyPatron(ctx context.Context, fullName, phoneNumber, dateOfBirth string) (contractx.Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.patients {
		if p.FullName == fullName && p.PhoneNumber == phoneNumber && p.DateOfBirth == dateOfBirth {
			return contractx.Verification{Verified: true, PatronID: p.ID, FullName: p.FullName}, nil
		}
	}
	return contractx.Verification{Verified: false}, nil
}

func (s *InMemoryStore) ListAppointments(ctx context.Context, patronID int64) ([]contractx.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var appointments []contractx.Appointment
	for _, row := range s.appointments {
		if row.PatientID == patronID {
			appointments = append(appointments, row.toAppointment())
		}
	}
	sort.Slice(appointments, func(i, j int) bool {
		if appointments[i].Date != appointments[j].Date {
			return appointments[i].Date < appointments[j].Date
		}
		return appointments[i].Time < appointments[j].Time
	})
	return appointments, nil
}

func (s *InMemoryStore) UpdateAppointmentStatus(ctx context.Context, appointmentID int64, status contractx.AppointmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.appointments {
		if s.appointments[i].ID == appointmentID {
			s.appointments[i].Status = string(status)
			return nil
		}
	}
	return fmt.Errorf("%w: id=%d", contractx.ErrAppointmentNotFound, appointmentID)
}
