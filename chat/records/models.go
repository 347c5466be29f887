package records

import (
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/contract"
)

// PatientRow mirrors the patients table.
type PatientRow struct {
	bun.BaseModel `bun:"table:patients"`

	ID          int64  `bun:"id,pk,autoincrement"`
	FullName    string `bun:"full_name,notnull"`
	PhoneNumber string `bun:"phone_number,notnull"`
	DateOfBirth string `bun:"date_of_birth,notnull"`
}

// AppointmentRow mirrors the appointments table. Date is YYYY-MM-DD and Time
// is HH:MM, kept as text to match the verification inputs.
type AppointmentRow struct {
	bun.BaseModel `bun:"table:appointments"`

	ID        int64  `bun:"id,pk,autoincrement"`
	PatientID int64  `bun:"patient_id,notnull"`
	Date      string `bun:"appointment_date,notnull"`
	Time      string `bun:"appointment_time,notnull"`
	Doctor    string `bun:"doctor_name,notnull"`
	Type      string `bun:"appointment_type,notnull"`
	Status    string `bun:"status,notnull,default:'scheduled'"`
}

func (r AppointmentRow) toAppointment() contractx.Appointment {
	return contractx.Appointment{
		ID:         r.ID,
		Date:       r.Date,
		Time:       r.Time,
		DoctorName: r.Doctor,
		Type:       r.Type,
		Status:     contractx.AppointmentStatus(r.Status),
	}
}

// SamplePatients and SampleAppointments seed demo data. Appointment dates are
// relative to now so the fixtures always sit in the future.
func SamplePatients() []PatientRow {
	return []PatientRow{
		{ID: 1, FullName: "John Smith", PhoneNumber: "555-010-1001", DateOfBirth: "1985-03-15"},
		{ID: 2, FullName: "Maria Garcia", PhoneNumber: "555-010-2001", DateOfBirth: "1990-07-22"},
	}
}

func SampleAppointments(now time.Time) []AppointmentRow {
	base := now.AddDate(0, 0, 1)
	return []AppointmentRow{
		{ID: 1, PatientID: 1, Date: base.Format("2006-01-02"), Time: "09:00", Doctor: "Dr. Anderson", Type: "General Checkup", Status: string(contractx.StatusScheduled)},
		{ID: 2, PatientID: 1, Date: base.AddDate(0, 0, 2).Format("2006-01-02"), Time: "14:30", Doctor: "Dr. Brown", Type: "Blood Test", Status: string(contractx.StatusScheduled)},
		{ID: 3, PatientID: 2, Date: base.AddDate(0, 0, 1).Format("2006-01-02"), Time: "10:15", Doctor: "Dr. Wilson", Type: "Follow-up", Status: string(contractx.StatusScheduled)},
	}
}
