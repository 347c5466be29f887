package contract

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Role tags a turn record in the conversation log.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn record. ToolName is set only for tool-produced content.
type Message struct {
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	ToolName string `json:"tool_name,omitempty"`
}

// Patron holds the identity fields collected during introduction. PatronID is
// zero until verification succeeds.
type Patron struct {
	PatronID    int64  `json:"patron_id,omitempty"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	DateOfBirth string `json:"date_of_birth"`
}

// NewPatron builds a patron record from extracted free-text fields, applying
// phone and date normalization. All three fields are required.
func NewPatron(fullName, phoneNumber, dateOfBirth string) (Patron, error) {
	fullName = strings.TrimSpace(fullName)
	phoneNumber = strings.TrimSpace(phoneNumber)
	dateOfBirth = strings.TrimSpace(dateOfBirth)

	if fullName == "" {
		return Patron{}, fmt.Errorf("%w: full name is required", ErrValidation)
	}
	if phoneNumber == "" {
		return Patron{}, fmt.Errorf("%w: phone number is required", ErrValidation)
	}
	if dateOfBirth == "" {
		return Patron{}, fmt.Errorf("%w: date of birth is required", ErrValidation)
	}

	return Patron{
		FullName:    fullName,
		PhoneNumber: NormalizePhone(phoneNumber),
		DateOfBirth: NormalizeDate(dateOfBirth),
	}, nil
}

// NormalizePhone regroups exactly-10-digit inputs as DDD-DDD-DDDD. Anything
// else is returned unchanged.
func NormalizePhone(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) != 10 {
		return raw
	}
	return d[:3] + "-" + d[3:6] + "-" + d[6:]
}

// dateInputFormats are tried in order; the first successful parse wins.
var dateInputFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"January 2, 2006",
	"2 January 2006",
	"Jan 2, 2006",
}

// NormalizeDate renders a parseable date as YYYY-MM-DD, otherwise returns the
// input unchanged.
func NormalizeDate(raw string) string {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range dateInputFormats {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is a snapshot of an appointment record. Date is YYYY-MM-DD and
// Time is HH:MM, matching the record store's column formats.
type Appointment struct {
	ID         int64             `json:"id"`
	Date       string            `json:"date"`
	Time       string            `json:"time"`
	DoctorName string            `json:"doctor_name"`
	Type       string            `json:"type"`
	Status     AppointmentStatus `json:"status"`
}

// RenderAppointments builds the deterministic plain-text presentation used
// both as model context and as the fallback reply when generation fails.
func RenderAppointments(appointments []Appointment) string {
	var b strings.Builder
	for i, appt := range appointments {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Appointment %d: %s\n", appt.ID, appt.Type)
		fmt.Fprintf(&b, "  Doctor: %s\n", appt.DoctorName)
		fmt.Fprintf(&b, "  When: %s at %s\n", appt.Date, appt.Time)
		fmt.Fprintf(&b, "  Status: %s", appt.Status)
	}
	return b.String()
}

// SchemaTag selects the structured-output schema for an extraction call.
type SchemaTag string

const (
	SchemaUserData     SchemaTag = "user_data_extraction"
	SchemaIntent       SchemaTag = "intent_decision"
	SchemaConfirmation SchemaTag = "confirmation_decision"
	SchemaCancellation SchemaTag = "cancellation_decision"
	SchemaGeneralReply SchemaTag = "general_reply"
)

// Intent is the post-dispatch route selected from the conversation.
type Intent string

const (
	IntentList    Intent = "list"
	IntentConfirm Intent = "confirm"
	IntentCancel  Intent = "cancel"
	IntentEnd     Intent = "end"
)

// UserDataExtraction is the structured result of the introduction stage's
// extraction call.
type UserDataExtraction struct {
	DataComplete bool   `json:"data_complete"`
	FullName     string `json:"full_name,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	DateOfBirth  string `json:"date_of_birth,omitempty"`
	Message      string `json:"message"`
}

// IntentDecision is the structured result of the dispatch stage's extraction
// call.
type IntentDecision struct {
	Intent  Intent `json:"intent"`
	Message string `json:"message"`
}

// ActionDecision is the structured result of a confirm or cancel decision
// call. Act false means the model is asking for clarification via Message.
type ActionDecision struct {
	Act           bool   `json:"act"`
	AppointmentID int64  `json:"appointment_id,omitempty"`
	Message       string `json:"message"`
}

// Verification is the outcome of a patron lookup.
type Verification struct {
	Verified bool   `json:"verified"`
	PatronID int64  `json:"patron_id,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// StatusChange describes a completed appointment status mutation.
type StatusChange struct {
	AppointmentID int64             `json:"appointment_id"`
	NewStatus     AppointmentStatus `json:"new_status"`
	PatronID      int64             `json:"patron_id,omitempty"`
}
