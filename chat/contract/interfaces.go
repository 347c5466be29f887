package contract

import "context"

// Generator produces a free-form assistant reply from an instruction and a
// window of conversation context.
type Generator interface {
	GenerateReply(ctx context.Context, instruction string, window []Message) (string, error)
}

// Extractor turns conversation context into typed decisions. One method per
// schema; the decision instructions are fixed by the implementation. For
// confirm/cancel decisions the current appointment snapshot is part of the
// model context and the tag picks between the two instructions.
type Extractor interface {
	ExtractUserData(ctx context.Context, window []Message) (UserDataExtraction, error)
	ExtractIntent(ctx context.Context, window []Message) (IntentDecision, error)
	ExtractAction(ctx context.Context, window []Message, appointments []Appointment, tag SchemaTag) (ActionDecision, error)
}

// Models is the full natural-language capability surface consumed by the
// stage handlers.
type Models interface {
	Generator
	Extractor
}

// PatronDirectory verifies a patron against the record store.
type PatronDirectory interface {
	VerifyPatron(ctx context.Context, fullName, phoneNumber, dateOfBirth string) (Verification, error)
}

// AppointmentBook reads and mutates appointment records.
type AppointmentBook interface {
	ListAppointments(ctx context.Context, patronID int64) ([]Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, appointmentID int64, status AppointmentStatus) error
}

// Notifier receives completed status changes. Implementations must not block
// the turn on delivery problems; errors are logged, not propagated.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, change StatusChange) error
}
