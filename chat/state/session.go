package state

import (
	"errors"
	"fmt"
	"time"

	contractx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/contract"
)

var (
	ErrInvalidSession  = errors.New("session id is empty")
	ErrNilSessionState = errors.New("session state is nil")
)

// ConversationState is the persistent per-session source of truth.
// Messages is append-only; Authenticated is monotonic once true; the
// appointment slice is a session-scoped cache kept write-through with the
// record store.
type ConversationState struct {
	SessionID string `json:"session_id"`

	Messages      []contractx.Message `json:"messages"`
	Authenticated bool                `json:"authenticated"`
	Patron        *contractx.Patron   `json:"patron,omitempty"`

	VisibleAppointments []contractx.Appointment `json:"visible_appointments,omitempty"`
	PendingIntent       contractx.Intent        `json:"pending_intent,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewConversationState(sessionID string, now time.Time) *ConversationState {
	return &ConversationState{
		SessionID: sessionID,
		UpdatedAt: now.UTC(),
	}
}

func (s *ConversationState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

func (s *ConversationState) AppendUser(content string) {
	s.Messages = append(s.Messages, contractx.Message{Role: contractx.RoleUser, Content: content})
}

func (s *ConversationState) AppendAssistant(content string) {
	s.Messages = append(s.Messages, contractx.Message{Role: contractx.RoleAssistant, Content: content})
}

func (s *ConversationState) AppendTool(toolName, content string) {
	s.Messages = append(s.Messages, contractx.Message{
		Role:     contractx.RoleTool,
		Content:  content,
		ToolName: toolName,
	})
}

// LastAssistant returns the most recent assistant message content, or "".
func (s *ConversationState) LastAssistant() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == contractx.RoleAssistant {
			return s.Messages[i].Content
		}
	}
	return ""
}

// Window returns up to the last n messages. n <= 0 returns the full log.
func (s *ConversationState) Window(n int) []contractx.Message {
	if n <= 0 || len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// PatronID returns the verified patron id, or zero when unverified.
func (s *ConversationState) PatronID() int64 {
	if s == nil || s.Patron == nil {
		return 0
	}
	return s.Patron.PatronID
}

// CachedAppointment looks up an appointment by id in the session cache.
func (s *ConversationState) CachedAppointment(id int64) (*contractx.Appointment, bool) {
	for i := range s.VisibleAppointments {
		if s.VisibleAppointments[i].ID == id {
			return &s.VisibleAppointments[i], true
		}
	}
	return nil, false
}

// SetCachedStatus writes a new status into the cached entry for id. The
// caller must have already applied the same status to the record store so
// the two never diverge.
func (s *ConversationState) SetCachedStatus(id int64, status contractx.AppointmentStatus) bool {
	for i := range s.VisibleAppointments {
		if s.VisibleAppointments[i].ID == id {
			s.VisibleAppointments[i].Status = status
			return true
		}
	}
	return false
}

// Validate checks the cross-field invariants that must hold for any state
// loaded from or written to a store.
func (s *ConversationState) Validate() error {
	if s == nil {
		return ErrNilSessionState
	}
	if s.SessionID == "" {
		return ErrInvalidSession
	}
	if s.Authenticated && s.PatronID() == 0 {
		return fmt.Errorf("%w: authenticated state requires a patron id", contractx.ErrValidation)
	}
	return nil
}

// Clone returns a deep copy so callers can hand out state without sharing
// mutable slices.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = append([]contractx.Message(nil), s.Messages...)
	out.VisibleAppointments = append([]contractx.Appointment(nil), s.VisibleAppointments...)
	if s.Patron != nil {
		patron := *s.Patron
		out.Patron = &patron
	}
	return &out
}
