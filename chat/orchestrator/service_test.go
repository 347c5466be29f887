package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/contract"
	recordsx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/records"
	stagex "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/stage"
	statex "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/state"
)

// scriptedModels is mutated between turns so one fake can drive a whole
// conversation.
type scriptedModels struct {
	userData contractx.UserDataExtraction
	intent   contractx.IntentDecision
	action   contractx.ActionDecision
	reply    string
}

func (f *scriptedModels) ExtractUserData(ctx context.Context, window []contractx.Message) (contractx.UserDataExtraction, error) {
	return f.userData, nil
}

func (f *scriptedModels) ExtractIntent(ctx context.Context, window []contractx.Message) (contractx.IntentDecision, error) {
	return f.intent, nil
}

func (f *scriptedModels) ExtractAction(ctx context.Context, window []contractx.Message, appointments []contractx.Appointment, tag contractx.SchemaTag) (contractx.ActionDecision, error) {
	return f.action, nil
}

func (f *scriptedModels) GenerateReply(ctx context.Context, instruction string, window []contractx.Message) (string, error) {
	return f.reply, nil
}

type countingDirectory struct {
	inner contractx.PatronDirectory
	calls int
}

func (d *countingDirectory) VerifyPatron(ctx context.Context, fullName, phoneNumber, dateOfBirth string) (contractx.Verification, error) {
	d.calls++
	return d.inner.VerifyPatron(ctx, fullName, phoneNumber, dateOfBirth)
}

type failingStore struct{}

func (failingStore) Load(ctx context.Context, sessionID string) (*statex.ConversationState, error) {
	return nil, errors.New("redis down")
}

func (failingStore) Save(ctx context.Context, st *statex.ConversationState) error {
	return errors.New("redis down")
}

func (failingStore) Delete(ctx context.Context, sessionID string) error {
	return errors.New("redis down")
}

func newTestOrchestrator(t *testing.T, models contractx.Models) (*Orchestrator, *statex.InMemoryStore, *recordsx.InMemoryStore) {
	t.Helper()
	sessions := statex.NewInMemoryStore()
	records := recordsx.NewSeededInMemoryStore(time.Now())
	orch, err := New(sessions, stagex.Deps{Models: models, Patrons: records, Book: records})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return orch, sessions, records
}

func TestHandleTurnFullConversation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	models := &scriptedModels{reply: "generated reply"}
	orch, sessions, records := newTestOrchestrator(t, models)

	// Turn 1: the patient only says hello, extraction reports missing data.
	models.userData = contractx.UserDataExtraction{
		DataComplete: false,
		Message:      "Could you share your full name, phone number and date of birth?",
	}
	res, err := orch.HandleTurn(ctx, "sess-1", "hello")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if res.Authenticated {
		t.Fatal("Authenticated = true after greeting")
	}
	if res.Reply != "Could you share your full name, phone number and date of birth?" {
		t.Fatalf("reply = %q", res.Reply)
	}

	// Turn 2: full details arrive, verification succeeds against the seeded
	// records, intent asks for the appointment list.
	models.userData = contractx.UserDataExtraction{
		DataComplete: true,
		FullName:     "John Smith",
		PhoneNumber:  "(555) 010-1001",
		DateOfBirth:  "15/03/1985",
		Message:      "Thanks, verifying you now.",
	}
	models.intent = contractx.IntentDecision{Intent: contractx.IntentList, Message: "Let me pull those up."}
	res, err = orch.HandleTurn(ctx, "sess-1", "John Smith, (555) 010-1001, born 15/03/1985, show my appointments")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if !res.Authenticated {
		t.Fatal("Authenticated = false after successful verification")
	}
	if res.Reply != "generated reply" {
		t.Fatalf("reply = %q, want presentation reply", res.Reply)
	}

	st, err := sessions.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(st.VisibleAppointments) != 2 {
		t.Fatalf("cached appointments = %d, want 2", len(st.VisibleAppointments))
	}
	if st.PatronID() != 1 {
		t.Fatalf("PatronID() = %d, want 1", st.PatronID())
	}

	// Turn 3: confirm the blood test (appointment 2). Store and session cache
	// must both end up confirmed.
	models.intent = contractx.IntentDecision{Intent: contractx.IntentConfirm, Message: "Confirming that for you."}
	models.action = contractx.ActionDecision{Act: true, AppointmentID: 2}
	res, err = orch.HandleTurn(ctx, "sess-1", "please confirm the blood test")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if res.Reply != "generated reply" {
		t.Fatalf("reply = %q", res.Reply)
	}

	appts, err := records.ListAppointments(ctx, 1)
	if err != nil {
		t.Fatalf("ListAppointments() error = %v", err)
	}
	for _, appt := range appts {
		if appt.ID == 2 && appt.Status != contractx.StatusConfirmed {
			t.Fatalf("record store status = %q, want confirmed", appt.Status)
		}
	}

	st, err = sessions.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cached, ok := st.CachedAppointment(2)
	if !ok || cached.Status != contractx.StatusConfirmed {
		t.Fatalf("cached appointment 2 = %+v, want confirmed", cached)
	}
	if st.PendingIntent != "" {
		t.Fatalf("PendingIntent = %q, want cleared after routing", st.PendingIntent)
	}
}

func TestHandleTurnUnknownPatronStaysUnauthenticated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	models := &scriptedModels{
		reply: "generated reply",
		userData: contractx.UserDataExtraction{
			DataComplete: true,
			FullName:     "Jane Doe",
			PhoneNumber:  "555-999-0000",
			DateOfBirth:  "1991-01-01",
			Message:      "Let me verify you.",
		},
	}

	sessions := statex.NewInMemoryStore()
	records := recordsx.NewSeededInMemoryStore(time.Now())
	directory := &countingDirectory{inner: records}
	orch, err := New(sessions, stagex.Deps{Models: models, Patrons: directory, Book: records})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	res, err := orch.HandleTurn(ctx, "sess-2", "Jane Doe, 555-999-0000, 1991-01-01")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if res.Authenticated {
		t.Fatal("Authenticated = true for unknown patron")
	}
	if directory.calls != 1 {
		t.Fatalf("verify calls = %d, want 1", directory.calls)
	}

	// The next turn starts from introduction again: the directory is queried a
	// second time instead of the session skipping to dispatch.
	if _, err := orch.HandleTurn(ctx, "sess-2", "Jane Doe, 555-999-0000, 1991-01-01"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if directory.calls != 2 {
		t.Fatalf("verify calls = %d, want 2", directory.calls)
	}
}

func TestHandleTurnAuthenticatedSessionSkipsIntroduction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	models := &scriptedModels{
		reply: "generated reply",
		userData: contractx.UserDataExtraction{
			DataComplete: true,
			FullName:     "John Smith",
			PhoneNumber:  "555-010-1001",
			DateOfBirth:  "1985-03-15",
			Message:      "Verifying.",
		},
		intent: contractx.IntentDecision{Intent: contractx.IntentEnd, Message: "Anything else?"},
	}

	sessions := statex.NewInMemoryStore()
	records := recordsx.NewSeededInMemoryStore(time.Now())
	directory := &countingDirectory{inner: records}
	orch, err := New(sessions, stagex.Deps{Models: models, Patrons: directory, Book: records})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := orch.HandleTurn(ctx, "sess-3", "John Smith, 555-010-1001, 1985-03-15"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if directory.calls != 1 {
		t.Fatalf("verify calls = %d, want 1", directory.calls)
	}

	res, err := orch.HandleTurn(ctx, "sess-3", "what can you do?")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if !res.Authenticated {
		t.Fatal("Authenticated = false on returning session")
	}
	if directory.calls != 1 {
		t.Fatalf("verify calls = %d, want still 1: no re-verification", directory.calls)
	}
	if res.Reply != "Anything else?" {
		t.Fatalf("reply = %q, want dispatch message", res.Reply)
	}
}

func TestHandleTurnRejectsEmptyMessage(t *testing.T) {
	t.Parallel()

	models := &scriptedModels{}
	orch, _, _ := newTestOrchestrator(t, models)

	_, err := orch.HandleTurn(context.Background(), "sess-4", "   ")
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("HandleTurn() error = %v, want ErrInvalidMessage", err)
	}
}

func TestHandleTurnAssignsSessionID(t *testing.T) {
	t.Parallel()

	models := &scriptedModels{
		reply:    "generated reply",
		userData: contractx.UserDataExtraction{Message: "Who is this?"},
	}
	orch, _, _ := newTestOrchestrator(t, models)

	res, err := orch.HandleTurn(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if res.SessionID == "" {
		t.Fatal("SessionID empty, want generated id")
	}
}

func TestHandleTurnStoreFailure(t *testing.T) {
	t.Parallel()

	models := &scriptedModels{}
	records := recordsx.NewSeededInMemoryStore(time.Now())
	orch, err := New(failingStore{}, stagex.Deps{Models: models, Patrons: records, Book: records})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = orch.HandleTurn(context.Background(), "sess-5", "hello")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("HandleTurn() error = %v, want ErrStoreUnavailable", err)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()

	records := recordsx.NewSeededInMemoryStore(time.Now())
	models := &scriptedModels{}

	if _, err := New(nil, stagex.Deps{Models: models, Patrons: records, Book: records}); err == nil {
		t.Fatal("New(nil store) error = nil")
	}
	if _, err := New(statex.NewInMemoryStore(), stagex.Deps{Patrons: records, Book: records}); err == nil {
		t.Fatal("New() without models: error = nil")
	}
	if _, err := New(statex.NewInMemoryStore(), stagex.Deps{Models: models, Book: records}); err == nil {
		t.Fatal("New() without directory: error = nil")
	}
	if _, err := New(statex.NewInMemoryStore(), stagex.Deps{Models: models, Patrons: records}); err == nil {
		t.Fatal("New() without book: error = nil")
	}
}
