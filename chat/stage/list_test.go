package stage

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/contract"
)

func sampleAppointments() []contractx.Appointment {
	return []contractx.Appointment{
		{ID: 1, Date: "2026-09-02", Time: "09:00", DoctorName: "Dr. Anderson", Type: "General Checkup", Status: contractx.StatusScheduled},
		{ID: 2, Date: "2026-09-04", Time: "14:30", DoctorName: "Dr. Brown", Type: "Blood Test", Status: contractx.StatusScheduled},
	}
}

func TestListQueriesBookWhenCacheEmpty(t *testing.T) {
	t.Parallel()

	m := &fakeModels{reply: "Here are your appointments."}
	book := &fakeBook{appointments: sampleAppointments()}
	st := authenticatedState(t)

	if err := List(context.Background(), st, Deps{Models: m, Book: book}); err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if book.listCalls != 1 {
		t.Fatalf("listCalls = %d, want 1", book.listCalls)
	}
	if len(st.VisibleAppointments) != 2 {
		t.Fatalf("cached appointments = %d, want 2", len(st.VisibleAppointments))
	}
	if got := st.LastAssistant(); got != "Here are your appointments." {
		t.Fatalf("reply = %q", got)
	}

	// The structured rendering goes into the log as a tool message.
	toolMsg := st.Messages[len(st.Messages)-2]
	if toolMsg.Role != contractx.RoleTool || toolMsg.ToolName != appointmentsToolName {
		t.Fatalf("tool message = %+v", toolMsg)
	}
}

func TestListTrustsPopulatedCache(t *testing.T) {
	t.Parallel()

	m := &fakeModels{reply: "Here they are."}
	book := &fakeBook{}
	st := authenticatedState(t)
	st.VisibleAppointments = sampleAppointments()

	if err := List(context.Background(), st, Deps{Models: m, Book: book}); err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if book.listCalls != 0 {
		t.Fatalf("listCalls = %d, want 0 when cache is populated", book.listCalls)
	}
}

func TestListEmptyBook(t *testing.T) {
	t.Parallel()

	m := &fakeModels{replyErr: errors.New("model down")}
	book := &fakeBook{}
	st := authenticatedState(t)

	if err := List(context.Background(), st, Deps{Models: m, Book: book}); err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if got := st.LastAssistant(); got != fallbackListEmpty {
		t.Fatalf("reply = %q, want empty-list fallback", got)
	}
}

func TestListBookFailure(t *testing.T) {
	t.Parallel()

	m := &fakeModels{replyErr: errors.New("model down")}
	book := &fakeBook{listErr: errors.New("db down")}
	st := authenticatedState(t)

	if err := List(context.Background(), st, Deps{Models: m, Book: book}); err != nil {
		t.Fatalf("List() error = %v, want degraded nil", err)
	}

	if len(st.VisibleAppointments) != 0 {
		t.Fatalf("cache = %#v, want untouched on failure", st.VisibleAppointments)
	}
	if got := st.LastAssistant(); got != fallbackListTrouble {
		t.Fatalf("reply = %q, want trouble fallback", got)
	}
}

func TestListFallsBackToPlainRendering(t *testing.T) {
	t.Parallel()

	m := &fakeModels{replyErr: errors.New("model down")}
	book := &fakeBook{appointments: sampleAppointments()}
	st := authenticatedState(t)

	if err := List(context.Background(), st, Deps{Models: m, Book: book}); err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := contractx.RenderAppointments(sampleAppointments())
	if got := st.LastAssistant(); got != want {
		t.Fatalf("reply = %q, want plain rendering", got)
	}
}
