package stage

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/contract"
	statex "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/state"
)

const (
	instructionListEmpty   = "Tell the patient they have no appointments on file and offer to help with anything else."
	instructionListTrouble = "Apologize that the appointment system is temporarily unavailable and ask the patient to try again shortly."

	fallbackListEmpty   = "You have no appointments on file. Is there anything else I can help you with?"
	fallbackListTrouble = "Sorry, I could not reach the appointment system right now. Please try again in a moment."

	appointmentsToolName = "list_appointments"
)

// resolveAppointments returns the session's appointment view, querying the
// book only when the cache is empty. The cache is the sole invalidation
// trigger; a populated cache is always trusted within the session.
func resolveAppointments(ctx context.Context, st *statex.ConversationState, d Deps) ([]contractx.Appointment, error) {
	if len(st.VisibleAppointments) > 0 {
		return st.VisibleAppointments, nil
	}
	appts, err := d.Book.ListAppointments(ctx, st.PatronID())
	if err != nil {
		return nil, err
	}
	st.VisibleAppointments = appts
	return appts, nil
}

// List shows the patient's appointments. The structured rendering is always
// produced first so a generation failure only costs phrasing, never data.
func List(ctx context.Context, st *statex.ConversationState, d Deps) error {
	appts, err := resolveAppointments(ctx, st, d)
	if err != nil {
		log.Warn().Err(err).Str("session_id", st.SessionID).Msg("appointment lookup failed")
		st.AppendAssistant(replyOrLiteral(ctx, d, instructionListTrouble, fallbackListTrouble, st.Messages))
		return nil
	}

	if len(appts) == 0 {
		st.AppendAssistant(replyOrLiteral(ctx, d, instructionListEmpty, fallbackListEmpty, st.Messages))
		return nil
	}

	rendered := contractx.RenderAppointments(appts)
	st.AppendTool(appointmentsToolName, rendered)

	msg, err := d.Models.GenerateReply(ctx, prompts.Present, st.Window(dispatchWindow+1))
	if err != nil || msg == "" {
		if err != nil {
			log.Warn().Err(err).Str("session_id", st.SessionID).Msg("appointment presentation failed, replying with plain rendering")
		}
		st.AppendAssistant(rendered)
		return nil
	}
	st.AppendAssistant(msg)
	return nil
}
