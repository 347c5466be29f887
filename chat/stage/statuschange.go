package stage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/contract"
	statex "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/state"
)

// decisionWindow bounds the context passed to confirm/cancel extraction.
const decisionWindow = 6

const (
	instructionNothingToActOn = "Tell the patient they have no appointments on file, so there is nothing to update."
	instructionNotFound       = "Tell the patient you could not find that appointment among theirs and ask them to pick one from their list."

	fallbackNothingToActOn = "You have no appointments on file, so there is nothing for me to update."
	fallbackNotFound       = "I could not find that appointment. Could you pick one from your list?"
	fallbackDecisionRetry  = "Sorry, I did not catch which appointment you meant. Could you say it again?"
)

func instructionAlready(verb string) string {
	return fmt.Sprintf("Tell the patient that appointment is already %s, so nothing needed to change.", verb)
}

func fallbackAlready(appt contractx.Appointment) string {
	return fmt.Sprintf("Your %s with %s is already %s.", appt.Type, appt.DoctorName, appt.Status)
}

func instructionDone(appt contractx.Appointment, status contractx.AppointmentStatus) string {
	return fmt.Sprintf(
		"Tell the patient their %s with %s on %s at %s is now %s.",
		appt.Type, appt.DoctorName, appt.Date, appt.Time, status,
	)
}

func fallbackDone(appt contractx.Appointment, status contractx.AppointmentStatus) string {
	return fmt.Sprintf(
		"Your %s with %s on %s at %s has been %s.",
		appt.Type, appt.DoctorName, appt.Date, appt.Time, status,
	)
}

// Confirm moves one appointment to confirmed.
func Confirm(ctx context.Context, st *statex.ConversationState, d Deps) error {
	return changeStatus(ctx, st, d, contractx.StatusConfirmed, contractx.SchemaConfirmation)
}

// Cancel moves one appointment to cancelled.
func Cancel(ctx context.Context, st *statex.ConversationState, d Deps) error {
	return changeStatus(ctx, st, d, contractx.StatusCancelled, contractx.SchemaCancellation)
}

// changeStatus is the shared confirm/cancel body. The external update is
// attempted only after a definite decision and is immediately mirrored into
// the session cache so cache and store never diverge.
func changeStatus(
	ctx context.Context,
	st *statex.ConversationState,
	d Deps,
	target contractx.AppointmentStatus,
	tag contractx.SchemaTag,
) error {
	appts, err := resolveAppointments(ctx, st, d)
	if err != nil {
		log.Warn().Err(err).Str("session_id", st.SessionID).Msg("appointment lookup failed")
		st.AppendAssistant(replyOrLiteral(ctx, d, instructionListTrouble, fallbackListTrouble, st.Messages))
		return nil
	}

	if len(appts) == 0 {
		st.AppendAssistant(replyOrLiteral(ctx, d, instructionNothingToActOn, fallbackNothingToActOn, st.Messages))
		return nil
	}

	decision, err := d.Models.ExtractAction(ctx, st.Window(decisionWindow), appts, tag)
	if err != nil {
		log.Warn().Err(err).Str("session_id", st.SessionID).Str("schema", string(tag)).Msg("action extraction failed")
		st.AppendAssistant(fallbackDecisionRetry)
		return nil
	}

	if !decision.Act {
		st.AppendAssistant(decision.Message)
		return nil
	}

	appt, ok := st.CachedAppointment(decision.AppointmentID)
	if !ok {
		st.AppendAssistant(replyOrLiteral(ctx, d, instructionNotFound, fallbackNotFound, st.Messages))
		return nil
	}

	if appt.Status == target {
		st.AppendAssistant(replyOrLiteral(ctx, d, instructionAlready(string(target)), fallbackAlready(*appt), st.Messages))
		return nil
	}

	if err := d.Book.UpdateAppointmentStatus(ctx, appt.ID, target); err != nil {
		log.Warn().Err(err).Int64("appointment_id", appt.ID).Msg("appointment status update failed")
		st.AppendAssistant(replyOrLiteral(ctx, d, instructionListTrouble, fallbackListTrouble, st.Messages))
		return nil
	}
	st.SetCachedStatus(appt.ID, target)

	if d.Notifier != nil {
		change := contractx.StatusChange{
			AppointmentID: appt.ID,
			NewStatus:     target,
			PatronID:      st.PatronID(),
		}
		if err := d.Notifier.NotifyStatusChange(ctx, change); err != nil {
			log.Warn().Err(err).Int64("appointment_id", appt.ID).Msg("status change notification failed")
		}
	}

	updated := *appt
	updated.Status = target
	st.AppendAssistant(replyOrLiteral(ctx, d, instructionDone(updated, target), fallbackDone(updated, target), st.Messages))
	return nil
}
