package stage

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/contract"
	statex "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/state"
)

// dispatchWindow bounds the context passed to intent extraction.
const dispatchWindow = 4

const (
	instructionDispatchDenied = "Tell the user you need to verify their identity before helping with appointments, and ask for their full name, phone number and date of birth."
	instructionDispatchRetry  = "Apologize briefly that you did not catch that and ask the patient what they would like to do with their appointments."

	fallbackDispatchDenied = "I need to verify your identity first. Could you share your full name, phone number and date of birth?"
	fallbackDispatchRetry  = "Sorry, I did not catch that. Would you like to list, confirm or cancel an appointment?"
)

// Dispatch detects the patient's intent and records it for routing. It does
// not trust the caller's invocation order: an unauthenticated session gets an
// access-denied style reply and no pending intent.
func Dispatch(ctx context.Context, st *statex.ConversationState, d Deps) error {
	if !st.Authenticated || st.PatronID() == 0 {
		st.PendingIntent = ""
		st.AppendAssistant(replyOrLiteral(ctx, d, instructionDispatchDenied, fallbackDispatchDenied, st.Messages))
		return nil
	}

	out, err := d.Models.ExtractIntent(ctx, st.Window(dispatchWindow))
	if err != nil {
		log.Warn().Err(err).Str("session_id", st.SessionID).Msg("intent extraction failed")
		st.PendingIntent = ""
		st.AppendAssistant(replyOrLiteral(ctx, d, instructionDispatchRetry, fallbackDispatchRetry, st.Messages))
		return nil
	}

	switch out.Intent {
	case contractx.IntentList, contractx.IntentConfirm, contractx.IntentCancel:
		st.PendingIntent = out.Intent
	default:
		st.PendingIntent = ""
	}
	st.AppendAssistant(out.Message)
	return nil
}
