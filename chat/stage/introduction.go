package stage

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/contract"
	statex "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/state"
)

const (
	instructionIntroRetry   = "Apologize briefly that you could not process the patient's message and ask them to repeat their full name, phone number and date of birth."
	instructionIntroClarify = "Some of the details the patient gave look incomplete. Ask them to restate their full name, phone number and date of birth."

	fallbackIntroRetry   = "Sorry, I had trouble processing that. Could you share your full name, phone number and date of birth again?"
	fallbackIntroClarify = "I could not make sense of some of those details. Could you restate your full name, phone number and date of birth?"
)

// Introduction collects full name, phone number and date of birth from the
// conversation. The patron is only set once all three fields validate; an
// extraction or validation problem turns into a clarification reply, never a
// hard failure.
func Introduction(ctx context.Context, st *statex.ConversationState, d Deps) error {
	out, err := d.Models.ExtractUserData(ctx, st.Messages)
	if err != nil {
		log.Warn().Err(err).Str("session_id", st.SessionID).Msg("user data extraction failed")
		st.AppendAssistant(replyOrLiteral(ctx, d, instructionIntroRetry, fallbackIntroRetry, st.Messages))
		return nil
	}

	if !out.DataComplete {
		st.AppendAssistant(out.Message)
		return nil
	}

	patron, err := contractx.NewPatron(out.FullName, out.PhoneNumber, out.DateOfBirth)
	if err != nil {
		log.Warn().Err(err).Str("session_id", st.SessionID).Msg("extracted patron fields failed validation")
		st.AppendAssistant(replyOrLiteral(ctx, d, instructionIntroClarify, fallbackIntroClarify, st.Messages))
		return nil
	}

	st.Patron = &patron
	st.AppendAssistant(out.Message)
	return nil
}
