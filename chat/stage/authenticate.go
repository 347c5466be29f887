package stage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	statex "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/state"
)

const (
	instructionAuthMissing  = "Ask the patient for their full name, phone number and date of birth so you can verify them."
	instructionAuthTrouble  = "Apologize that verification is temporarily unavailable and ask the patient to try again shortly."
	instructionAuthRejected = "Tell the patient you could not verify them with the details given and ask them to double-check their full name, phone number and date of birth."

	fallbackAuthMissing  = "I still need your full name, phone number and date of birth to verify you."
	fallbackAuthTrouble  = "Sorry, I could not verify you right now. Please try again in a moment."
	fallbackAuthRejected = "I could not verify you with those details. Could you double-check your full name, phone number and date of birth?"
)

func instructionWelcome(name string) string {
	return fmt.Sprintf("The patient %s was just verified. Welcome them back by name and offer to help with their appointments.", name)
}

func fallbackWelcome(name string) string {
	return fmt.Sprintf("Welcome back, %s! How can I help you with your appointments today?", name)
}

// Authenticate verifies the collected patron against the directory. On
// success the patron id is merged and the session becomes authenticated; any
// directory failure degrades to a recovery reply with the session left
// unauthenticated.
func Authenticate(ctx context.Context, st *statex.ConversationState, d Deps) error {
	if st.Patron == nil {
		st.AppendAssistant(replyOrLiteral(ctx, d, instructionAuthMissing, fallbackAuthMissing, st.Messages))
		return nil
	}

	v, err := d.Patrons.VerifyPatron(ctx, st.Patron.FullName, st.Patron.PhoneNumber, st.Patron.DateOfBirth)
	if err != nil {
		log.Warn().Err(err).Str("session_id", st.SessionID).Msg("patron verification failed")
		st.AppendAssistant(replyOrLiteral(ctx, d, instructionAuthTrouble, fallbackAuthTrouble, st.Messages))
		return nil
	}

	if !v.Verified {
		st.AppendAssistant(replyOrLiteral(ctx, d, instructionAuthRejected, fallbackAuthRejected, st.Messages))
		return nil
	}

	st.Authenticated = true
	st.Patron.PatronID = v.PatronID
	name := v.FullName
	if name == "" {
		name = st.Patron.FullName
	} else {
		st.Patron.FullName = name
	}
	st.AppendAssistant(replyOrLiteral(ctx, d, instructionWelcome(name), fallbackWelcome(name), st.Messages))
	return nil
}
