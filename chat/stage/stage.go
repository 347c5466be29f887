package stage

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/contract"
	promptx "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/prompt"
	statex "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/state"
)

var prompts = promptx.LoadPromptSet()

// Stage names one unit of per-turn processing in the conversation graph.
type Stage string

const (
	StageIntroduction Stage = "introduction"
	StageAuthenticate Stage = "authenticate"
	StageDispatch     Stage = "dispatch"
	StageList         Stage = "list"
	StageConfirm      Stage = "confirm"
	StageCancel       Stage = "cancel"
	StageEnd          Stage = "end"
)

// Deps are the capability ports a handler may call. Notifier is optional.
type Deps struct {
	Models   contractx.Models
	Patrons  contractx.PatronDirectory
	Book     contractx.AppointmentBook
	Notifier contractx.Notifier
}

// Entry picks the first stage of a turn. Previously authenticated sessions
// skip straight to dispatch so returning users are not re-verified.
func Entry(st *statex.ConversationState) Stage {
	if st.Authenticated && st.PatronID() != 0 {
		return StageDispatch
	}
	return StageIntroduction
}

// Next maps a completed stage to its successor. Dispatch consumes the
// pending intent as part of the transition; list/confirm/cancel are turn
// boundaries.
func Next(current Stage, st *statex.ConversationState) Stage {
	switch current {
	case StageIntroduction:
		if st.Patron != nil {
			return StageAuthenticate
		}
		return StageEnd
	case StageAuthenticate:
		if st.Authenticated {
			return StageDispatch
		}
		return StageEnd
	case StageDispatch:
		intent := st.PendingIntent
		st.PendingIntent = ""
		switch intent {
		case contractx.IntentList:
			return StageList
		case contractx.IntentConfirm:
			return StageConfirm
		case contractx.IntentCancel:
			return StageCancel
		default:
			return StageEnd
		}
	default:
		return StageEnd
	}
}

// replyOrLiteral is the tiered degrade path for recovery messages: ask the
// generation capability first, fall back to the fixed literal when that also
// fails. It never returns an empty string.
func replyOrLiteral(ctx context.Context, d Deps, instruction, literal string, window []contractx.Message) string {
	msg, err := d.Models.GenerateReply(ctx, instruction, window)
	if err != nil {
		log.Warn().Err(err).Msg("reply generation failed, using literal fallback")
		return literal
	}
	if strings.TrimSpace(msg) == "" {
		return literal
	}
	return msg
}
