package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/user_data.txt
	userDataRaw string

	//go:embed template/intent.txt
	intentRaw string

	//go:embed template/confirmation.txt
	confirmationRaw string

	//go:embed template/cancellation.txt
	cancellationRaw string

	//go:embed template/present.txt
	presentRaw string
)

// PromptSet holds the fixed extraction and presentation instructions.
type PromptSet struct {
	UserData     string
	Intent       string
	Confirmation string
	Cancellation string
	Present      string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings. Safe to call
// concurrently; the embed is compile-time, and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		UserData:     strings.TrimSpace(userDataRaw),
		Intent:       strings.TrimSpace(intentRaw),
		Confirmation: strings.TrimSpace(confirmationRaw),
		Cancellation: strings.TrimSpace(cancellationRaw),
		Present:      strings.TrimSpace(presentRaw),
	}
}
