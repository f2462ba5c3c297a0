package ladder

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// Legacy escalation detector. Keyword matching against the response
// body is fragile in both directions (a helpful reply may quote one of
// these phrases; a refusal may use none of them) and is retained only
// for model adapters that expose no structural handoff signal. The
// list is frozen; do not grow it instead of fixing the adapter.
var escalationPhrases = []string{
	// English
	"i'll need to transfer you",
	"specialist team",
	"one of our experts",
	"need more information to assist",
	"let me connect you",
	// Spanish
	"necesitaré transferirte",
	"voy a consultar con nuestro equipo",
	"equipo de especialistas",
	"nuestros expertos",
	"necesito más información",
	"te conectaré",
	"debo transferirte",
}

// textSignalsEscalation reports whether the reply body reads like an
// escalation. Every hit is logged loudly so false positives can be
// audited.
func textSignalsEscalation(agent string, reply string) bool {
	lowered := strings.ToLower(reply)
	for _, phrase := range escalationPhrases {
		if strings.Contains(lowered, phrase) {
			log.Warn().
				Str("agent", agent).
				Str("phrase", phrase).
				Msg("text-fallback escalation triggered; structural handoff signal was absent")
			return true
		}
	}
	return false
}
