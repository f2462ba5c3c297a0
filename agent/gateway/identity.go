package gateway

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/c1do1/whatsapp-support/agent/contract"
	"github.com/c1do1/whatsapp-support/pkg/helpdesk"
)

// primaryUserField is the field the helpdesk is configured to send.
// The alternates cover older installations and localized forms.
const primaryUserField = "phone"

var alternateUserFields = []string{
	"telefono",
	"celular",
	"whatsapp",
	"phone_number",
	"user_id",
	"numero",
}

// phonePattern matches an international phone number with at least
// ten digits, optionally prefixed with +.
var phonePattern = regexp.MustCompile(`\+?[0-9]{10,15}`)

// resolveUser walks the extraction chain until one step yields a user
// id. The second return names the step that matched, for the logs.
func (h *Handler) resolveUser(payload *helpdesk.AnswerPayload, rawBody []byte) (string, string, error) {
	if v, ok := payload.StringField(primaryUserField); ok && v != "" {
		return normalizePhone(v), "primary field", nil
	}

	for _, name := range alternateUserFields {
		if v, ok := payload.StringField(name); ok && v != "" {
			return normalizePhone(v), "alternate field " + name, nil
		}
	}

	for name, v := range payload.StringFields() {
		if name == "answer" || name == "respuesta" || name == "resolution" {
			continue
		}
		if m := phonePattern.FindString(v); m != "" {
			return normalizePhone(m), "pattern in field " + name, nil
		}
	}

	if m := phonePattern.FindString(string(rawBody)); m != "" {
		return normalizePhone(m), "pattern in raw body", nil
	}

	// Last resort: with exactly one conversation awaiting a human the
	// answer can only belong to it. Loud on purpose, the helpdesk
	// mapping should be fixed instead.
	if p, ok := h.Pending.SinglePending(); ok {
		log.Error().
			Str("user", p.UserID).
			Msg("helpdesk answer carried no identity, matched the only pending query")
		return p.UserID, "single pending heuristic", nil
	}

	return "", "", contractx.ErrIdentityUnresolved
}

func normalizePhone(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "+")
}
