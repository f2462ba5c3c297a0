package helpdesk

import "encoding/json"

// AnswerPayload is what the helpdesk posts when an operator answers a
// ticket. The field layout is not contractually fixed across helpdesk
// versions, so known names are modeled explicitly and everything else
// is kept in Fields for the extraction fallback chain.
type AnswerPayload struct {
	Answer string
	Fields map[string]json.RawMessage
}

func (p *AnswerPayload) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	p.Fields = fields

	for _, key := range []string{"answer", "respuesta", "resolution"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			p.Answer = s
			break
		}
	}
	return nil
}

// StringField decodes a named field as a string, reporting whether it
// was present and string-shaped.
func (p *AnswerPayload) StringField(name string) (string, bool) {
	raw, ok := p.Fields[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// StringFields returns every field that decodes as a string, for the
// pattern-based identity scan.
func (p *AnswerPayload) StringFields() map[string]string {
	out := make(map[string]string, len(p.Fields))
	for name, raw := range p.Fields {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out[name] = s
		}
	}
	return out
}
