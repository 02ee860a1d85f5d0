package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"descriptai/internal/domain"
)

// Outcome tags a parse result.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeParseError
)

func (o Outcome) String() string {
	if o == OutcomeOK {
		return "ok"
	}
	return "parse_error"
}

// Parsed is either a decoded value (OutcomeOK) or the raw model text with the
// reason it was rejected (OutcomeParseError).
type Parsed[T any] struct {
	Outcome Outcome
	Value   T
	Raw     string
	Reason  string
}

// OK reports whether the value was decoded.
func (p Parsed[T]) OK() bool { return p.Outcome == OutcomeOK }

// Err returns nil for OutcomeOK and an error wrapping domain.ErrGenerationParse otherwise.
func (p Parsed[T]) Err() error {
	if p.OK() {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrGenerationParse, p.Reason)
}

func parseError[T any](raw, reason string) Parsed[T] {
	return Parsed[T]{Outcome: OutcomeParseError, Raw: raw, Reason: reason}
}

// ParseDescriptions accepts a single JSON object, optionally wrapped in one
// markdown code fence, with non-empty seo, emotional and short strings.
func ParseDescriptions(raw string) Parsed[domain.Descriptions] {
	var payload struct {
		SEO       *string `json:"seo"`
		Emotional *string `json:"emotional"`
		Short     *string `json:"short"`
	}
	if reason := decodeObject(raw, &payload); reason != "" {
		return parseError[domain.Descriptions](raw, reason)
	}
	d := domain.Descriptions{
		SEO:       trimPtr(payload.SEO),
		Emotional: trimPtr(payload.Emotional),
		Short:     trimPtr(payload.Short),
	}
	if missing := missingFields(map[string]string{"seo": d.SEO, "emotional": d.Emotional, "short": d.Short}); missing != "" {
		return parseError[domain.Descriptions](raw, "missing "+missing)
	}
	return Parsed[domain.Descriptions]{Outcome: OutcomeOK, Value: d, Raw: raw}
}

// ParseAttributes decodes image analysis output. Empty attributes are allowed
// and filled with defaults; a non-object payload is a parse error.
func ParseAttributes(raw string) Parsed[domain.ExtractedAttributes] {
	var attrs domain.ExtractedAttributes
	if reason := decodeObject(raw, &attrs); reason != "" {
		return parseError[domain.ExtractedAttributes](raw, reason)
	}
	return Parsed[domain.ExtractedAttributes]{Outcome: OutcomeOK, Value: attrs.WithDefaults(), Raw: raw}
}

func decodeObject(raw string, out any) string {
	text := trimCodeFence(raw)
	if text == "" {
		return "empty response"
	}
	if !strings.HasPrefix(text, "{") {
		return "response is not a JSON object"
	}
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(out); err != nil {
		return "invalid JSON: " + err.Error()
	}
	if rest := strings.TrimSpace(text[dec.InputOffset():]); rest != "" {
		return "unexpected content after JSON object"
	}
	return ""
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		lang := strings.TrimSpace(trimmed[:nl])
		if lang == "" || strings.EqualFold(lang, "json") {
			trimmed = trimmed[nl+1:]
		}
	}
	trimmed = strings.TrimSpace(trimmed)
	if !strings.HasSuffix(trimmed, "```") {
		return ""
	}
	return strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
}

func missingFields(fields map[string]string) string {
	var missing []string
	for _, name := range []string{"seo", "emotional", "short"} {
		if fields[name] == "" {
			missing = append(missing, name)
		}
	}
	return strings.Join(missing, ", ")
}

func trimPtr(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
