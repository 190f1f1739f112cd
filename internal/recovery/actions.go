package recovery

import (
	"regexp"
	"strings"

	"github.com/kiranshivaraju/gemba/pkg/models"
)

// Placeholders for an action section that could not be recovered.
const (
	TemporaryFailedMessage  = "Error parsing temporary actions"
	PreventiveFailedMessage = "Error parsing preventive actions"
	ActionsFailedMessage    = "Error generating action suggestions. Please try again."
)

var reQuoted = regexp.MustCompile(`"([^"\n]+)"`)

type actionPayload struct {
	Temporary  *[]string `json:"temporary_actions"`
	Preventive *[]string `json:"preventive_actions"`
}

// ActionPair recovers temporary and preventive action lists from a JSON object.
func ActionPair(raw string) (models.ActionSuggestion, Tier) {
	attempts := strictThenEnclosed('{', '}', parseActions)
	attempts = append(attempts, attempt[models.ActionSuggestion]{tier: TierHeuristic, run: splitActions})
	return cascade("action_pair", raw, ActionsFailed, attempts...)
}

// ActionsFailed is the degraded action suggestion.
func ActionsFailed() models.ActionSuggestion {
	return models.ActionSuggestion{
		TemporaryActions:  []string{TemporaryFailedMessage},
		PreventiveActions: []string{PreventiveFailedMessage},
		Error:             ActionsFailedMessage,
	}
}

func parseActions(s string) (models.ActionSuggestion, bool) {
	p, ok := decode[actionPayload](s)
	if !ok || p.Temporary == nil || p.Preventive == nil {
		return models.ActionSuggestion{}, false
	}
	temp, prev := cleanItems(*p.Temporary), cleanItems(*p.Preventive)
	if len(temp) == 0 || len(prev) == 0 {
		return models.ActionSuggestion{}, false
	}
	return models.ActionSuggestion{TemporaryActions: temp, PreventiveActions: prev}, true
}

// splitActions cuts the text at the "temporary" and "preventive" markers and
// collects the dash-prefixed lines of each section, or its quoted strings when
// a section has no dash lines.
func splitActions(raw string) (models.ActionSuggestion, bool) {
	text := StripWrapper(raw)
	ti := indexFold(text, "temporary")
	pi := indexFold(text, "preventive")
	if ti < 0 && pi < 0 {
		return models.ActionSuggestion{}, false
	}

	var tempSection, prevSection string
	switch {
	case ti >= 0 && pi >= 0 && ti < pi:
		tempSection, prevSection = text[ti:pi], text[pi:]
	case ti >= 0 && pi >= 0:
		prevSection, tempSection = text[pi:ti], text[ti:]
	case ti >= 0:
		tempSection = text[ti:]
	default:
		prevSection = text[pi:]
	}

	temp := sectionItems(tempSection)
	prev := sectionItems(prevSection)
	if len(temp) == 0 && len(prev) == 0 {
		return models.ActionSuggestion{}, false
	}
	if len(temp) == 0 {
		temp = []string{TemporaryFailedMessage}
	}
	if len(prev) == 0 {
		prev = []string{PreventiveFailedMessage}
	}
	return models.ActionSuggestion{TemporaryActions: temp, PreventiveActions: prev}, true
}

func sectionItems(section string) []string {
	if section == "" {
		return nil
	}

	var items []string
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") {
			continue
		}
		if line = strings.TrimSpace(strings.TrimLeft(line, "-")); line != "" {
			items = append(items, line)
		}
	}
	if len(items) == 0 {
		if i := strings.IndexByte(section, '['); i >= 0 {
			section = section[i+1:]
			if j := strings.IndexByte(section, ']'); j >= 0 {
				section = section[:j]
			}
		}
		for _, m := range reQuoted.FindAllStringSubmatch(section, -1) {
			v := strings.TrimSpace(m[1])
			if v == "" || strings.HasSuffix(strings.ToLower(v), "_actions") {
				continue
			}
			items = append(items, v)
		}
	}
	return capItems(items)
}

// indexFold is a case-insensitive strings.Index for an ASCII needle.
func indexFold(s, needle string) int {
	n := len(needle)
	for i := 0; i+n <= len(s); i++ {
		if strings.EqualFold(s[i:i+n], needle) {
			return i
		}
	}
	return -1
}
