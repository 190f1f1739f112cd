package recovery

import (
	"strings"

	"github.com/kiranshivaraju/gemba/pkg/models"
)

// SuggestionFailedMessage is the single entry of a degraded root-cause suggestion.
const SuggestionFailedMessage = "Error generating suggestions. Please try again."

var listNoise = strings.NewReplacer("[", "", "]", "", `"`, "")

// StringList recovers a root-cause suggestion from a JSON array of strings.
func StringList(raw string) (models.RootCauseSuggestion, Tier) {
	attempts := strictThenEnclosed('[', ']', parseList)
	attempts = append(attempts, attempt[models.RootCauseSuggestion]{tier: TierHeuristic, run: splitList})
	return cascade("string_list", raw, func() models.RootCauseSuggestion {
		return SuggestionFailed()
	}, attempts...)
}

// SuggestionFailed is the degraded root-cause suggestion.
func SuggestionFailed() models.RootCauseSuggestion {
	return models.RootCauseSuggestion{
		Causes: []string{SuggestionFailedMessage},
		Error:  SuggestionFailedMessage,
	}
}

func parseList(s string) (models.RootCauseSuggestion, bool) {
	items, ok := decode[[]string](s)
	if !ok {
		return models.RootCauseSuggestion{}, false
	}
	items = cleanItems(items)
	if len(items) == 0 {
		return models.RootCauseSuggestion{}, false
	}
	return models.RootCauseSuggestion{Causes: items}, true
}

// splitList removes array punctuation and splits the remainder on commas and
// line breaks, dropping list bullets.
func splitList(raw string) (models.RootCauseSuggestion, bool) {
	text := listNoise.Replace(StripWrapper(raw))
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n'
	})

	items := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimLeft(strings.TrimSpace(p), "-*• ")
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	if len(items) == 0 {
		return models.RootCauseSuggestion{}, false
	}
	return models.RootCauseSuggestion{Causes: capItems(items)}, true
}
