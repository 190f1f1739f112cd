package models

import "strings"

// QueryContext describes the incident the caller wants suggestions for.
// Area and Category filter the corpus; Problem and RootCause are ranking queries.
type QueryContext struct {
	Area      string `json:"area"`
	Problem   string `json:"problem"`
	Category  string `json:"category"`
	RootCause string `json:"root_cause,omitempty"`
}

// Normalized returns a copy with every field trimmed.
func (q QueryContext) Normalized() QueryContext {
	return QueryContext{
		Area:      strings.TrimSpace(q.Area),
		Problem:   strings.TrimSpace(q.Problem),
		Category:  strings.TrimSpace(q.Category),
		RootCause: strings.TrimSpace(q.RootCause),
	}
}

// Missing lists the JSON names of required fields that are blank.
func (q QueryContext) Missing(requireRootCause bool) []string {
	var missing []string
	if strings.TrimSpace(q.Area) == "" {
		missing = append(missing, "area")
	}
	if strings.TrimSpace(q.Problem) == "" {
		missing = append(missing, "problem")
	}
	if strings.TrimSpace(q.Category) == "" {
		missing = append(missing, "category")
	}
	if requireRootCause && strings.TrimSpace(q.RootCause) == "" {
		missing = append(missing, "root_cause")
	}
	return missing
}
