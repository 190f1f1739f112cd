package models

// Score bounds for the four grading criteria and their sum.
const (
	MaxCriterionScore = 2.5
	MaxTotalScore     = 10.0
)

// RootCauseSuggestion is the recovered output of a root-cause suggestion.
type RootCauseSuggestion struct {
	Causes []string `json:"suggested_root_causes"`
	Error  string   `json:"error,omitempty"`
}

// ActionSuggestion is the recovered output of an action suggestion.
type ActionSuggestion struct {
	TemporaryActions  []string `json:"temporary_actions"`
	PreventiveActions []string `json:"preventive_actions"`
	Error             string   `json:"error,omitempty"`
}

// CauseScore grades one user-submitted root cause.
type CauseScore struct {
	RootCause     string  `json:"root_cause"`
	Specificity   float64 `json:"spesifisitas"`
	Relevance     float64 `json:"relevansi"`
	Clarity       float64 `json:"kejelasan"`
	Actionability float64 `json:"actionability"`
	TotalScore    float64 `json:"total_score"`
	Feedback      string  `json:"feedback"`
	Error         bool    `json:"error,omitempty"`
}

// ScoreResult holds one CauseScore per requested root cause, in request order.
type ScoreResult struct {
	Scores  []CauseScore `json:"scores"`
	Summary string       `json:"summary"`
	Error   string       `json:"error,omitempty"`
}

// UserRootCause is a root cause proposed by one user.
type UserRootCause struct {
	RootCause string `json:"root_cause"`
	UserID    string `json:"user_id"`
}

// MergedGroup clusters equivalent root causes under one reformulation.
type MergedGroup struct {
	MergedRootCause string          `json:"merged_root_cause"`
	OriginalData    []UserRootCause `json:"original_data"`
}

// MergeResult partitions the submitted root causes into merged groups and
// individual entries. Every submitted entry appears exactly once across both.
type MergeResult struct {
	MergedRootCauses     []MergedGroup   `json:"merged_root_causes"`
	IndividualRootCauses []UserRootCause `json:"individual_root_causes"`
	AllOriginalData      []UserRootCause `json:"all_original_data"`
	Error                string          `json:"error,omitempty"`
}

// Count returns the number of user entries across merged and individual groups.
func (m MergeResult) Count() int {
	n := len(m.IndividualRootCauses)
	for _, g := range m.MergedRootCauses {
		n += len(g.OriginalData)
	}
	return n
}
