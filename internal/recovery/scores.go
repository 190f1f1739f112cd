package recovery

import (
	"math"
	"strings"

	"github.com/kiranshivaraju/gemba/pkg/models"
)

// Degraded scoring texts, in the language the graders read.
const (
	ScoreFailedFeedback = "Error saat menilai root cause."
	ScoreFailedSummary  = "Terjadi kesalahan dalam proses penilaian. Silakan coba lagi."
	ScoreFailedMessage  = "Failed to score root causes."
)

type scorePayload struct {
	Scores  *[]scoreEntry `json:"scores"`
	Summary string        `json:"summary"`
}

type scoreEntry struct {
	RootCause     string   `json:"root_cause"`
	Specificity   float64  `json:"spesifisitas"`
	Relevance     float64  `json:"relevansi"`
	Clarity       float64  `json:"kejelasan"`
	Actionability float64  `json:"actionability"`
	TotalScore    *float64 `json:"total_score"`
	Feedback      string   `json:"feedback"`
}

// Scores recovers one grade per submitted root cause. There is no heuristic
// tier: output that does not decode to exactly len(causes) entries degrades.
func Scores(raw string, causes []string) (models.ScoreResult, Tier) {
	parse := func(s string) (models.ScoreResult, bool) { return parseScores(s, causes) }
	return cascade("scores", raw, func() models.ScoreResult {
		return ScoresFailed(causes)
	}, strictThenEnclosed('{', '}', parse)...)
}

// ScoresFailed is the degraded grading of causes: one zero-scored entry per
// cause, flagged as an error.
func ScoresFailed(causes []string) models.ScoreResult {
	scores := make([]models.CauseScore, len(causes))
	for i, c := range causes {
		scores[i] = models.CauseScore{
			RootCause: c,
			Feedback:  ScoreFailedFeedback,
			Error:     true,
		}
	}
	return models.ScoreResult{
		Scores:  scores,
		Summary: ScoreFailedSummary,
		Error:   ScoreFailedMessage,
	}
}

func parseScores(s string, causes []string) (models.ScoreResult, bool) {
	p, ok := decode[scorePayload](s)
	if !ok || p.Scores == nil || len(*p.Scores) != len(causes) {
		return models.ScoreResult{}, false
	}

	scores := make([]models.CauseScore, len(causes))
	for i, e := range *p.Scores {
		cs := models.CauseScore{
			RootCause:     strings.TrimSpace(e.RootCause),
			Specificity:   clamp(e.Specificity, models.MaxCriterionScore),
			Relevance:     clamp(e.Relevance, models.MaxCriterionScore),
			Clarity:       clamp(e.Clarity, models.MaxCriterionScore),
			Actionability: clamp(e.Actionability, models.MaxCriterionScore),
			Feedback:      strings.TrimSpace(e.Feedback),
		}
		if cs.RootCause == "" {
			cs.RootCause = causes[i]
		}
		if e.TotalScore != nil {
			cs.TotalScore = clamp(*e.TotalScore, models.MaxTotalScore)
		} else {
			cs.TotalScore = cs.Specificity + cs.Relevance + cs.Clarity + cs.Actionability
		}
		scores[i] = cs
	}
	return models.ScoreResult{Scores: scores, Summary: strings.TrimSpace(p.Summary)}, true
}

func clamp(v, upper float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(v, upper)
}

// Best returns the highest-scoring entry that is not flagged as an error.
// Equal totals resolve to the earliest entry.
func Best(r models.ScoreResult) (models.CauseScore, bool) {
	best, found := models.CauseScore{}, false
	for _, s := range r.Scores {
		if s.Error {
			continue
		}
		if !found || s.TotalScore > best.TotalScore {
			best, found = s, true
		}
	}
	return best, found
}
