package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/gemba/pkg/models"
)

func rankedBase(t *testing.T, problems ...string) []models.Ranked[models.BaseRecord] {
	t.Helper()
	out := make([]models.Ranked[models.BaseRecord], len(problems))
	for i, p := range problems {
		out[i] = models.Ranked[models.BaseRecord]{Record: base(t, p, "cause "+p), Index: i}
	}
	return out
}

func TestAssemble_Empty(t *testing.T) {
	assert.Equal(t, NoHistoricalData, Assemble[models.BaseRecord](nil, 5))
	assert.Equal(t, NoHistoricalData, Assemble([]models.Ranked[models.ActionRecord]{}, 5))
}

func TestAssemble_BaseRecordFormat(t *testing.T) {
	got := Assemble(rankedBase(t, "motor panas"), 5)

	want := "- Area: Press Line\n" +
		"  Problem: motor panas\n" +
		"  Root Cause: cause motor panas\n" +
		"  Category: Machine"
	assert.Equal(t, want, got)
}

func TestAssemble_ActionRecordIncludesActions(t *testing.T) {
	ranked := []models.Ranked[models.ActionRecord]{{Record: action(t, "belt putus", "belt aus")}}

	got := Assemble(ranked, 5)

	assert.Contains(t, got, "  Temporary Action: stop line")
	assert.Contains(t, got, "  Preventive Action: add inspection")
	assert.NotContains(t, got, "Showing top")
}

func TestAssemble_TruncatesWithNote(t *testing.T) {
	got := Assemble(rankedBase(t, "a", "b", "c", "d", "e", "f", "g"), 3)

	assert.Equal(t, 3, strings.Count(got, "- Area:"))
	assert.True(t, strings.HasSuffix(got, "(Showing top 3 of 7 records)"))
	assert.Less(t, strings.Index(got, "Problem: a"), strings.Index(got, "Problem: b"))
	assert.NotContains(t, got, "Problem: d")
}

func TestAssemble_DefaultMax(t *testing.T) {
	got := Assemble(rankedBase(t, "a", "b", "c", "d", "e", "f"), 0)

	require.Equal(t, DefaultMaxContextRecords, strings.Count(got, "- Area:"))
	assert.Contains(t, got, "(Showing top 5 of 6 records)")
}

func TestAssemble_ExactlyMaxHasNoNote(t *testing.T) {
	got := Assemble(rankedBase(t, "a", "b"), 2)
	assert.NotContains(t, got, "Showing top")
}
