package retrieval

import (
	"fmt"
	"strings"

	"github.com/kiranshivaraju/gemba/pkg/models"
)

// NoHistoricalData is the context sent to the model when no record survived retrieval.
const NoHistoricalData = "No historical data available for this area and category."

// DefaultMaxContextRecords bounds the records rendered into a context block.
const DefaultMaxContextRecords = 5

// Assemble renders ranked records as a bulleted block, most similar first.
// At most maxRecords are included and a trailing note reports the truncation.
// A non-positive maxRecords uses DefaultMaxContextRecords.
func Assemble[R models.Record](ranked []models.Ranked[R], maxRecords int) string {
	if len(ranked) == 0 {
		return NoHistoricalData
	}
	if maxRecords <= 0 {
		maxRecords = DefaultMaxContextRecords
	}

	shown := ranked
	if len(shown) > maxRecords {
		shown = shown[:maxRecords]
	}

	var b strings.Builder
	for i, r := range shown {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, f := range r.Record.Fields() {
			if j == 0 {
				b.WriteString("- ")
			} else {
				b.WriteString("\n  ")
			}
			b.WriteString(f.Label)
			b.WriteString(": ")
			b.WriteString(f.Value)
		}
	}

	if len(ranked) > len(shown) {
		fmt.Fprintf(&b, "\n(Showing top %d of %d records)", len(shown), len(ranked))
	}
	return b.String()
}
