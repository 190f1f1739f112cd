package models

import (
	"errors"

	"github.com/kiranshivaraju/gemba/pkg/textutil"
)

// maxFieldBytes bounds every stored text attribute of a historical record.
const maxFieldBytes = 2000

// ErrIncompleteRecord is returned when a corpus row lacks a field its record kind requires.
var ErrIncompleteRecord = errors.New("historical record is missing required fields")

// Field is one labeled attribute of a record as rendered into a generation context.
type Field struct {
	Label string
	Value string
}

// Record is implemented by every historical incident kind.
type Record interface {
	Fields() []Field
}

// BaseRecord is a past incident usable for root-cause suggestion.
// Values are normalized and complete; construct with NewBaseRecord.
type BaseRecord struct {
	Area      string `json:"area"`
	Problem   string `json:"problem"`
	RootCause string `json:"root_cause"`
	Category  string `json:"category"`
}

// NewBaseRecord normalizes the given values and returns ErrIncompleteRecord
// if any of them is blank.
func NewBaseRecord(area, problem, rootCause, category string) (BaseRecord, error) {
	r := BaseRecord{
		Area:      clean(area),
		Problem:   clean(problem),
		RootCause: clean(rootCause),
		Category:  clean(category),
	}
	if r.Area == "" || r.Problem == "" || r.RootCause == "" || r.Category == "" {
		return BaseRecord{}, ErrIncompleteRecord
	}
	return r, nil
}

// Base returns the record itself. ActionRecord inherits it, which lets field
// selectors work over both record kinds.
func (r BaseRecord) Base() BaseRecord { return r }

func (r BaseRecord) Fields() []Field {
	return []Field{
		{Label: "Area", Value: r.Area},
		{Label: "Problem", Value: r.Problem},
		{Label: "Root Cause", Value: r.RootCause},
		{Label: "Category", Value: r.Category},
	}
}

// ActionRecord is a past incident that also carries the actions taken,
// usable for temporary/preventive action suggestion.
type ActionRecord struct {
	BaseRecord
	TemporaryAction  string `json:"temporary_action"`
	PreventiveAction string `json:"preventive_action"`
}

// NewActionRecord extends a valid BaseRecord with both action fields.
func NewActionRecord(base BaseRecord, temporaryAction, preventiveAction string) (ActionRecord, error) {
	r := ActionRecord{
		BaseRecord:       base,
		TemporaryAction:  clean(temporaryAction),
		PreventiveAction: clean(preventiveAction),
	}
	if r.TemporaryAction == "" || r.PreventiveAction == "" {
		return ActionRecord{}, ErrIncompleteRecord
	}
	return r, nil
}

func (r ActionRecord) Fields() []Field {
	return append(r.BaseRecord.Fields(),
		Field{Label: "Temporary Action", Value: r.TemporaryAction},
		Field{Label: "Preventive Action", Value: r.PreventiveAction},
	)
}

// Ranked pairs a record with its cosine similarity to a query text.
// Index is the record's position in the slice it was ranked from.
type Ranked[R any] struct {
	Record R
	Score  float64
	Index  int
}

func clean(s string) string {
	return textutil.Truncate(textutil.Normalize(s), maxFieldBytes)
}
