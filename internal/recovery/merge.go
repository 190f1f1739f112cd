package recovery

import (
	"encoding/json"
	"strings"

	"github.com/kiranshivaraju/gemba/pkg/models"
)

// MergeFailedMessage explains a degraded merge, where nothing was grouped.
const MergeFailedMessage = "Failed to merge root causes; all entries are listed individually."

type mergePayload struct {
	Merged     *[]mergeGroup `json:"merged_root_causes"`
	Individual *[]mergeEntry `json:"individual_root_causes"`
}

type mergeGroup struct {
	MergedRootCause string       `json:"merged_root_cause"`
	OriginalData    []mergeEntry `json:"original_data"`
}

type mergeEntry struct {
	RootCause string `json:"root_cause"`
	UserID    flexID `json:"user_id"`
}

// flexID accepts a user id written as a JSON string or number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// Merge recovers a grouping of items. A decoded grouping is reconciled
// against items so that each item appears exactly once: unknown and repeated
// entries are dropped, a group left with a single member is dissolved, and
// unplaced items are appended to the individual list. A grouping that needed
// reconciliation is reported as TierRepaired.
func Merge(raw string, items []models.UserRootCause) (models.MergeResult, Tier) {
	exact := func(s string) (models.MergeResult, bool) {
		r, changed, ok := parseMerge(s, items)
		return r, ok && !changed
	}
	reconciled := func(s string) (models.MergeResult, bool) {
		r, _, ok := parseMerge(s, items)
		return r, ok
	}

	return cascade("merge", raw, func() models.MergeResult {
		return MergeFailed(items)
	},
		attempt[models.MergeResult]{tier: TierStrict, run: func(raw string) (models.MergeResult, bool) {
			return exact(StripWrapper(raw))
		}},
		attempt[models.MergeResult]{tier: TierRepaired, run: func(raw string) (models.MergeResult, bool) {
			if r, ok := reconciled(StripWrapper(raw)); ok {
				return r, true
			}
			inner, ok := enclosed(raw, '{', '}')
			if !ok {
				return models.MergeResult{}, false
			}
			return reconciled(inner)
		}},
	)
}

// MergeFailed is the degraded merge: every item stays individual.
func MergeFailed(items []models.UserRootCause) models.MergeResult {
	return models.MergeResult{
		MergedRootCauses:     []models.MergedGroup{},
		IndividualRootCauses: append([]models.UserRootCause{}, items...),
		AllOriginalData:      append([]models.UserRootCause{}, items...),
		Error:                MergeFailedMessage,
	}
}

func parseMerge(s string, items []models.UserRootCause) (models.MergeResult, bool, bool) {
	p, ok := decode[mergePayload](s)
	if !ok || p.Merged == nil || p.Individual == nil {
		return models.MergeResult{}, false, false
	}

	rc := newReconciler(items)
	result := models.MergeResult{
		MergedRootCauses:     []models.MergedGroup{},
		IndividualRootCauses: []models.UserRootCause{},
		AllOriginalData:      append([]models.UserRootCause{}, items...),
	}

	for _, g := range *p.Merged {
		var members []models.UserRootCause
		for _, e := range g.OriginalData {
			if it, ok := rc.take(e); ok {
				members = append(members, it)
			}
		}
		switch len(members) {
		case 0:
			rc.changed = true
		case 1:
			rc.changed = true
			result.IndividualRootCauses = append(result.IndividualRootCauses, members[0])
		default:
			name := strings.TrimSpace(g.MergedRootCause)
			if name == "" {
				rc.changed = true
				name = members[0].RootCause
			}
			result.MergedRootCauses = append(result.MergedRootCauses, models.MergedGroup{
				MergedRootCause: name,
				OriginalData:    members,
			})
		}
	}

	for _, e := range *p.Individual {
		if it, ok := rc.take(e); ok {
			result.IndividualRootCauses = append(result.IndividualRootCauses, it)
		}
	}

	for i, used := range rc.used {
		if !used {
			rc.changed = true
			result.IndividualRootCauses = append(result.IndividualRootCauses, items[i])
		}
	}

	return result, rc.changed, true
}

type reconciler struct {
	items   []models.UserRootCause
	used    []bool
	changed bool
}

func newReconciler(items []models.UserRootCause) *reconciler {
	return &reconciler{items: items, used: make([]bool, len(items))}
}

// take claims the first unused item equal to e, or failing that the first
// unused item from the same user. The claimed item is returned as submitted.
func (r *reconciler) take(e mergeEntry) (models.UserRootCause, bool) {
	cause := strings.TrimSpace(e.RootCause)
	user := strings.TrimSpace(string(e.UserID))

	for i, it := range r.items {
		if !r.used[i] && strings.TrimSpace(it.RootCause) == cause && strings.TrimSpace(it.UserID) == user {
			r.used[i] = true
			return it, true
		}
	}

	r.changed = true
	if user == "" {
		return models.UserRootCause{}, false
	}
	for i, it := range r.items {
		if !r.used[i] && strings.TrimSpace(it.UserID) == user {
			r.used[i] = true
			return it, true
		}
	}
	return models.UserRootCause{}, false
}
