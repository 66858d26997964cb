package domain

// OptionalExtra is a priced add-on that can be attached to a policy.
type OptionalExtra struct {
	ExtraID int     `json:"extra_id,omitempty"`
	Name    string  `json:"name"`
	Code    string  `json:"code"`
	Price   float64 `json:"price"`
}

// ExtraIDs returns the IDs of the given extras in order.
func ExtraIDs(extras []OptionalExtra) []int {
	ids := make([]int, 0, len(extras))
	for _, e := range extras {
		ids = append(ids, e.ExtraID)
	}
	return ids
}

// SelectExtras returns the extras from all whose IDs appear in ids, keeping
// the order of all. Unknown IDs are ignored.
func SelectExtras(all []OptionalExtra, ids []int) []OptionalExtra {
	want := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	selected := make([]OptionalExtra, 0, len(ids))
	for _, e := range all {
		if _, ok := want[e.ExtraID]; ok {
			selected = append(selected, e)
		}
	}
	return selected
}
