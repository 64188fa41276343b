package domain

// MergeLabels returns the union of current and extra, keeping the first
// occurrence of each (labelset, label) pair and the original order.
func MergeLabels(current, extra []Label) []Label {
	seen := make(map[Label]struct{}, len(current)+len(extra))
	out := make([]Label, 0, len(current)+len(extra))
	for _, list := range [][]Label{current, extra} {
		for _, l := range list {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}
