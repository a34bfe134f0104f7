package feed

// Merge combines newer and previous activities into a single feed.
//
// Entries from newer come first, followed by previous. When two entries share an
// ID the first occurrence wins, so newer entries replace older copies. The result
// is truncated to limit entries and never aliases either input.
//
// Ordering is by position only: callers must pass events from a single producer,
// newest first, for the result to be recency ordered.
func Merge(newer, previous []Activity, limit int) []Activity {
	if limit <= 0 {
		return []Activity{}
	}

	size := len(newer) + len(previous)
	if size > limit {
		size = limit
	}

	merged := make([]Activity, 0, size)
	seen := make(map[int64]struct{}, size)

	for _, group := range [][]Activity{newer, previous} {
		for _, a := range group {
			if len(merged) == limit {
				return merged
			}
			if _, dup := seen[a.ID]; dup {
				continue
			}
			seen[a.ID] = struct{}{}
			merged = append(merged, a)
		}
	}

	return merged
}

// IDs returns the activity IDs in feed order.
func IDs(activities []Activity) []int64 {
	ids := make([]int64, len(activities))
	for i, a := range activities {
		ids[i] = a.ID
	}
	return ids
}
