package blob

import "sort"

// DefaultListLimit is the page size used when a List caller does not set
// one. It matches the remote backend's fetch ceiling.
const DefaultListLimit = 1000

// pageEntries turns a raw backend listing into one page: entries are
// sorted by key ascending, deduplicated, and sliced to start strictly
// after the cursor key. The next cursor is the last returned key and is
// present only when entries remain.
func pageEntries(entries []Entry, limit int, cursor string) ListResult {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	deduped := sorted[:0]
	for _, e := range sorted {
		if len(deduped) > 0 && deduped[len(deduped)-1].Key == e.Key {
			continue
		}
		deduped = append(deduped, e)
	}

	if cursor != "" {
		start := sort.Search(len(deduped), func(i int) bool { return deduped[i].Key > cursor })
		deduped = deduped[start:]
	}

	if limit <= 0 {
		limit = DefaultListLimit
	}

	hasMore := len(deduped) > limit
	if hasMore {
		deduped = deduped[:limit]
	}

	res := ListResult{Blobs: deduped, HasMore: hasMore}
	if hasMore {
		res.Cursor = deduped[len(deduped)-1].Key
	}
	return res
}
