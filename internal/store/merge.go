package store

// MergeLast collapses records that share a natural key, keeping the last-seen
// record per key. Output order is the order in which each key was first seen,
// so a rerun over already-merged input reproduces it unchanged.
func MergeLast[T any](records []T, keyFn func(T) string) []T {
	if len(records) == 0 {
		return records
	}
	idx := make(map[string]int, len(records))
	out := make([]T, 0, len(records))
	for _, r := range records {
		k := keyFn(r)
		if i, ok := idx[k]; ok {
			out[i] = r
			continue
		}
		idx[k] = len(out)
		out = append(out, r)
	}
	return out
}
