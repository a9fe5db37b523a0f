package repo

// CollapseByID collapses duplicate rows produced by one-to-many joins into
// one representative row per id: first occurrence wins, input order is kept.
func CollapseByID[T any](rows []T, id func(T) int64) []T {
	if len(rows) == 0 {
		return rows
	}
	seen := make(map[int64]bool, len(rows))
	out := rows[:0:0]
	for _, row := range rows {
		key := id(row)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}
	return out
}
