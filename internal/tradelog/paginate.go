package tradelog

import "tradejournal/internal/domain"

// PageCount returns how many pages of size hold total rows.
func PageCount(total, size int) int {
	if size <= 0 {
		size = domain.DefaultPageSize
	}
	if total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Page returns rows[index*size : index*size+size], clipped to the slice.
// An index outside the available range yields an empty, non-nil slice.
func Page[T any](rows []T, index, size int) []T {
	if size <= 0 {
		size = domain.DefaultPageSize
	}
	start := index * size
	if index < 0 || start >= len(rows) {
		return []T{}
	}
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}
