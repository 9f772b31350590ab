package utils

const (
	pageSizeDefault = 20
	pageSizeMax     = 100
)

// GetPaginationParams normalizes optional offset and limit values. Negative
// offsets become 0, missing or non-positive limits use the default page size,
// and limits are capped at pageSizeMax.
func GetPaginationParams(offset *int, limit *int) (int, int) {
	finalOffset := 0
	finalLimit := pageSizeDefault

	if offset != nil && *offset >= 0 {
		finalOffset = *offset
	}
	if limit != nil && *limit > 0 {
		finalLimit = min(*limit, pageSizeMax)
	}
	return finalOffset, finalLimit
}

// Page returns the window [offset, offset+limit) of items, clamped to the
// slice bounds, together with the total number of items.
func Page[T any](items []T, offset, limit int) ([]T, int64) {
	total := len(items)
	start := min(max(offset, 0), total)
	end := min(start+max(limit, 0), total)
	return items[start:end], int64(total)
}
