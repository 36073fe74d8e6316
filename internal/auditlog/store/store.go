// Package store persists the append-only audit log.
package store

// defaultListLimit caps List when the caller passes a non-positive limit.
const defaultListLimit = 100

func clampLimit(limit int) int {
	if limit <= 0 || limit > defaultListLimit {
		return defaultListLimit
	}
	return limit
}
