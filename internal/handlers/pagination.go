package handlers

import (
	"strconv"

	"backend/internal/apperror"
)

// Listing endpoints default to the first 20 entries and cap page size
// at 100.
const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// parsePaginationParams parses optional page/limit query values.
func parsePaginationParams(pageStr, limitStr string) (int64, int64, error) {
	page := int64(1)
	limit := int64(defaultPageLimit)

	if pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return 0, 0, apperror.Validation("page", "page must be a positive integer")
		}
		page = p
	}

	if limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 {
			return 0, 0, apperror.Validation("limit", "limit must be a positive integer")
		}
		if l > maxPageLimit {
			l = maxPageLimit
		}
		limit = l
	}

	return page, limit, nil
}
