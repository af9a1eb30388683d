package handlers

import (
	"testing"

	"backend/internal/apperror"
)

func TestParsePaginationDefaults(t *testing.T) {
	page, limit, err := parsePaginationParams("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page != 1 || limit != defaultPageLimit {
		t.Fatalf("expected defaults 1/%d, got %d/%d", defaultPageLimit, page, limit)
	}
}

func TestParsePaginationRejectsBadValues(t *testing.T) {
	for _, tc := range []struct{ page, limit string }{
		{"0", "10"},
		{"-1", "10"},
		{"abc", "10"},
		{"1", "0"},
		{"1", "xyz"},
	} {
		_, _, err := parsePaginationParams(tc.page, tc.limit)
		if !apperror.IsKind(err, apperror.KindValidation) {
			t.Fatalf("page=%q limit=%q: expected validation error, got %v", tc.page, tc.limit, err)
		}
	}
}

func TestParsePaginationCapsLimit(t *testing.T) {
	_, limit, err := parsePaginationParams("2", "500")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit != maxPageLimit {
		t.Fatalf("expected limit capped at %d, got %d", maxPageLimit, limit)
	}
}
