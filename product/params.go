package product

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSort maps the query value to a Sort. Empty means latest.
func ParseSort(s string) (Sort, error) {
	switch Sort(strings.TrimSpace(s)) {
	case "", SortLatest:
		return SortLatest, nil
	case SortOldest:
		return SortOldest, nil
	case SortPriceAsc:
		return SortPriceAsc, nil
	case SortPriceDesc:
		return SortPriceDesc, nil
	default:
		return "", fmt.Errorf("%w: unknown sort %q", ErrInvalidQuery, s)
	}
}

// ParseLimit reads the page size, defaulting to DefaultLimit and capping at MaxLimit.
func ParseLimit(s string) (int, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultLimit, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", ErrInvalidQuery)
	}
	if n > MaxLimit {
		n = MaxLimit
	}
	return n, nil
}

func ParseOffset(s string) (int, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: offset must be a non-negative integer", ErrInvalidQuery)
	}
	return n, nil
}

// ParseBool accepts the usual truthy spellings; anything else is false.
func ParseBool(s string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && v
}
