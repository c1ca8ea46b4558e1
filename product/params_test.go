package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSort(t *testing.T) {
	for in, want := range map[string]Sort{
		"":           SortLatest,
		"latest":     SortLatest,
		"oldest":     SortOldest,
		"price_asc":  SortPriceAsc,
		"price_desc": SortPriceDesc,
	} {
		got, err := ParseSort(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSort("cheapest")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestParseLimitAndOffset(t *testing.T) {
	n, err := ParseLimit("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, n)

	n, err = ParseLimit("500")
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, n)

	_, err = ParseLimit("0")
	assert.ErrorIs(t, err, ErrInvalidQuery)
	_, err = ParseLimit("ten")
	assert.ErrorIs(t, err, ErrInvalidQuery)

	n, err = ParseOffset("20")
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	_, err = ParseOffset("-1")
	assert.ErrorIs(t, err, ErrInvalidQuery)

	assert.True(t, ParseBool("true"))
	assert.True(t, ParseBool("1"))
	assert.False(t, ParseBool("yes please"))
}

func TestSortOrderByIsStable(t *testing.T) {
	for _, s := range []Sort{SortLatest, SortOldest, SortPriceAsc, SortPriceDesc} {
		assert.Contains(t, s.orderBy(), ", id", s)
	}
}
