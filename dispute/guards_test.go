package dispute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSplit(t *testing.T) {
	cases := []struct {
		farmer, buyer int
		ok            bool
	}{
		{60, 40, true},
		{100, 0, true},
		{0, 100, true},
		{50, 40, false},
		{-10, 110, false},
		{101, -1, false},
		{60, 60, false},
	}
	for _, tc := range cases {
		err := ValidateSplit(tc.farmer, tc.buyer)
		if tc.ok {
			assert.NoError(t, err, "%d/%d", tc.farmer, tc.buyer)
		} else {
			assert.ErrorIs(t, err, ErrInvalidSplit, "%d/%d", tc.farmer, tc.buyer)
		}
	}
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection(" FOR ")
	require.NoError(t, err)
	assert.Equal(t, DirectionFor, d)

	d, err = ParseDirection("against")
	require.NoError(t, err)
	assert.Equal(t, DirectionAgainst, d)

	_, err = ParseDirection("abstain")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestActivatesVotingOnlyAtThreshold(t *testing.T) {
	for n := 0; n <= 6; n++ {
		assert.Equal(t, n == 3, ActivatesVoting(n), "count %d", n)
	}
}

func TestCheckVoteOrdering(t *testing.T) {
	rec := Record{Buyer: "0xb", Farmer: "0xf"}

	// disabled wins over party check
	assert.ErrorIs(t, rec.CheckVote("0xb"), ErrVotingDisabled)

	rec.VotingEnabled = true
	assert.ErrorIs(t, rec.CheckVote("0xb"), ErrPartyVote)
	assert.ErrorIs(t, rec.CheckVote("0xf"), ErrPartyVote)
	assert.NoError(t, rec.CheckVote("0xc"))

	rec.Status = StatusResolved
	assert.ErrorIs(t, rec.CheckVote("0xc"), ErrResolved)
	assert.ErrorIs(t, rec.CheckPropose(), ErrResolved)
}

func TestCreateParamsNormalize(t *testing.T) {
	p, err := CreateParams{ID: " d1 ", OrderID: "o1", Buyer: " 0xABC", Farmer: "0xDef "}.normalize()
	require.NoError(t, err)
	assert.Equal(t, "d1", p.ID)
	assert.Equal(t, "0xabc", p.Buyer)
	assert.Equal(t, "0xdef", p.Farmer)

	_, err = CreateParams{ID: "d1", OrderID: "", Buyer: "a", Farmer: "b"}.normalize()
	assert.ErrorIs(t, err, ErrInvalidInput)
}
