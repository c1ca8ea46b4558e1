package dispute

import (
	"errors"
	"strings"

	"tanitrust/wallet"
)

var (
	ErrNotFound       = errors.New("dispute: not found")
	ErrOrderNotFound  = errors.New("dispute: order not found")
	ErrDuplicate      = errors.New("dispute: already exists")
	ErrInvalidInput   = errors.New("dispute: invalid input")
	ErrInvalidSplit   = errors.New("dispute: percentages must be within 0-100 and sum to 100")
	ErrResolved       = errors.New("dispute: already resolved")
	ErrVotingDisabled = errors.New("dispute: voting not yet enabled, need 3+ proposals")
	ErrPartyVote      = errors.New("dispute: dispute parties cannot vote")
	ErrAlreadyVoted   = errors.New("dispute: address has already voted")
	ErrOrderMismatch  = errors.New("dispute: order does not belong to dispute")
)

// ValidateSplit checks a proposed payout split.
func ValidateSplit(farmerPct, buyerPct int) error {
	if farmerPct < 0 || farmerPct > 100 || buyerPct < 0 || buyerPct > 100 {
		return ErrInvalidSplit
	}
	if farmerPct+buyerPct != 100 {
		return ErrInvalidSplit
	}
	return nil
}

// ParseDirection accepts "for" or "against", case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionFor:
		return DirectionFor, nil
	case DirectionAgainst:
		return DirectionAgainst, nil
	default:
		return "", ErrInvalidInput
	}
}

// ActivatesVoting reports whether reaching newCount proposals is the activation edge.
func ActivatesVoting(newCount int) bool {
	return newCount == VotingThreshold
}

// CheckPropose guards a proposal against the current state.
func (r Record) CheckPropose() error {
	if r.Status == StatusResolved {
		return ErrResolved
	}
	return nil
}

// CheckVote guards a vote against the current state. The voter must already
// be normalised. Duplicate votes are detected by the store.
func (r Record) CheckVote(voter string) error {
	if r.Status == StatusResolved {
		return ErrResolved
	}
	if !r.VotingEnabled {
		return ErrVotingDisabled
	}
	if voter == r.Buyer || voter == r.Farmer {
		return ErrPartyVote
	}
	return nil
}

func (p CreateParams) normalize() (CreateParams, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.OrderID = strings.TrimSpace(p.OrderID)
	p.Buyer = wallet.Normalize(p.Buyer)
	p.Farmer = wallet.Normalize(p.Farmer)
	if p.ID == "" || p.OrderID == "" || p.Buyer == "" || p.Farmer == "" {
		return p, ErrInvalidInput
	}
	return p, nil
}
