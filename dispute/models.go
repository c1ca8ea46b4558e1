package dispute

import (
	"encoding/json"
	"time"
)

// Status mirrors the on-chain dispute status.
type Status int16

const (
	StatusPending  Status = 0
	StatusResolved Status = 1
)

// VotingThreshold is the proposal count at which community voting opens.
const VotingThreshold = 3

// Direction is a community vote.
type Direction string

const (
	DirectionFor     Direction = "for"
	DirectionAgainst Direction = "against"
)

// Record mirrors the disputes table.
type Record struct {
	ID               string     `json:"sui_object_id"`
	OrderID          string     `json:"order_id"`
	Buyer            string     `json:"buyer"`
	Farmer           string     `json:"farmer"`
	Status           Status     `json:"status"`
	FarmerPercentage int        `json:"farmer_percentage"`
	BuyerPercentage  int        `json:"buyer_percentage"`
	LastProposer     *string    `json:"last_proposer"`
	ProposalCount    int        `json:"proposal_count"`
	VotingEnabled    bool       `json:"voting_enabled"`
	VotesFor         int        `json:"votes_for"`
	VotesAgainst     int        `json:"votes_against"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	ResolvedAt       *time.Time `json:"resolved_at"`
}

// TotalVotes is the sum of both tallies.
func (r Record) TotalVotes() int {
	return r.VotesFor + r.VotesAgainst
}

// CreateParams opens a dispute mirror for an existing order.
type CreateParams struct {
	ID      string
	OrderID string
	Buyer   string
	Farmer  string
}

// ProposeParams records a settlement proposal.
type ProposeParams struct {
	DisputeID        string
	FarmerPercentage int
	BuyerPercentage  int
	Proposer         string
}

// ProposalResult reports the updated record and whether this proposal opened voting.
type ProposalResult struct {
	Record          Record
	VotingActivated bool
}

// VoteParams records a community vote.
type VoteParams struct {
	DisputeID string
	Voter     string
	Direction Direction
}

// VoteResult carries the updated tallies.
type VoteResult struct {
	Record     Record
	TotalVotes int
}

// OrderRef is the order row touched by Resolve.
type OrderRef struct {
	ID        string    `json:"sui_object_id"`
	Status    int16     `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ResolveResult carries the resolved dispute and completed order.
type ResolveResult struct {
	Dispute Record
	Order   OrderRef
}

// VotingStatus is the read-only voting summary for a dispute.
type VotingStatus struct {
	VotingEnabled bool `json:"voting_enabled"`
	VotesFor      int  `json:"votes_for"`
	VotesAgainst  int  `json:"votes_against"`
	TotalVotes    int  `json:"total_votes"`
	ProposalCount int  `json:"proposal_count"`
}

// EventType names an entry in the dispute history.
type EventType string

const (
	EventOpened   EventType = "DISPUTE_OPENED"
	EventProposal EventType = "PROPOSAL_SUBMITTED"
	EventVoteCast EventType = "VOTE_CAST"
	EventResolved EventType = "DISPUTE_RESOLVED"
)

// Event is one row of dispute_events.
type Event struct {
	Seq       int             `json:"seq"`
	Type      EventType       `json:"type"`
	Actor     *string         `json:"actor"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
