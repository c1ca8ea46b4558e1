package main

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"tanitrust/dispute"
)

type createDisputeRequest struct {
	ID      string `json:"sui_object_id"`
	OrderID string `json:"order_id"`
	Buyer   string `json:"buyer"`
	Farmer  string `json:"farmer"`
}

type proposeRequest struct {
	DisputeID        string `json:"dispute_id"`
	FarmerPercentage *int   `json:"farmer_percentage"`
	BuyerPercentage  *int   `json:"buyer_percentage"`
	ProposerAddress  string `json:"proposer_address"`
}

type voteRequest struct {
	DisputeID    string `json:"dispute_id"`
	VoterAddress string `json:"voter_address"`
	Vote         string `json:"vote"`
}

type resolveRequest struct {
	DisputeID string `json:"dispute_id"`
	OrderID   string `json:"order_id"`
}

type disputeResponse struct {
	Success bool           `json:"success"`
	Dispute dispute.Record `json:"dispute"`
}

type proposeResponse struct {
	Success         bool           `json:"success"`
	Dispute         dispute.Record `json:"dispute"`
	VotingActivated bool           `json:"voting_activated"`
}

type voteResponse struct {
	Success    bool           `json:"success"`
	Dispute    dispute.Record `json:"dispute"`
	TotalVotes int            `json:"total_votes"`
}

type resolveResponse struct {
	Success bool             `json:"success"`
	Dispute dispute.Record   `json:"dispute"`
	Order   dispute.OrderRef `json:"order"`
}

type historyResponse struct {
	Success bool            `json:"success"`
	Events  []dispute.Event `json:"events"`
}

func (s *Server) handleCreateDispute(w http.ResponseWriter, r *http.Request) {
	var req createDisputeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	rec, err := s.disputes.Create(r.Context(), dispute.CreateParams{
		ID:      req.ID,
		OrderID: req.OrderID,
		Buyer:   req.Buyer,
		Farmer:  req.Farmer,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, disputeResponse{Success: true, Dispute: rec})
}

func (s *Server) handleProposeDispute(w http.ResponseWriter, r *http.Request) {
	var req proposeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.FarmerPercentage == nil || req.BuyerPercentage == nil {
		s.fail(w, r, dispute.ErrInvalidSplit)
		return
	}

	res, err := s.disputes.Propose(r.Context(), dispute.ProposeParams{
		DisputeID:        req.DisputeID,
		FarmerPercentage: *req.FarmerPercentage,
		BuyerPercentage:  *req.BuyerPercentage,
		Proposer:         req.ProposerAddress,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proposeResponse{Success: true, Dispute: res.Record, VotingActivated: res.VotingActivated})
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.disputes.Vote(r.Context(), dispute.VoteParams{
		DisputeID: req.DisputeID,
		Voter:     req.VoterAddress,
		Direction: dispute.Direction(req.Vote),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, voteResponse{Success: true, Dispute: res.Record, TotalVotes: res.TotalVotes})
}

func (s *Server) handleResolveDispute(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.disputes.Resolve(r.Context(), req.DisputeID, req.OrderID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse{Success: true, Dispute: res.Dispute, Order: res.Order})
}

func (s *Server) handleVotingStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("dispute_id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "dispute_id required")
		return
	}

	status, err := s.disputes.VotingStatus(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleGetDispute(w http.ResponseWriter, r *http.Request) {
	rec, err := s.disputes.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, disputeResponse{Success: true, Dispute: rec})
}

func (s *Server) handleDisputeHistory(w http.ResponseWriter, r *http.Request) {
	events, err := s.disputes.History(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if events == nil {
		events = []dispute.Event{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Success: true, Events: events})
}
