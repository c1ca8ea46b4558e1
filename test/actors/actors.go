package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	sdkmath "cosmossdk.io/math"

	"tanitrust/amount"
	"tanitrust/dispute"
	"tanitrust/order"
	"tanitrust/product"
)

// Target is one seeded dispute the actors fight over.
type Target struct {
	DisputeID string
	OrderID   string
	Buyer     string
	Farmer    string
}

func pick(targets []Target) Target {
	return targets[rand.Intn(len(targets))]
}

func stopped(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-stop:
		return true
	default:
		return false
	}
}

// Proposer submits random valid splits, alternating between both parties.
func Proposer(ctx context.Context, svc *dispute.Service, targets []Target, stop <-chan struct{}) error {
	for !stopped(ctx, stop) {
		t := pick(targets)
		farmerPct := rand.Intn(101)
		proposer := t.Buyer
		if rand.Intn(2) == 0 {
			proposer = t.Farmer
		}
		_, err := svc.Propose(ctx, dispute.ProposeParams{
			DisputeID:        t.DisputeID,
			FarmerPercentage: farmerPct,
			BuyerPercentage:  100 - farmerPct,
			Proposer:         proposer,
		})
		if errors.Is(err, dispute.ErrInvalidSplit) {
			return fmt.Errorf("proposer: valid split rejected: %w", err)
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
	return nil
}

// Voter casts votes from a small address pool so duplicates collide, and
// occasionally impersonates a party.
func Voter(ctx context.Context, svc *dispute.Service, targets []Target, voters []string, stop <-chan struct{}) error {
	for !stopped(ctx, stop) {
		t := pick(targets)
		voter := voters[rand.Intn(len(voters))]
		if rand.Intn(10) == 0 {
			voter = t.Buyer
		}
		direction := dispute.DirectionFor
		if rand.Intn(2) == 0 {
			direction = dispute.DirectionAgainst
		}
		_, err := svc.Vote(ctx, dispute.VoteParams{DisputeID: t.DisputeID, Voter: voter, Direction: direction})
		if err == nil && (voter == t.Buyer || voter == t.Farmer) {
			return fmt.Errorf("voter: party %s voted on %s", voter, t.DisputeID)
		}
		time.Sleep(time.Duration(5+rand.Intn(15)) * time.Millisecond)
	}
	return nil
}

// Resolver resolves disputes late in their life, sometimes repeatedly.
func Resolver(ctx context.Context, svc *dispute.Service, targets []Target, stop <-chan struct{}) error {
	for !stopped(ctx, stop) {
		time.Sleep(time.Duration(500+rand.Intn(1000)) * time.Millisecond)
		if stopped(ctx, stop) {
			return nil
		}
		t := pick(targets)
		res, err := svc.Resolve(ctx, t.DisputeID, t.OrderID)
		if err == nil && res.Order.Status != int16(order.StatusCompleted) {
			return fmt.Errorf("resolver: order %s left in status %d", t.OrderID, res.Order.Status)
		}
		if errors.Is(err, dispute.ErrOrderMismatch) {
			return fmt.Errorf("resolver: %w", err)
		}
	}
	return nil
}

// Catalog keeps re-syncing and soft deleting a set of products.
func Catalog(ctx context.Context, svc *product.Service, productIDs []string, farmer string, stop <-chan struct{}) error {
	for !stopped(ctx, stop) {
		id := productIDs[rand.Intn(len(productIDs))]
		if rand.Intn(4) == 0 {
			_, err := svc.Delete(ctx, id)
			if errors.Is(err, product.ErrNotFound) {
				return fmt.Errorf("catalog: seeded product %s vanished", id)
			}
		} else {
			params := product.SyncParams{
				ID:            id,
				Name:          "Stress produce " + id,
				FarmerAddress: farmer,
				ImageURL:      "https://gateway.pinata.cloud/ipfs/" + id,
				Description:   "restocked",
				Category:      "oils",
				PricePerUnit:  amount.Of(sdkmath.NewInt(rand.Int63n(1_000_000_000))),
				Stock:         amount.Of(sdkmath.NewInt(rand.Int63n(10_000))),
			}
			_, _ = svc.Sync(ctx, params)
		}
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
	return nil
}
