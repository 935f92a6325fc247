package auction

import (
	"time"

	"github.com/bidmarkt/goapi/domain"
	"github.com/bidmarkt/goapi/domain/bid"
)

// Policy holds the configurable bid acceptance rules
type Policy struct {
	// MinimumIncrement is the fallback when an auction carries none
	MinimumIncrement int64
	// AllowSelfOutbid lets the current high bidder raise their own bid
	AllowSelfOutbid bool
}

// Evaluate decides whether candidate may become the new high bid of a.
//
// It is a pure function: no clock reads, no I/O. The caller supplies
// `now`, and the function is the final authority on timing — an
// auction still flagged open past its end time rejects with
// domain.ErrAuctionExpired regardless of what the scheduler has or has
// not done yet.
//
// On acceptance it returns the next auction state: high bid fields
// replaced, version bumped, status untouched.
func Evaluate(a *Auction, candidate *bid.Bid, now time.Time, policy Policy) (*Auction, error) {
	if a.Status != StatusOpen {
		return nil, domain.ErrAuctionNotOpen
	}
	if now.Before(a.StartTime) {
		return nil, domain.ErrAuctionNotOpen
	}
	if !now.Before(a.EndTime) {
		return nil, domain.ErrAuctionExpired
	}

	if candidate.BidderId == a.OwnerId {
		return nil, domain.ErrOwnerCannotBid
	}

	increment := a.MinimumIncrement
	if increment <= 0 {
		increment = policy.MinimumIncrement
	}

	// CurrentHighBid starts at the starting price, so ties with the
	// starting price are rejected the same way ties with a real bid are
	if candidate.Amount <= a.CurrentHighBid {
		return nil, domain.ErrBidTooLow
	}
	if candidate.Amount-a.CurrentHighBid < increment {
		return nil, domain.ErrIncrementTooSmall
	}
	if a.CurrentHighBidderId != "" && !policy.AllowSelfOutbid && candidate.BidderId == a.CurrentHighBidderId {
		return nil, domain.ErrSelfOutbid
	}

	next := *a
	next.CurrentHighBid = candidate.Amount
	next.CurrentHighBidderId = candidate.BidderId
	next.Version = a.Version + 1
	return &next, nil
}

// legalTransitions maps each status to the statuses it may move to.
// Terminal statuses have no outgoing edges.
var legalTransitions = map[Status][]Status{
	StatusScheduled: {StatusOpen, StatusCancelled},
	StatusOpen:      {StatusClosed, StatusCancelled},
	StatusClosed:    {StatusSettled},
}

// CanTransition reports whether from → to is a legal status move
func CanTransition(from, to Status) bool {
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition returns the next auction state for a status move, or
// domain.ErrInvalidTransition when the move is not legal.
func Transition(a *Auction, to Status) (*Auction, error) {
	if !CanTransition(a.Status, to) {
		return nil, domain.ErrInvalidTransition
	}
	next := *a
	next.Status = to
	next.Version = a.Version + 1
	return &next, nil
}
