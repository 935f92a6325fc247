package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bidmarkt/goapi/domain"
	"github.com/bidmarkt/goapi/domain/bid"
)

var (
	owner   = domain.UserId("owner-1")
	bidderX = domain.UserId("bidder-x")
	bidderY = domain.UserId("bidder-y")
)

func openAuction(now time.Time) *Auction {
	return &Auction{
		Id:               "auction-1",
		OwnerId:          owner,
		ItemRef:          "listing-1",
		StartingPrice:    100,
		MinimumIncrement: 5,
		CurrentHighBid:   100,
		StartTime:        now.Add(-time.Hour),
		EndTime:          now.Add(time.Hour),
		Status:           StatusOpen,
		Version:          3,
	}
}

func candidate(bidder domain.UserId, amount int64, now time.Time) *bid.Bid {
	return &bid.Bid{
		Id:          "bid-1",
		AuctionId:   "auction-1",
		BidderId:    bidder,
		Amount:      amount,
		SubmittedAt: now,
	}
}

func TestEvaluate(t *testing.T) {
	now := time.Now()
	policy := Policy{MinimumIncrement: 5}

	cases := []struct {
		name    string
		mutate  func(*Auction)
		bidder  domain.UserId
		amount  int64
		wantErr error
	}{
		{
			name:    "below starting price",
			bidder:  bidderX,
			amount:  80,
			wantErr: domain.ErrBidTooLow,
		},
		{
			name:    "tie with starting price",
			bidder:  bidderX,
			amount:  100,
			wantErr: domain.ErrBidTooLow,
		},
		{
			name:    "increment too small on first bid",
			bidder:  bidderX,
			amount:  103,
			wantErr: domain.ErrIncrementTooSmall,
		},
		{
			name:   "first valid bid",
			bidder: bidderX,
			amount: 105,
		},
		{
			name: "tie with current high bid",
			mutate: func(a *Auction) {
				a.CurrentHighBid = 105
				a.CurrentHighBidderId = bidderX
			},
			bidder:  bidderY,
			amount:  105,
			wantErr: domain.ErrBidTooLow,
		},
		{
			name: "self outbid",
			mutate: func(a *Auction) {
				a.CurrentHighBid = 105
				a.CurrentHighBidderId = bidderX
			},
			bidder:  bidderX,
			amount:  110,
			wantErr: domain.ErrSelfOutbid,
		},
		{
			name: "other bidder takes over",
			mutate: func(a *Auction) {
				a.CurrentHighBid = 105
				a.CurrentHighBidderId = bidderX
			},
			bidder: bidderY,
			amount: 110,
		},
		{
			name:    "owner cannot bid",
			bidder:  owner,
			amount:  1000,
			wantErr: domain.ErrOwnerCannotBid,
		},
		{
			name: "not open yet",
			mutate: func(a *Auction) {
				a.StartTime = now.Add(time.Minute)
			},
			bidder:  bidderX,
			amount:  105,
			wantErr: domain.ErrAuctionNotOpen,
		},
		{
			name: "scheduled status",
			mutate: func(a *Auction) {
				a.Status = StatusScheduled
			},
			bidder:  bidderX,
			amount:  105,
			wantErr: domain.ErrAuctionNotOpen,
		},
		{
			name: "closed status",
			mutate: func(a *Auction) {
				a.Status = StatusClosed
			},
			bidder:  bidderX,
			amount:  105,
			wantErr: domain.ErrAuctionNotOpen,
		},
		{
			name: "expired while still flagged open",
			mutate: func(a *Auction) {
				a.EndTime = now.Add(-time.Second)
			},
			bidder:  bidderX,
			amount:  105,
			wantErr: domain.ErrAuctionExpired,
		},
		{
			name: "end time boundary is exclusive",
			mutate: func(a *Auction) {
				a.EndTime = now
			},
			bidder:  bidderX,
			amount:  105,
			wantErr: domain.ErrAuctionExpired,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := require.New(t)

			a := openAuction(now)
			if c.mutate != nil {
				c.mutate(a)
			}

			next, err := Evaluate(a, candidate(c.bidder, c.amount, now), now, policy)
			if c.wantErr != nil {
				req.ErrorIs(err, c.wantErr)
				req.Nil(next)
				return
			}
			req.NoError(err)
			req.Equal(c.amount, next.CurrentHighBid)
			req.Equal(c.bidder, next.CurrentHighBidderId)
			req.Equal(a.Version+1, next.Version)
			req.Equal(StatusOpen, next.Status)
		})
	}
}

func TestEvaluateRejectionIsIdempotent(t *testing.T) {
	req := require.New(t)
	now := time.Now()
	policy := Policy{MinimumIncrement: 5}

	a := openAuction(now)

	for i := 0; i < 3; i++ {
		next, err := Evaluate(a, candidate(bidderX, 80, now), now, policy)
		req.ErrorIs(err, domain.ErrBidTooLow)
		req.Nil(next)
	}
	// the rejected evaluations did not mutate the auction
	req.Equal(int64(100), a.CurrentHighBid)
	req.Equal(int64(3), a.Version)
}

func TestEvaluateAllowSelfOutbid(t *testing.T) {
	req := require.New(t)
	now := time.Now()

	a := openAuction(now)
	a.CurrentHighBid = 105
	a.CurrentHighBidderId = bidderX

	next, err := Evaluate(a, candidate(bidderX, 110, now), now, Policy{MinimumIncrement: 5, AllowSelfOutbid: true})
	req.NoError(err)
	req.Equal(int64(110), next.CurrentHighBid)
	req.Equal(bidderX, next.CurrentHighBidderId)
}

func TestEvaluatePolicyIncrementFallback(t *testing.T) {
	req := require.New(t)
	now := time.Now()

	a := openAuction(now)
	a.MinimumIncrement = 0

	_, err := Evaluate(a, candidate(bidderX, 103, now), now, Policy{MinimumIncrement: 5})
	req.ErrorIs(err, domain.ErrIncrementTooSmall)

	next, err := Evaluate(a, candidate(bidderX, 105, now), now, Policy{MinimumIncrement: 5})
	req.NoError(err)
	req.Equal(int64(105), next.CurrentHighBid)
}

func TestTransition(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusScheduled, StatusOpen, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusScheduled, StatusClosed, false},
		{StatusScheduled, StatusSettled, false},
		{StatusOpen, StatusClosed, true},
		{StatusOpen, StatusCancelled, true},
		{StatusOpen, StatusScheduled, false},
		{StatusOpen, StatusSettled, false},
		{StatusClosed, StatusSettled, true},
		{StatusClosed, StatusOpen, false},
		{StatusClosed, StatusCancelled, false},
		{StatusSettled, StatusOpen, false},
		{StatusSettled, StatusClosed, false},
		{StatusCancelled, StatusOpen, false},
		{StatusCancelled, StatusSettled, false},
	}

	for _, c := range cases {
		t.Run(string(c.from)+"_to_"+string(c.to), func(t *testing.T) {
			req := require.New(t)

			a := &Auction{Status: c.from, Version: 7}
			next, err := Transition(a, c.to)
			if !c.ok {
				req.ErrorIs(err, domain.ErrInvalidTransition)
				req.Nil(next)
				return
			}
			req.NoError(err)
			req.Equal(c.to, next.Status)
			req.Equal(int64(8), next.Version)
			// the input is left untouched
			req.Equal(c.from, a.Status)
		})
	}
}
