package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/domain"
	"github.com/bidmarkt/goapi/domain/auction"
	auctionMocks "github.com/bidmarkt/goapi/domain/auction/mocks"
	"github.com/bidmarkt/goapi/domain/bid"
	bidMocks "github.com/bidmarkt/goapi/domain/bid/mocks"
	"github.com/bidmarkt/goapi/domain/listing"
	listingMocks "github.com/bidmarkt/goapi/domain/listing/mocks"
	notificationMocks "github.com/bidmarkt/goapi/domain/notification/mocks"
	"github.com/bidmarkt/goapi/service/redis"
	redisMocks "github.com/bidmarkt/goapi/service/redis/mocks"
)

var frozenNow = time.Unix(1500, 0).UTC()

// txStub runs the callback in place of a real mongo transaction
type txStub struct {
	err error
}

func (t *txStub) RunWithTransaction(c ctx.Ctx, run func(ctx.Ctx) error) error {
	if t.err != nil {
		return t.err
	}
	return run(c)
}

type auctionUseCaseSuite struct {
	suite.Suite

	auctionRepo *auctionMocks.Repo
	ledger      *bidMocks.LedgerRepo
	listingRepo *listingMocks.Repo
	redis       *redisMocks.Service
	notifier    *notificationMocks.Notifier
	tx          *txStub

	im auction.UseCase
}

func TestSuite(t *testing.T) {
	suite.Run(t, new(auctionUseCaseSuite))
}

func (s *auctionUseCaseSuite) SetupTest() {
	timeNow = func() time.Time { return frozenNow }
	newId = func() string { return "generated-id" }

	s.auctionRepo = new(auctionMocks.Repo)
	s.ledger = new(bidMocks.LedgerRepo)
	s.listingRepo = new(listingMocks.Repo)
	s.redis = new(redisMocks.Service)
	s.notifier = new(notificationMocks.Notifier)
	s.tx = &txStub{}

	s.im = New(&AuctionUseCaseCfg{
		AuctionRepo:  s.auctionRepo,
		Ledger:       s.ledger,
		ListingRepo:  s.listingRepo,
		Tx:           s.tx,
		Redis:        s.redis,
		Notifier:     s.notifier,
		Policy:       auction.Policy{MinimumIncrement: 100},
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	})
}

func (s *auctionUseCaseSuite) TearDownTest() {
	timeNow = time.Now
}

func (s *auctionUseCaseSuite) openAuction() *auction.Auction {
	return &auction.Auction{
		Id:                  "auction-1",
		OwnerId:             "owner-1",
		ItemRef:             "listing-1",
		StartingPrice:       10000,
		MinimumIncrement:    500,
		CurrentHighBid:      10500,
		CurrentHighBidderId: "bidder-a",
		StartTime:           time.Unix(1000, 0).UTC(),
		EndTime:             time.Unix(2000, 0).UTC(),
		Status:              auction.StatusOpen,
		Version:             3,
	}
}

func (s *auctionUseCaseSuite) TestSubmitBidAccepted() {
	c := ctx.Background()
	a := s.openAuction()

	s.auctionRepo.On("FindOne", mock.Anything, a.Id).Return(a, nil)
	s.ledger.On("NextSequence", mock.Anything, a.Id).Return(int64(7), nil)
	s.ledger.On("Append", mock.Anything, mock.MatchedBy(func(b *bid.Bid) bool {
		return b.AuctionId == a.Id &&
			b.BidderId == domain.UserId("bidder-b") &&
			b.Amount == int64(11000) &&
			b.SequenceNumber == int64(7) &&
			b.SubmittedAt.Equal(frozenNow)
	})).Return(nil)
	s.auctionRepo.On("UpdateWithVersion", mock.Anything, a.Id, int64(3),
		mock.MatchedBy(func(p auction.Patchable) bool {
			return p.CurrentHighBid != nil && *p.CurrentHighBid == int64(11000) &&
				p.CurrentHighBidderId != nil && *p.CurrentHighBidderId == domain.UserId("bidder-b")
		})).Return(nil)
	s.notifier.On("NotifyOutbid", mock.Anything, domain.UserId("bidder-a"), a.Id, int64(11000)).Return(nil)

	accepted, err := s.im.SubmitBid(c, &auction.SubmitBidPayload{
		AuctionId: a.Id,
		BidderId:  "bidder-b",
		Amount:    11000,
	})
	s.Nil(err)
	s.Equal(int64(7), accepted.SequenceNumber)
	s.Equal(int64(11000), accepted.Amount)

	s.notifier.AssertExpectations(s.T())
	s.ledger.AssertExpectations(s.T())
}

func (s *auctionUseCaseSuite) TestSubmitBidFirstBidNoNotification() {
	c := ctx.Background()
	a := s.openAuction()
	a.CurrentHighBid = a.StartingPrice
	a.CurrentHighBidderId = ""

	s.auctionRepo.On("FindOne", mock.Anything, a.Id).Return(a, nil)
	s.ledger.On("NextSequence", mock.Anything, a.Id).Return(int64(1), nil)
	s.ledger.On("Append", mock.Anything, mock.Anything).Return(nil)
	s.auctionRepo.On("UpdateWithVersion", mock.Anything, a.Id, int64(3), mock.Anything).Return(nil)

	_, err := s.im.SubmitBid(c, &auction.SubmitBidPayload{
		AuctionId: a.Id,
		BidderId:  "bidder-b",
		Amount:    10500,
	})
	s.Nil(err)

	s.notifier.AssertNotCalled(s.T(), "NotifyOutbid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *auctionUseCaseSuite) TestSubmitBidDuplicateSubmission() {
	c := ctx.Background()

	s.redis.On("SetNX", mock.Anything, "bidSubmission:auction-1:req-42", mock.Anything, idempotencyTtl).
		Return(redis.ErrNotSet)

	_, err := s.im.SubmitBid(c, &auction.SubmitBidPayload{
		AuctionId:      "auction-1",
		BidderId:       "bidder-b",
		Amount:         11000,
		IdempotencyKey: "req-42",
	})
	s.Equal(domain.ErrDuplicateSubmission, err)

	s.auctionRepo.AssertNotCalled(s.T(), "FindOne", mock.Anything, mock.Anything)
}

func (s *auctionUseCaseSuite) TestSubmitBidConflictThenSuccess() {
	c := ctx.Background()
	stale := s.openAuction()
	fresh := s.openAuction()
	fresh.CurrentHighBid = 11000
	fresh.CurrentHighBidderId = "bidder-c"
	fresh.Version = 4

	// first read loses the race, second read sees the winner's state
	s.auctionRepo.On("FindOne", mock.Anything, stale.Id).Return(stale, nil).Once()
	s.auctionRepo.On("FindOne", mock.Anything, stale.Id).Return(fresh, nil).Once()

	s.ledger.On("NextSequence", mock.Anything, stale.Id).Return(int64(7), nil).Once()
	s.ledger.On("NextSequence", mock.Anything, stale.Id).Return(int64(8), nil).Once()
	s.ledger.On("Append", mock.Anything, mock.Anything).Return(nil)

	s.auctionRepo.On("UpdateWithVersion", mock.Anything, stale.Id, int64(3), mock.Anything).
		Return(domain.ErrConcurrentModification).Once()
	s.auctionRepo.On("UpdateWithVersion", mock.Anything, stale.Id, int64(4), mock.Anything).
		Return(nil).Once()
	s.notifier.On("NotifyOutbid", mock.Anything, domain.UserId("bidder-c"), stale.Id, int64(12000)).Return(nil)

	accepted, err := s.im.SubmitBid(c, &auction.SubmitBidPayload{
		AuctionId: stale.Id,
		BidderId:  "bidder-b",
		Amount:    12000,
	})
	s.Nil(err)
	s.Equal(int64(8), accepted.SequenceNumber)

	s.auctionRepo.AssertExpectations(s.T())
}

func (s *auctionUseCaseSuite) TestSubmitBidRetriesExhausted() {
	c := ctx.Background()
	a := s.openAuction()

	s.redis.On("SetNX", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s.auctionRepo.On("FindOne", mock.Anything, a.Id).Return(a, nil)
	s.ledger.On("NextSequence", mock.Anything, a.Id).Return(int64(7), nil)
	s.ledger.On("Append", mock.Anything, mock.Anything).Return(nil)
	s.auctionRepo.On("UpdateWithVersion", mock.Anything, a.Id, int64(3), mock.Anything).
		Return(domain.ErrConcurrentModification)

	// transient outcome releases the idempotency key for a resubmit
	s.redis.On("Del", mock.Anything, "bidSubmission:auction-1:req-42").Return(1, nil)

	_, err := s.im.SubmitBid(c, &auction.SubmitBidPayload{
		AuctionId:      a.Id,
		BidderId:       "bidder-b",
		Amount:         11000,
		IdempotencyKey: "req-42",
	})
	s.Equal(domain.ErrConcurrentModification, err)

	s.auctionRepo.AssertNumberOfCalls(s.T(), "UpdateWithVersion", 3)
	s.redis.AssertExpectations(s.T())
}

func (s *auctionUseCaseSuite) TestSubmitBidRejections() {
	c := ctx.Background()

	expired := s.openAuction()
	expired.EndTime = time.Unix(1400, 0).UTC()

	scheduled := s.openAuction()
	scheduled.Status = auction.StatusScheduled

	tests := []struct {
		name     string
		auction  *auction.Auction
		bidderId domain.UserId
		amount   int64
		expErr   error
	}{
		{"owner bid", s.openAuction(), "owner-1", 11000, domain.ErrOwnerCannotBid},
		{"too low", s.openAuction(), "bidder-b", 10500, domain.ErrBidTooLow},
		{"increment too small", s.openAuction(), "bidder-b", 10600, domain.ErrIncrementTooSmall},
		{"self outbid", s.openAuction(), "bidder-a", 11000, domain.ErrSelfOutbid},
		{"expired but still flagged open", expired, "bidder-b", 11000, domain.ErrAuctionExpired},
		{"not open yet", scheduled, "bidder-b", 11000, domain.ErrAuctionNotOpen},
	}

	for _, t := range tests {
		s.SetupTest()
		s.auctionRepo.On("FindOne", mock.Anything, t.auction.Id).Return(t.auction, nil)
		s.redis.On("SetNX", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		// no mutation happened, the key is released so a resubmission
		// is evaluated again and yields the same rejection
		s.redis.On("Del", mock.Anything, mock.Anything).Return(1, nil)

		_, err := s.im.SubmitBid(c, &auction.SubmitBidPayload{
			AuctionId:      t.auction.Id,
			BidderId:       t.bidderId,
			Amount:         t.amount,
			IdempotencyKey: "req-1",
		})
		s.Equal(t.expErr, err, t.name)

		s.auctionRepo.AssertNotCalled(s.T(), "UpdateWithVersion",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	}
}

func (s *auctionUseCaseSuite) TestSubmitBidInvalidAmount() {
	_, err := s.im.SubmitBid(ctx.Background(), &auction.SubmitBidPayload{
		AuctionId: "auction-1",
		BidderId:  "bidder-b",
		Amount:    0,
	})
	s.Equal(domain.ErrInvalidAmount, err)
}

func (s *auctionUseCaseSuite) TestCreateAuction() {
	c := ctx.Background()

	s.listingRepo.On("FindOne", mock.Anything, domain.ListingId("listing-1")).
		Return(&listing.Listing{Id: "listing-1", OwnerId: "owner-1"}, nil)
	s.auctionRepo.On("Create", mock.Anything, mock.MatchedBy(func(a *auction.Auction) bool {
		return a.Id == domain.AuctionId("generated-id") &&
			a.CurrentHighBid == int64(10000) &&
			a.Status == auction.StatusOpen &&
			a.Version == int64(1)
	})).Return(nil)

	// frozenNow is past the start time, the auction opens immediately
	a, err := s.im.CreateAuction(c, &auction.CreateAuctionPayload{
		OwnerId:          "owner-1",
		ItemRef:          "listing-1",
		StartingPrice:    10000,
		MinimumIncrement: 500,
		StartTime:        1000,
		EndTime:          2000,
	})
	s.Nil(err)
	s.Equal(auction.StatusOpen, a.Status)
	s.Equal(int64(10000), a.CurrentHighBid)
}

func (s *auctionUseCaseSuite) TestCreateAuctionScheduled() {
	c := ctx.Background()

	s.listingRepo.On("FindOne", mock.Anything, domain.ListingId("listing-1")).
		Return(&listing.Listing{Id: "listing-1", OwnerId: "owner-1"}, nil)
	s.auctionRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	a, err := s.im.CreateAuction(c, &auction.CreateAuctionPayload{
		OwnerId:       "owner-1",
		ItemRef:       "listing-1",
		StartingPrice: 10000,
		StartTime:     3000,
		EndTime:       4000,
	})
	s.Nil(err)
	s.Equal(auction.StatusScheduled, a.Status)
	// auction carries no increment, the policy fallback is recorded
	s.Equal(int64(100), a.MinimumIncrement)
}

func (s *auctionUseCaseSuite) TestCreateAuctionInvalid() {
	c := ctx.Background()

	_, err := s.im.CreateAuction(c, &auction.CreateAuctionPayload{
		OwnerId:       "owner-1",
		ItemRef:       "listing-1",
		StartingPrice: 10000,
		StartTime:     2000,
		EndTime:       1000,
	})
	s.Equal(domain.ErrInvalidPeriod, err)

	s.listingRepo.On("FindOne", mock.Anything, domain.ListingId("listing-1")).
		Return(&listing.Listing{Id: "listing-1", OwnerId: "someone-else"}, nil)

	_, err = s.im.CreateAuction(c, &auction.CreateAuctionPayload{
		OwnerId:       "owner-1",
		ItemRef:       "listing-1",
		StartingPrice: 10000,
		StartTime:     1000,
		EndTime:       2000,
	})
	s.Equal(domain.ErrBadParamInput, err)
}

func (s *auctionUseCaseSuite) TestGetAuctionState() {
	c := ctx.Background()
	a := s.openAuction()
	high := &bid.Bid{Id: "bid-7", AuctionId: a.Id, BidderId: "bidder-a", Amount: 10500, SequenceNumber: 7}

	s.auctionRepo.On("FindOne", mock.Anything, a.Id).Return(a, nil).Once()
	s.ledger.On("FindHighest", mock.Anything, a.Id).Return(high, nil).Once()
	s.ledger.On("Count", mock.Anything, a.Id).Return(7, nil).Once()

	state, err := s.im.GetAuctionState(c, a.Id)
	s.Nil(err)
	s.Equal(a.Id, state.Auction.Id)
	s.Equal(int64(10500), state.HighBid.Amount)
	s.Equal(7, state.BidCount)
	s.Equal("105.00", state.DisplayPrice)

	// second read within the ttl is served from the cache
	state, err = s.im.GetAuctionState(c, a.Id)
	s.Nil(err)
	s.Equal(7, state.BidCount)
	s.auctionRepo.AssertNumberOfCalls(s.T(), "FindOne", 1)
}

func (s *auctionUseCaseSuite) TestListBids() {
	c := ctx.Background()
	a := s.openAuction()
	bids := []*bid.Bid{
		{Id: "bid-1", AuctionId: a.Id, SequenceNumber: 1},
		{Id: "bid-2", AuctionId: a.Id, SequenceNumber: 2},
	}

	s.auctionRepo.On("FindOne", mock.Anything, a.Id).Return(a, nil)
	s.ledger.On("FindAll", mock.Anything, mock.Anything).Return(bids, nil)

	res, err := s.im.ListBids(c, a.Id)
	s.Nil(err)
	s.Len(res, 2)

	s.auctionRepo.On("FindOne", mock.Anything, domain.AuctionId("nope")).
		Return(nil, domain.ErrAuctionNotFound)
	_, err = s.im.ListBids(c, "nope")
	s.Equal(domain.ErrAuctionNotFound, err)
}

func (s *auctionUseCaseSuite) TestCancelAuction() {
	c := ctx.Background()
	a := s.openAuction()
	cancelled := s.openAuction()
	cancelled.Status = auction.StatusCancelled
	cancelled.Version = 4

	s.auctionRepo.On("FindOne", mock.Anything, a.Id).Return(a, nil).Once()
	s.auctionRepo.On("UpdateWithVersion", mock.Anything, a.Id, int64(3),
		mock.MatchedBy(func(p auction.Patchable) bool {
			return p.Status != nil && *p.Status == auction.StatusCancelled
		})).Return(nil)
	s.auctionRepo.On("FindOne", mock.Anything, a.Id).Return(cancelled, nil).Once()

	res, err := s.im.CancelAuction(c, a.Id)
	s.Nil(err)
	s.Equal(auction.StatusCancelled, res.Status)
}

func (s *auctionUseCaseSuite) TestCancelSettledAuction() {
	c := ctx.Background()
	a := s.openAuction()
	a.Status = auction.StatusSettled

	s.auctionRepo.On("FindOne", mock.Anything, a.Id).Return(a, nil)

	_, err := s.im.CancelAuction(c, a.Id)
	s.Equal(domain.ErrInvalidTransition, err)
}

func (s *auctionUseCaseSuite) TestSettleAuction() {
	c := ctx.Background()
	a := s.openAuction()
	a.Status = auction.StatusClosed
	settled := s.openAuction()
	settled.Status = auction.StatusSettled
	settled.Version = 4

	s.auctionRepo.On("FindOne", mock.Anything, a.Id).Return(a, nil).Once()
	s.auctionRepo.On("UpdateWithVersion", mock.Anything, a.Id, int64(3),
		mock.MatchedBy(func(p auction.Patchable) bool {
			return p.Status != nil && *p.Status == auction.StatusSettled &&
				p.SettledAt != nil && p.SettledAt.Equal(frozenNow) &&
				p.WinnerId != nil && *p.WinnerId == domain.UserId("bidder-a") &&
				p.HammerPrice != nil && *p.HammerPrice == int64(10500)
		})).Return(nil)
	s.auctionRepo.On("FindOne", mock.Anything, a.Id).Return(settled, nil).Once()

	res, err := s.im.SettleAuction(c, a.Id)
	s.Nil(err)
	s.Equal(auction.StatusSettled, res.Status)
}

func (s *auctionUseCaseSuite) TestSettleAuctionNoBids() {
	c := ctx.Background()
	a := s.openAuction()
	a.Status = auction.StatusClosed
	a.CurrentHighBid = a.StartingPrice
	a.CurrentHighBidderId = ""

	s.auctionRepo.On("FindOne", mock.Anything, a.Id).Return(a, nil)
	s.auctionRepo.On("UpdateWithVersion", mock.Anything, a.Id, int64(3),
		mock.MatchedBy(func(p auction.Patchable) bool {
			// no winner recorded when nothing was bid
			return p.WinnerId == nil && p.HammerPrice == nil && p.SettledAt != nil
		})).Return(nil)

	_, err := s.im.SettleAuction(c, a.Id)
	s.Nil(err)
}

func (s *auctionUseCaseSuite) TestOpenDueAuctions() {
	c := ctx.Background()

	due := []*auction.Auction{
		{Id: "auction-1", Status: auction.StatusScheduled, Version: 1},
		{Id: "auction-2", Status: auction.StatusScheduled, Version: 1},
	}

	s.auctionRepo.On("FindAll", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(due, nil)
	s.auctionRepo.On("UpdateWithVersion", mock.Anything, domain.AuctionId("auction-1"), int64(1), mock.Anything).
		Return(nil)
	// another replica already opened this one, the sweep just moves on
	s.auctionRepo.On("UpdateWithVersion", mock.Anything, domain.AuctionId("auction-2"), int64(1), mock.Anything).
		Return(domain.ErrConcurrentModification)

	count, err := s.im.OpenDueAuctions(c, frozenNow)
	s.Nil(err)
	s.Equal(1, count)
}

func (s *auctionUseCaseSuite) TestCloseDueAuctions() {
	c := ctx.Background()

	due := []*auction.Auction{
		{Id: "auction-1", Status: auction.StatusOpen, Version: 5},
	}

	s.auctionRepo.On("FindAll", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(due, nil)
	s.auctionRepo.On("UpdateWithVersion", mock.Anything, domain.AuctionId("auction-1"), int64(5),
		mock.MatchedBy(func(p auction.Patchable) bool {
			return p.Status != nil && *p.Status == auction.StatusClosed
		})).Return(nil)

	count, err := s.im.CloseDueAuctions(c, frozenNow)
	s.Nil(err)
	s.Equal(1, count)
}

func (s *auctionUseCaseSuite) TestRebuildHighBidDiverged() {
	c := ctx.Background()
	a := s.openAuction()
	a.CurrentHighBid = 10000
	a.CurrentHighBidderId = ""
	rebuilt := s.openAuction()
	rebuilt.Version = 4

	bids := []*bid.Bid{
		{Id: "bid-1", AuctionId: a.Id, BidderId: "bidder-b", Amount: 10200, SequenceNumber: 1},
		{Id: "bid-2", AuctionId: a.Id, BidderId: "bidder-a", Amount: 10500, SequenceNumber: 2},
	}

	s.auctionRepo.On("FindOne", mock.Anything, a.Id).Return(a, nil).Once()
	s.ledger.On("FindAll", mock.Anything, mock.Anything).Return(bids, nil)
	s.auctionRepo.On("UpdateWithVersion", mock.Anything, a.Id, int64(3),
		mock.MatchedBy(func(p auction.Patchable) bool {
			return p.CurrentHighBid != nil && *p.CurrentHighBid == int64(10500) &&
				p.CurrentHighBidderId != nil && *p.CurrentHighBidderId == domain.UserId("bidder-a")
		})).Return(nil)
	s.auctionRepo.On("FindOne", mock.Anything, a.Id).Return(rebuilt, nil).Once()

	res, err := s.im.RebuildHighBid(c, a.Id)
	s.Nil(err)
	s.Equal(int64(10500), res.CurrentHighBid)
}

func (s *auctionUseCaseSuite) TestRebuildHighBidInSync() {
	c := ctx.Background()
	a := s.openAuction()

	bids := []*bid.Bid{
		{Id: "bid-1", AuctionId: a.Id, BidderId: "bidder-a", Amount: 10500, SequenceNumber: 1},
	}

	s.auctionRepo.On("FindOne", mock.Anything, a.Id).Return(a, nil)
	s.ledger.On("FindAll", mock.Anything, mock.Anything).Return(bids, nil)

	res, err := s.im.RebuildHighBid(c, a.Id)
	s.Nil(err)
	s.Equal(a.CurrentHighBid, res.CurrentHighBid)

	s.auctionRepo.AssertNotCalled(s.T(), "UpdateWithVersion",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
