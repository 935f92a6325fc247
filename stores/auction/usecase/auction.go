package usecase

import (
	"time"

	"github.com/google/uuid"

	"github.com/bidmarkt/goapi/base/backoff"
	"github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/base/log"
	"github.com/bidmarkt/goapi/base/metrics"
	"github.com/bidmarkt/goapi/base/money"
	"github.com/bidmarkt/goapi/domain"
	"github.com/bidmarkt/goapi/domain/auction"
	"github.com/bidmarkt/goapi/domain/bid"
	"github.com/bidmarkt/goapi/domain/keys"
	"github.com/bidmarkt/goapi/domain/listing"
	"github.com/bidmarkt/goapi/domain/notification"
	"github.com/bidmarkt/goapi/service/cache"
	"github.com/bidmarkt/goapi/service/cache/provider/primitive"
	"github.com/bidmarkt/goapi/service/query"
	"github.com/bidmarkt/goapi/service/redis"
)

const (
	defaultMaxRetries   = 5
	defaultRetryBackoff = 20 * time.Millisecond
	idempotencyTtl      = 24 * time.Hour
	sweepBatchSize      = int32(500)
)

var (
	timeNow = time.Now
	newId   = uuid.NewString
)

type AuctionUseCaseCfg struct {
	AuctionRepo auction.Repo
	Ledger      bid.LedgerRepo
	ListingRepo listing.Repo
	Tx          query.TxRunner
	Redis       redis.Service
	Notifier    notification.Notifier
	Policy      auction.Policy

	// MaxRetries bounds the optimistic-concurrency retry loop,
	// RetryBackoff is the linear step between attempts
	MaxRetries   int
	RetryBackoff time.Duration
}

type impl struct {
	auctionRepo  auction.Repo
	ledger       bid.LedgerRepo
	listingRepo  listing.Repo
	tx           query.TxRunner
	redis        redis.Service
	notifier     notification.Notifier
	policy       auction.Policy
	maxRetries   int
	retryBackoff time.Duration
	stateCache   cache.Service
	met          metrics.Service
}

func New(cfg *AuctionUseCaseCfg) auction.UseCase {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	retryBackoff := cfg.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = defaultRetryBackoff
	}

	return &impl{
		auctionRepo:  cfg.AuctionRepo,
		ledger:       cfg.Ledger,
		listingRepo:  cfg.ListingRepo,
		tx:           cfg.Tx,
		redis:        cfg.Redis,
		notifier:     cfg.Notifier,
		policy:       cfg.Policy,
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
		stateCache: cache.New(cache.ServiceConfig{
			Ttl:   2 * time.Second,
			Pfx:   keys.PfxAuctionState,
			Cache: primitive.NewPrimitive(keys.PfxAuctionState, 32),
		}),
		met: metrics.New("auction"),
	}
}

func (im *impl) CreateAuction(c ctx.Ctx, payload *auction.CreateAuctionPayload) (*auction.Auction, error) {
	if payload.StartingPrice <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	startTime := time.Unix(payload.StartTime, 0).UTC()
	endTime := time.Unix(payload.EndTime, 0).UTC()
	if !endTime.After(startTime) {
		return nil, domain.ErrInvalidPeriod
	}

	item, err := im.listingRepo.FindOne(c, payload.ItemRef)
	if err != nil {
		return nil, err
	}
	if item.OwnerId != payload.OwnerId {
		return nil, domain.ErrBadParamInput
	}

	increment := payload.MinimumIncrement
	if increment <= 0 {
		increment = im.policy.MinimumIncrement
	}

	now := timeNow().UTC()
	status := auction.StatusScheduled
	if !now.Before(startTime) {
		status = auction.StatusOpen
	}

	a := &auction.Auction{
		Id:               domain.AuctionId(newId()),
		OwnerId:          payload.OwnerId,
		ItemRef:          payload.ItemRef,
		StartingPrice:    payload.StartingPrice,
		MinimumIncrement: increment,
		CurrentHighBid:   payload.StartingPrice,
		StartTime:        startTime,
		EndTime:          endTime,
		Status:           status,
		Version:          1,
		CreatedAt:        now,
	}

	if err := im.auctionRepo.Create(c, a); err != nil {
		c.WithField("err", err).Error("auctionRepo.Create failed")
		return nil, err
	}

	im.met.BumpSum("create", 1)
	return a, nil
}

func (im *impl) ListAuctions(c ctx.Ctx, opts ...auction.FindAllOptionsFunc) ([]*auction.Auction, error) {
	return im.auctionRepo.FindAll(c, opts...)
}

func (im *impl) GetAuctionState(c ctx.Ctx, id domain.AuctionId) (*auction.State, error) {
	res := &auction.State{}

	if err := im.stateCache.GetByFunc(c, string(id), res, func() (interface{}, error) {
		return im.getAuctionState(c, id)
	}); err != nil {
		return nil, err
	}

	return res, nil
}

func (im *impl) getAuctionState(c ctx.Ctx, id domain.AuctionId) (*auction.State, error) {
	a, err := im.auctionRepo.FindOne(c, id)
	if err != nil {
		return nil, err
	}

	highest, err := im.ledger.FindHighest(c, id)
	if err != nil {
		return nil, err
	}

	count, err := im.ledger.Count(c, id)
	if err != nil {
		return nil, err
	}

	return &auction.State{
		Auction:      a,
		HighBid:      highest,
		BidCount:     count,
		DisplayPrice: money.ToDisplay(a.CurrentHighBid),
	}, nil
}

// SubmitBid validates the bid against the auction rules and, on
// acceptance, commits the ledger append and the high-bid update as one
// transaction. The auction update is version-checked, a concurrent
// writer makes the transaction fail and the whole evaluation is
// retried against fresh state, up to maxRetries times with linear
// backoff.
func (im *impl) SubmitBid(c ctx.Ctx, payload *auction.SubmitBidPayload) (*bid.Bid, error) {
	defer im.met.BumpTime("submit.time").End()

	if payload.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	if err := im.claimIdempotencyKey(c, payload); err != nil {
		return nil, err
	}

	accepted, prevBidder, err := im.submitWithRetry(c, payload)
	if err != nil {
		// nothing was committed, release the key so a resubmission is
		// evaluated again and yields the same rejection
		im.releaseIdempotencyKey(c, payload)
		im.met.BumpSum("bid.rejected", 1, "reason", reasonTag(err))
		return nil, err
	}

	im.met.BumpSum("bid.accepted", 1)
	im.stateCache.Del(c, string(payload.AuctionId))

	if prevBidder != "" && prevBidder != payload.BidderId {
		// best effort, delivery runs detached from this request
		im.notifier.NotifyOutbid(c, prevBidder, payload.AuctionId, accepted.Amount)
	}

	return accepted, nil
}

func (im *impl) submitWithRetry(c ctx.Ctx, payload *auction.SubmitBidPayload) (*bid.Bid, domain.UserId, error) {
	bo := backoff.NewLinear(im.retryBackoff, 0)

	for attempt := 0; attempt < im.maxRetries; attempt++ {
		if attempt > 0 {
			im.met.BumpSum("bid.retry", 1)
			if err := bo.Backoff(c); err != nil {
				return nil, "", err
			}
		}

		a, err := im.auctionRepo.FindOne(c, payload.AuctionId)
		if err != nil {
			return nil, "", err
		}

		candidate := &bid.Bid{
			AuctionId: payload.AuctionId,
			BidderId:  payload.BidderId,
			Amount:    payload.Amount,
		}

		next, err := auction.Evaluate(a, candidate, timeNow().UTC(), im.policy)
		if err != nil {
			return nil, "", err
		}

		accepted, err := im.commitBid(c, a, next, candidate)
		if err == domain.ErrConcurrentModification {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return accepted, a.CurrentHighBidderId, nil
	}

	c.WithFields(log.Fields{
		"auctionId": payload.AuctionId,
		"bidderId":  payload.BidderId,
	}).Warn("bid retries exhausted")
	im.met.BumpSum("bid.retries_exhausted", 1)
	return nil, "", domain.ErrConcurrentModification
}

// commitBid appends the accepted bid to the ledger and swaps the
// high-bid cache in one transaction, so a reader never observes one
// without the other.
func (im *impl) commitBid(c ctx.Ctx, a, next *auction.Auction, candidate *bid.Bid) (*bid.Bid, error) {
	var accepted *bid.Bid

	err := im.tx.RunWithTransaction(c, func(txCtx ctx.Ctx) error {
		seq, err := im.ledger.NextSequence(txCtx, a.Id)
		if err != nil {
			return err
		}

		b := &bid.Bid{
			Id:             newId(),
			AuctionId:      candidate.AuctionId,
			BidderId:       candidate.BidderId,
			Amount:         candidate.Amount,
			SubmittedAt:    timeNow().UTC(),
			SequenceNumber: seq,
		}
		if err := im.ledger.Append(txCtx, b); err != nil {
			return err
		}

		patch := auction.Patchable{
			CurrentHighBid:      &next.CurrentHighBid,
			CurrentHighBidderId: &next.CurrentHighBidderId,
		}
		if err := im.auctionRepo.UpdateWithVersion(txCtx, a.Id, a.Version, patch); err != nil {
			return err
		}

		accepted = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

func (im *impl) ListBids(c ctx.Ctx, id domain.AuctionId) ([]*bid.Bid, error) {
	if _, err := im.auctionRepo.FindOne(c, id); err != nil {
		return nil, err
	}
	return im.ledger.FindAll(c, bid.WithAuctionId(id))
}

func (im *impl) CancelAuction(c ctx.Ctx, id domain.AuctionId) (*auction.Auction, error) {
	return im.transition(c, id, auction.StatusCancelled, nil)
}

func (im *impl) SettleAuction(c ctx.Ctx, id domain.AuctionId) (*auction.Auction, error) {
	now := timeNow().UTC()
	return im.transition(c, id, auction.StatusSettled, func(a *auction.Auction, patch *auction.Patchable) {
		patch.SettledAt = &now
		if a.CurrentHighBidderId != "" {
			patch.WinnerId = &a.CurrentHighBidderId
			patch.HammerPrice = &a.CurrentHighBid
		}
	})
}

// transition moves an auction to another status under the same
// optimistic-concurrency discipline as bidding.
func (im *impl) transition(c ctx.Ctx, id domain.AuctionId, to auction.Status, decorate func(*auction.Auction, *auction.Patchable)) (*auction.Auction, error) {
	bo := backoff.NewLinear(im.retryBackoff, 0)

	for attempt := 0; attempt < im.maxRetries; attempt++ {
		if attempt > 0 {
			if err := bo.Backoff(c); err != nil {
				return nil, err
			}
		}

		a, err := im.auctionRepo.FindOne(c, id)
		if err != nil {
			return nil, err
		}

		next, err := auction.Transition(a, to)
		if err != nil {
			return nil, err
		}

		patch := auction.Patchable{Status: &next.Status}
		if decorate != nil {
			decorate(a, &patch)
		}

		err = im.auctionRepo.UpdateWithVersion(c, id, a.Version, patch)
		if err == domain.ErrConcurrentModification {
			continue
		}
		if err != nil {
			return nil, err
		}

		im.stateCache.Del(c, string(id))
		im.met.BumpSum("transition", 1, "to", string(to))
		return im.auctionRepo.FindOne(c, id)
	}

	return nil, domain.ErrConcurrentModification
}

// OpenDueAuctions flips scheduled auctions whose start time has passed
// to open. Races with other scheduler replicas are benign: the loser's
// version-checked update simply matches nothing.
func (im *impl) OpenDueAuctions(c ctx.Ctx, now time.Time) (int, error) {
	return im.sweep(c,
		[]auction.FindAllOptionsFunc{
			auction.WithStatus(auction.StatusScheduled),
			auction.WithStartTimeLT(now),
		},
		auction.StatusOpen)
}

// CloseDueAuctions flips open auctions whose end time has passed to
// closed.
func (im *impl) CloseDueAuctions(c ctx.Ctx, now time.Time) (int, error) {
	return im.sweep(c,
		[]auction.FindAllOptionsFunc{
			auction.WithStatus(auction.StatusOpen),
			auction.WithEndTimeLT(now),
		},
		auction.StatusClosed)
}

func (im *impl) sweep(c ctx.Ctx, filter []auction.FindAllOptionsFunc, to auction.Status) (int, error) {
	count := 0

	for {
		opts := append([]auction.FindAllOptionsFunc{}, filter...)
		opts = append(opts, auction.WithPagination(0, sweepBatchSize))

		due, err := im.auctionRepo.FindAll(c, opts...)
		if err != nil {
			return count, err
		}

		for _, a := range due {
			status := to
			err := im.auctionRepo.UpdateWithVersion(c, a.Id, a.Version, auction.Patchable{Status: &status})
			if err == domain.ErrConcurrentModification {
				// someone else got there first, the next sweep picks
				// the auction up again if it is still due
				continue
			}
			if err != nil {
				return count, err
			}
			im.stateCache.Del(c, string(a.Id))
			count++
		}

		if len(due) < int(sweepBatchSize) {
			return count, nil
		}
	}
}

// RebuildHighBid replays the ledger in sequence order and rewrites the
// auction's high-bid cache from it. The ledger is the source of truth,
// the cached fields are always recomputable.
func (im *impl) RebuildHighBid(c ctx.Ctx, id domain.AuctionId) (*auction.Auction, error) {
	bo := backoff.NewLinear(im.retryBackoff, 0)

	for attempt := 0; attempt < im.maxRetries; attempt++ {
		if attempt > 0 {
			if err := bo.Backoff(c); err != nil {
				return nil, err
			}
		}

		a, err := im.auctionRepo.FindOne(c, id)
		if err != nil {
			return nil, err
		}

		bids, err := im.ledger.FindAll(c, bid.WithAuctionId(id))
		if err != nil {
			return nil, err
		}

		highBid := a.StartingPrice
		highBidder := domain.UserId("")
		for _, b := range bids {
			if b.Amount > highBid {
				highBid = b.Amount
				highBidder = b.BidderId
			}
		}

		if highBid == a.CurrentHighBid && highBidder == a.CurrentHighBidderId {
			return a, nil
		}

		c.WithFields(log.Fields{
			"auctionId":  id,
			"cachedBid":  a.CurrentHighBid,
			"rebuiltBid": highBid,
		}).Warn("high-bid cache diverged from ledger")
		im.met.BumpSum("rebuild.diverged", 1)

		patch := auction.Patchable{
			CurrentHighBid:      &highBid,
			CurrentHighBidderId: &highBidder,
		}
		err = im.auctionRepo.UpdateWithVersion(c, id, a.Version, patch)
		if err == domain.ErrConcurrentModification {
			continue
		}
		if err != nil {
			return nil, err
		}

		im.stateCache.Del(c, string(id))
		return im.auctionRepo.FindOne(c, id)
	}

	return nil, domain.ErrConcurrentModification
}

func (im *impl) claimIdempotencyKey(c ctx.Ctx, payload *auction.SubmitBidPayload) error {
	if payload.IdempotencyKey == "" || im.redis == nil {
		return nil
	}

	key := keys.RedisKey(keys.PfxBidSubmission, string(payload.AuctionId), payload.IdempotencyKey)
	err := im.redis.SetNX(c, key, []byte(string(payload.BidderId)), idempotencyTtl)
	if err == redis.ErrNotSet {
		return domain.ErrDuplicateSubmission
	}
	if err != nil {
		// degraded redis must not take bidding down with it
		c.WithField("err", err).Warn("idempotency SetNX failed")
	}
	return nil
}

func (im *impl) releaseIdempotencyKey(c ctx.Ctx, payload *auction.SubmitBidPayload) {
	if payload.IdempotencyKey == "" || im.redis == nil {
		return
	}

	key := keys.RedisKey(keys.PfxBidSubmission, string(payload.AuctionId), payload.IdempotencyKey)
	if _, err := im.redis.Del(c, key); err != nil {
		c.WithField("err", err).Warn("idempotency Del failed")
	}
}

func reasonTag(err error) string {
	switch err {
	case domain.ErrAuctionNotOpen:
		return "not_open"
	case domain.ErrAuctionExpired:
		return "expired"
	case domain.ErrBidTooLow:
		return "too_low"
	case domain.ErrIncrementTooSmall:
		return "increment"
	case domain.ErrSelfOutbid:
		return "self_outbid"
	case domain.ErrOwnerCannotBid:
		return "owner"
	case domain.ErrInvalidAmount:
		return "invalid_amount"
	case domain.ErrConcurrentModification:
		return "conflict"
	case domain.ErrAuctionNotFound:
		return "not_found"
	case domain.ErrStoreUnavailable:
		return "store_unavailable"
	default:
		return "other"
	}
}
