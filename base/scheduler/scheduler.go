package scheduler

import (
	"time"

	bCtx "github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/base/goroutine"
	"github.com/bidmarkt/goapi/base/log"
	"github.com/bidmarkt/goapi/domain/auction"
)

// AuctionSchedulerCfg configures the background lifecycle sweep.
type AuctionSchedulerCfg struct {
	Auction  auction.UseCase
	Interval time.Duration
	ErrorCh  chan<- error
}

// AuctionScheduler periodically opens scheduled auctions whose start
// time has passed and closes open auctions whose end time has passed.
// It is an optimization only: the bidding path checks timing on its
// own and never depends on the sweep having run.
type AuctionScheduler struct {
	auction   auction.UseCase
	interval  time.Duration
	errorCh   chan<- error
	stoppedCh chan interface{}
}

func NewAuctionScheduler(cfg *AuctionSchedulerCfg) *AuctionScheduler {
	return &AuctionScheduler{
		auction:   cfg.Auction,
		interval:  cfg.Interval,
		errorCh:   cfg.ErrorCh,
		stoppedCh: make(chan interface{}),
	}
}

func (u *AuctionScheduler) Start(ctx bCtx.Ctx) {
	goroutine.RecoverableGo(func() { u.loop(ctx) })
}

func (u *AuctionScheduler) Wait() {
	<-u.stoppedCh
}

func (u *AuctionScheduler) loop(ctx bCtx.Ctx) {
	errAndStop := func(err error) {
		u.errorCh <- err
		close(u.stoppedCh)
	}

	nextTick := time.Second * 0

	for {
		select {
		case <-ctx.Done():
			close(u.stoppedCh)
			return
		case <-time.After(nextTick):
			nextTick = u.interval
			now := time.Now()

			opened, err := u.auction.OpenDueAuctions(ctx, now)
			if err != nil {
				ctx.WithField("err", err).Error("auction.OpenDueAuctions failed")
				errAndStop(err)
				return
			}

			closed, err := u.auction.CloseDueAuctions(ctx, now)
			if err != nil {
				ctx.WithField("err", err).Error("auction.CloseDueAuctions failed")
				errAndStop(err)
				return
			}

			if opened > 0 || closed > 0 {
				ctx.WithFields(log.Fields{
					"opened": opened,
					"closed": closed,
				}).Info("auction sweep")
			}
		}
	}
}
