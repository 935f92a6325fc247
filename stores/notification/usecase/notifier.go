package usecase

import (
	"time"

	"github.com/viney-shih/goroutines"

	bCtx "github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/base/log"
	"github.com/bidmarkt/goapi/base/metrics"
	"github.com/bidmarkt/goapi/domain"
	"github.com/bidmarkt/goapi/domain/notification"
	"github.com/bidmarkt/goapi/service/notify"
)

type impl struct {
	client     notify.Client
	workerPool *goroutines.Pool
	met        metrics.Service
}

// New creates the outbid notifier. Deliveries run on a worker pool so
// the bidding path never waits on the webhook endpoint, and delivery
// failures are logged but never surfaced to the bidder.
func New(client notify.Client) notification.Notifier {
	return &impl{
		client:     client,
		workerPool: goroutines.NewPool(64),
		met:        metrics.New("notifier"),
	}
}

func (im *impl) NotifyOutbid(ctx bCtx.Ctx, previousBidderId domain.UserId, auctionId domain.AuctionId, newAmount int64) error {
	event := &notify.OutbidEvent{
		BidderId:  previousBidderId,
		AuctionId: auctionId,
		NewAmount: newAmount,
		Timestamp: time.Now().UTC(),
	}

	// detach from the request context, the bid is already committed
	bgCtx := bCtx.Background()

	im.workerPool.Schedule(func() {
		if err := im.client.SendOutbid(bgCtx, event); err != nil {
			im.met.BumpSum("outbid.err", 1)
			bgCtx.WithFields(log.Fields{
				"auctionId": auctionId,
				"bidderId":  previousBidderId,
				"err":       err,
			}).Warn("outbid notification failed")
			return
		}
		im.met.BumpSum("outbid.sent", 1)
	})

	return nil
}
