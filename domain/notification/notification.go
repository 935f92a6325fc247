package notification

import (
	"github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/domain"
)

// Notifier delivers best-effort notifications. Implementations must
// not block the bidding path and must swallow delivery failures:
// losing a notification never reverses an accepted bid.
type Notifier interface {
	NotifyOutbid(ctx ctx.Ctx, previousBidderId domain.UserId, auctionId domain.AuctionId, newAmount int64) error
}
