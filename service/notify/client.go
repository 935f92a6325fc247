package notify

import (
	"errors"
	"net/http"
	"time"

	bCtx "github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/domain"
)

var (
	ErrStatusCodeNotOk = errors.New("http.status != 200")
)

// OutbidEvent is the webhook payload sent when a bidder loses the top
// spot on an auction.
type OutbidEvent struct {
	BidderId  domain.UserId    `json:"bidderId"`
	AuctionId domain.AuctionId `json:"auctionId"`
	NewAmount int64            `json:"newAmount"`
	Timestamp time.Time        `json:"timestamp"`
}

type Client interface {
	SendOutbid(bCtx.Ctx, *OutbidEvent) error
}

type ClientCfg struct {
	HttpClient http.Client
	Timeout    time.Duration
	Endpoint   string
	Apikey     string
}
