package bid

import (
	"time"

	"github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/domain"
)

// Bid is an accepted offer recorded in the ledger. Bids are immutable:
// once appended they are never updated or removed.
type Bid struct {
	Id             string           `json:"id" bson:"id"`
	AuctionId      domain.AuctionId `json:"auctionId" bson:"auctionId"`
	BidderId       domain.UserId    `json:"bidderId" bson:"bidderId"`
	Amount         int64            `json:"amount" bson:"amount"`
	SubmittedAt    time.Time        `json:"submittedAt" bson:"submittedAt"`
	SequenceNumber int64            `json:"sequenceNumber" bson:"sequenceNumber"`
}

type FindAllOptions struct {
	AuctionId *domain.AuctionId
	BidderId  *domain.UserId
	Offset    *int32
	Limit     *int32
	Sort      *string
}

type FindAllOptionsFunc func(*FindAllOptions) error

func GetFindAllOptions(opts ...FindAllOptionsFunc) (FindAllOptions, error) {
	res := FindAllOptions{}

	for _, opt := range opts {
		if err := opt(&res); err != nil {
			return res, err
		}
	}

	return res, nil
}

func WithAuctionId(auctionId domain.AuctionId) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.AuctionId = &auctionId
		return nil
	}
}

func WithBidderId(bidderId domain.UserId) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.BidderId = &bidderId
		return nil
	}
}

func WithPagination(offset int32, limit int32) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Offset = &offset
		options.Limit = &limit
		return nil
	}
}

func WithSort(sort string) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Sort = &sort
		return nil
	}
}

// LedgerRepo is the append-only bid ledger. NextSequence and Append are
// expected to run inside the same transaction as the auction update so
// the pair commits atomically.
type LedgerRepo interface {
	Append(ctx ctx.Ctx, bid *Bid) error
	NextSequence(ctx ctx.Ctx, auctionId domain.AuctionId) (int64, error)
	FindAll(ctx ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Bid, error)
	FindHighest(ctx ctx.Ctx, auctionId domain.AuctionId) (*Bid, error)
	Count(ctx ctx.Ctx, auctionId domain.AuctionId) (int, error)
}
