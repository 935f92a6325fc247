package repository

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/base/log"
	"github.com/bidmarkt/goapi/domain"
	"github.com/bidmarkt/goapi/domain/bid"
	"github.com/bidmarkt/goapi/service/query"
)

type counter struct {
	AuctionId domain.AuctionId `bson:"auctionId"`
	Seq       int64            `bson:"seq"`
}

type impl struct {
	q query.Mongo
}

// New creates new bid ledger repo
func New(q query.Mongo) bid.LedgerRepo {
	return &impl{q}
}

func (im *impl) Append(c ctx.Ctx, b *bid.Bid) error {
	if err := im.q.Insert(c, domain.TableBids, b); err != nil {
		if err == query.ErrDuplicateKey {
			return domain.ErrConflict
		}
		c.WithFields(log.Fields{
			"auctionId": b.AuctionId,
			"seq":       b.SequenceNumber,
			"err":       err,
		}).Error("insert bid failed")
		if err == query.ErrUnavailable {
			return domain.ErrStoreUnavailable
		}
		return err
	}
	return nil
}

// NextSequence hands out a strictly increasing sequence number per
// auction, backed by an atomic upserted counter document.
func (im *impl) NextSequence(c ctx.Ctx, auctionId domain.AuctionId) (int64, error) {
	res := &counter{}
	if err := im.q.Increment(c, domain.TableBidCounters, bson.M{"auctionId": auctionId}, res, "seq", int64(1)); err != nil {
		c.WithFields(log.Fields{
			"auctionId": auctionId,
			"err":       err,
		}).Error("q.Increment failed")
		if err == query.ErrUnavailable {
			return 0, domain.ErrStoreUnavailable
		}
		return 0, err
	}
	return res.Seq, nil
}

func (im *impl) FindAll(c ctx.Ctx, optFns ...bid.FindAllOptionsFunc) ([]*bid.Bid, error) {
	opts, err := bid.GetFindAllOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("bid.GetFindAllOptions failed")
		return nil, err
	}

	offset := int(0)
	limit := int(0)
	sort := "sequenceNumber"

	if opts.Offset != nil {
		offset = int(*opts.Offset)
	}
	if opts.Limit != nil {
		limit = int(*opts.Limit)
	}
	if opts.Sort != nil {
		sort = *opts.Sort
	}

	qry := bson.M{}
	if opts.AuctionId != nil {
		qry["auctionId"] = *opts.AuctionId
	}
	if opts.BidderId != nil {
		qry["bidderId"] = *opts.BidderId
	}

	res := []*bid.Bid{}
	if err := im.q.Search(c, domain.TableBids, offset, limit, sort, qry, &res); err != nil {
		c.WithField("err", err).Error("q.Search failed")
		return nil, err
	}
	return res, nil
}

// FindHighest returns the most recently accepted bid. Amounts are
// strictly increasing so the latest sequence number is also the top
// amount. Returns nil without error when the ledger is empty.
func (im *impl) FindHighest(c ctx.Ctx, auctionId domain.AuctionId) (*bid.Bid, error) {
	res := []*bid.Bid{}
	if err := im.q.Search(c, domain.TableBids, 0, 1, "-sequenceNumber", bson.M{"auctionId": auctionId}, &res); err != nil {
		c.WithFields(log.Fields{
			"auctionId": auctionId,
			"err":       err,
		}).Error("q.Search failed")
		return nil, err
	}
	if len(res) == 0 {
		return nil, nil
	}
	return res[0], nil
}

func (im *impl) Count(c ctx.Ctx, auctionId domain.AuctionId) (int, error) {
	count, err := im.q.Count(c, domain.TableBids, bson.M{"auctionId": auctionId})
	if err != nil {
		c.WithFields(log.Fields{
			"auctionId": auctionId,
			"err":       err,
		}).Error("q.Count failed")
		return 0, err
	}
	return count, nil
}
