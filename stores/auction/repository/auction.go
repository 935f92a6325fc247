package repository

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/base/database/mongoclient"
	"github.com/bidmarkt/goapi/base/log"
	"github.com/bidmarkt/goapi/domain"
	"github.com/bidmarkt/goapi/domain/auction"
	"github.com/bidmarkt/goapi/service/query"
)

type impl struct {
	q query.Mongo
}

// New creates new auction repo
func New(q query.Mongo) auction.Repo {
	return &impl{q}
}

func (im *impl) Create(c ctx.Ctx, a *auction.Auction) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	// the high-bid cache starts at the starting price, so the first
	// real bid is validated against the same rules as every later one
	if a.CurrentHighBid == 0 {
		a.CurrentHighBid = a.StartingPrice
	}
	if err := im.q.Insert(c, domain.TableAuctions, a); err != nil {
		if err == query.ErrDuplicateKey {
			return domain.ErrConflict
		}
		c.WithFields(log.Fields{
			"id":  a.Id,
			"err": err,
		}).Error("insert auction failed")
		return err
	}
	return nil
}

func (im *impl) FindOne(c ctx.Ctx, id domain.AuctionId) (*auction.Auction, error) {
	res := &auction.Auction{}
	if err := im.q.FindOne(c, domain.TableAuctions, bson.M{"id": id}, res); err != nil {
		if err == query.ErrNotFound {
			return nil, domain.ErrAuctionNotFound
		}
		c.WithFields(log.Fields{
			"id":  id,
			"err": err,
		}).Error("q.FindOne failed")
		if err == query.ErrUnavailable {
			return nil, domain.ErrStoreUnavailable
		}
		return nil, err
	}
	return res, nil
}

func (im *impl) FindAll(c ctx.Ctx, optFns ...auction.FindAllOptionsFunc) ([]*auction.Auction, error) {
	opts, err := auction.GetFindAllOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("auction.GetFindAllOptions failed")
		return nil, err
	}

	offset := int(0)
	limit := int(0)
	sort := "-createdAt"

	if opts.Offset != nil {
		offset = int(*opts.Offset)
	}
	if opts.Limit != nil {
		limit = int(*opts.Limit)
	}
	if opts.Sort != nil {
		sort = *opts.Sort
	}

	res := []*auction.Auction{}
	if err := im.q.Search(c, domain.TableAuctions, offset, limit, sort, makeQuery(opts), &res); err != nil {
		c.WithField("err", err).Error("q.Search failed")
		if err == query.ErrUnavailable {
			return nil, domain.ErrStoreUnavailable
		}
		return nil, err
	}
	return res, nil
}

func (im *impl) Count(c ctx.Ctx, optFns ...auction.FindAllOptionsFunc) (int, error) {
	opts, err := auction.GetFindAllOptions(optFns...)
	if err != nil {
		c.WithField("err", err).Error("auction.GetFindAllOptions failed")
		return 0, err
	}

	count, err := im.q.Count(c, domain.TableAuctions, makeQuery(opts))
	if err != nil {
		c.WithField("err", err).Error("q.Count failed")
		return 0, err
	}
	return count, nil
}

// UpdateWithVersion applies the patch only when the stored document
// still carries the given version, bumping the version in the same
// write. A lost race surfaces as domain.ErrConcurrentModification and
// the caller is expected to re-read and retry.
func (im *impl) UpdateWithVersion(c ctx.Ctx, id domain.AuctionId, version int64, patch auction.Patchable) error {
	patchBson, err := mongoclient.MakeBsonM(patch)
	if err != nil {
		c.WithFields(log.Fields{
			"id":  id,
			"err": err,
		}).Error("make bsonM failed")
		return err
	}

	selector := bson.M{"id": id, "version": version}
	update := bson.M{
		"$set": patchBson,
		"$inc": bson.M{"version": int64(1)},
	}

	if err := im.q.CustomPatch(c, domain.TableAuctions, selector, update, false); err != nil {
		if err == query.ErrNotFound {
			return domain.ErrConcurrentModification
		}
		c.WithFields(log.Fields{
			"id":      id,
			"version": version,
			"err":     err,
		}).Error("q.CustomPatch failed")
		if err == query.ErrUnavailable {
			return domain.ErrStoreUnavailable
		}
		return err
	}
	return nil
}

func makeQuery(opts auction.FindAllOptions) bson.M {
	qry := bson.M{}
	if opts.OwnerId != nil {
		qry["ownerId"] = *opts.OwnerId
	}
	if opts.Status != nil {
		qry["status"] = *opts.Status
	}
	if opts.StartTimeLT != nil {
		qry["startTime"] = bson.M{"$lt": *opts.StartTimeLT}
	}
	if opts.EndTimeLT != nil {
		qry["endTime"] = bson.M{"$lt": *opts.EndTimeLT}
	}
	return qry
}
