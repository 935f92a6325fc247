package repository

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/base/log"
	"github.com/bidmarkt/goapi/domain"
	"github.com/bidmarkt/goapi/domain/listing"
	"github.com/bidmarkt/goapi/service/query"
)

type impl struct {
	q query.Mongo
}

// New creates new listing repo
func New(q query.Mongo) listing.Repo {
	return &impl{q}
}

func (im *impl) Create(c ctx.Ctx, l *listing.Listing) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if err := im.q.Insert(c, domain.TableListings, l); err != nil {
		if err == query.ErrDuplicateKey {
			return domain.ErrConflict
		}
		c.WithFields(log.Fields{
			"id":  l.Id,
			"err": err,
		}).Error("insert listing failed")
		return err
	}
	return nil
}

func (im *impl) FindOne(c ctx.Ctx, id domain.ListingId) (*listing.Listing, error) {
	res := &listing.Listing{}
	err := im.q.FindOne(c, domain.TableListings, bson.M{"id": id}, res)
	if err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		c.WithFields(log.Fields{
			"id":  id,
			"err": err,
		}).Error("find listing failed")
		return nil, err
	}
	return res, nil
}
