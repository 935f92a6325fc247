package repository

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/base/database/mongoclient"
	"github.com/bidmarkt/goapi/base/log"
	"github.com/bidmarkt/goapi/domain"
	"github.com/bidmarkt/goapi/domain/account"
	"github.com/bidmarkt/goapi/service/cache"
	"github.com/bidmarkt/goapi/service/cache/provider"
	"github.com/bidmarkt/goapi/service/cache/provider/compound"
	"github.com/bidmarkt/goapi/service/cache/provider/primitive"
	redisCache "github.com/bidmarkt/goapi/service/cache/provider/redis"
	"github.com/bidmarkt/goapi/service/query"
	"github.com/bidmarkt/goapi/service/redis"
)

type impl struct {
	query        query.Mongo
	accountCache cache.Service
}

// New creates new account repo
func New(query query.Mongo, redis redis.Service) account.Repo {
	cacheProviders := []provider.Provider{
		primitive.NewPrimitive("account", 128),
	}

	if redis != nil {
		cacheProviders = append(cacheProviders, redisCache.NewRedis(redis))
	}

	return &impl{
		query: query,
		accountCache: cache.New(cache.ServiceConfig{
			Ttl:   time.Hour,
			Pfx:   "account",
			Cache: compound.NewCompound(cacheProviders),
		}),
	}
}

func (im *impl) Create(c ctx.Ctx, a *account.Account) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if err := im.query.Insert(c, domain.TableAccounts, a); err != nil {
		if err == query.ErrDuplicateKey {
			return domain.ErrConflict
		}
		c.WithFields(log.Fields{
			"id":  a.Id,
			"err": err,
		}).Error("insert account failed")
		return err
	}
	return nil
}

func (im *impl) FindOne(c ctx.Ctx, id domain.UserId) (*account.Account, error) {
	res := &account.Account{}

	if err := im.accountCache.GetByFunc(c, string(id), res, func() (interface{}, error) {
		return im.findOne(c, id)
	}); err != nil {
		if err == domain.ErrNotFound {
			return nil, err
		}
		c.WithFields(log.Fields{
			"id":  id,
			"err": err,
		}).Error("accountCache.GetByFunc failed")
		return nil, err
	}

	return res, nil
}

func (im *impl) findOne(c ctx.Ctx, id domain.UserId) (*account.Account, error) {
	a := &account.Account{}
	err := im.query.FindOne(c, domain.TableAccounts, bson.M{"id": id}, a)
	if err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		c.WithFields(log.Fields{
			"id":  id,
			"err": err,
		}).Error("find account failed")
		return nil, err
	}
	return a, nil
}

func (im *impl) Update(c ctx.Ctx, id domain.UserId, patch account.Patchable) error {
	patchBson, err := mongoclient.MakeBsonM(patch)
	if err != nil {
		c.WithFields(log.Fields{
			"id":  id,
			"err": err,
		}).Error("make bsonM failed")
		return err
	}
	if err := im.query.Patch(c, domain.TableAccounts, bson.M{"id": id}, patchBson); err != nil {
		if err == query.ErrNotFound {
			return domain.ErrNotFound
		}
		c.WithFields(log.Fields{
			"id":  id,
			"err": err,
		}).Error("patch account failed")
		return err
	}
	if err := im.accountCache.Del(c, string(id)); err != nil {
		c.WithFields(log.Fields{
			"id":  id,
			"err": err,
		}).Error("accountCache.Del failed")
	}
	return nil
}
