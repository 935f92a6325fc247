package usecase

import (
	"time"

	"github.com/google/uuid"

	"github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/domain"
	"github.com/bidmarkt/goapi/domain/listing"
)

type impl struct {
	repo listing.Repo
}

// New creates new listing usecase
func New(repo listing.Repo) listing.Usecase {
	return &impl{
		repo: repo,
	}
}

func (im *impl) Create(c ctx.Ctx, payload *listing.CreatePayload) (*listing.Listing, error) {
	l := &listing.Listing{
		Id:          domain.ListingId(uuid.NewString()),
		OwnerId:     payload.OwnerId,
		Title:       payload.Title,
		Description: payload.Description,
		Images:      payload.Images,
		Quantity:    payload.Quantity,
		CreatedAt:   time.Now().UTC(),
	}

	if err := im.repo.Create(c, l); err != nil {
		c.WithField("err", err).Error("listingRepo.Create failed")
		return nil, err
	}

	return l, nil
}

func (im *impl) Get(c ctx.Ctx, id domain.ListingId) (*listing.Listing, error) {
	return im.repo.FindOne(c, id)
}
