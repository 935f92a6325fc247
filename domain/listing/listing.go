package listing

import (
	"time"

	"github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/domain"
)

// Listing is the item collaborator's entity. Auctions only hold its id.
type Listing struct {
	Id          domain.ListingId `json:"id" bson:"id"`
	OwnerId     domain.UserId    `json:"ownerId" bson:"ownerId"`
	Title       string           `json:"title" bson:"title"`
	Description string           `json:"description" bson:"description"`
	Images      []string         `json:"images" bson:"images"`
	Quantity    int              `json:"quantity" bson:"quantity"`
	CreatedAt   time.Time        `json:"createdAt" bson:"createdAt"`
}

type Repo interface {
	Create(ctx ctx.Ctx, listing *Listing) error
	FindOne(ctx ctx.Ctx, id domain.ListingId) (*Listing, error)
}

type CreatePayload struct {
	OwnerId     domain.UserId `json:"-"`
	Title       string        `json:"title" validate:"required"`
	Description string        `json:"description"`
	Images      []string      `json:"images"`
	Quantity    int           `json:"quantity" validate:"gte=1"`
}

type Usecase interface {
	Create(ctx ctx.Ctx, payload *CreatePayload) (*Listing, error)
	Get(ctx ctx.Ctx, id domain.ListingId) (*Listing, error)
}
