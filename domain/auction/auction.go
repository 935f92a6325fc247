package auction

import (
	"time"

	"github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/domain"
	"github.com/bidmarkt/goapi/domain/bid"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusOpen      Status = "open"
	StatusClosed    Status = "closed"
	StatusSettled   Status = "settled"
	StatusCancelled Status = "cancelled"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusClosed, StatusSettled, StatusCancelled:
		return true
	}
	return false
}

// Auction is a time-boxed sale of one listed item.
//
// CurrentHighBid and CurrentHighBidderId are a cache over the bid
// ledger: fast to read, always recomputable by replaying the ledger in
// sequence order. Version is bumped on every mutation and every update
// is conditioned on it, so concurrent writers cannot clobber each
// other.
type Auction struct {
	Id                  domain.AuctionId `json:"id" bson:"id"`
	OwnerId             domain.UserId    `json:"ownerId" bson:"ownerId"`
	ItemRef             domain.ListingId `json:"itemRef" bson:"itemRef"`
	StartingPrice       int64            `json:"startingPrice" bson:"startingPrice"`
	MinimumIncrement    int64            `json:"minimumIncrement" bson:"minimumIncrement"`
	CurrentHighBid      int64            `json:"currentHighBid" bson:"currentHighBid"`
	CurrentHighBidderId domain.UserId    `json:"currentHighBidderId" bson:"currentHighBidderId"`
	StartTime           time.Time        `json:"startTime" bson:"startTime"`
	EndTime             time.Time        `json:"endTime" bson:"endTime"`
	Status              Status           `json:"status" bson:"status"`
	Version             int64            `json:"version" bson:"version"`
	SettledAt           *time.Time       `json:"settledAt,omitempty" bson:"settledAt,omitempty"`
	WinnerId            domain.UserId    `json:"winnerId,omitempty" bson:"winnerId,omitempty"`
	HammerPrice         int64            `json:"hammerPrice,omitempty" bson:"hammerPrice,omitempty"`
	CreatedAt           time.Time        `json:"createdAt" bson:"createdAt"`
}

// Patchable carries the mutable subset of Auction. The repository
// always bumps Version alongside applying a patch.
type Patchable struct {
	CurrentHighBid      *int64         `bson:"currentHighBid,omitempty"`
	CurrentHighBidderId *domain.UserId `bson:"currentHighBidderId,omitempty"`
	Status              *Status        `bson:"status,omitempty"`
	SettledAt           *time.Time     `bson:"settledAt,omitempty"`
	WinnerId            *domain.UserId `bson:"winnerId,omitempty"`
	HammerPrice         *int64         `bson:"hammerPrice,omitempty"`
}

type FindAllOptions struct {
	OwnerId     *domain.UserId
	Status      *Status
	StartTimeLT *time.Time
	EndTimeLT   *time.Time
	Offset      *int32
	Limit       *int32
	Sort        *string
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

func WithOwnerId(ownerId domain.UserId) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.OwnerId = &ownerId
		return nil
	}
}

func WithStatus(status Status) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Status = &status
		return nil
	}
}

func WithStartTimeLT(t time.Time) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.StartTimeLT = &t
		return nil
	}
}

func WithEndTimeLT(t time.Time) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.EndTimeLT = &t
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

// Repo is the auction store. UpdateWithVersion is the single mutation
// primitive: it applies the patch and bumps Version only when the
// stored version still equals the given one, returning
// domain.ErrConcurrentModification otherwise.
type Repo interface {
	Create(ctx ctx.Ctx, auction *Auction) error
	FindOne(ctx ctx.Ctx, id domain.AuctionId) (*Auction, error)
	FindAll(ctx ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Auction, error)
	Count(ctx ctx.Ctx, opts ...FindAllOptionsFunc) (int, error)
	UpdateWithVersion(ctx ctx.Ctx, id domain.AuctionId, version int64, patch Patchable) error
}

// State is the read model returned by GetAuctionState
type State struct {
	Auction      *Auction `json:"auction"`
	HighBid      *bid.Bid `json:"highBid,omitempty"`
	BidCount     int      `json:"bidCount"`
	DisplayPrice string   `json:"displayPrice"`
}

type CreateAuctionPayload struct {
	OwnerId          domain.UserId    `json:"-"`
	ItemRef          domain.ListingId `json:"itemRef" validate:"required"`
	StartingPrice    int64            `json:"startingPrice" validate:"gt=0"`
	MinimumIncrement int64            `json:"minimumIncrement"`
	StartTime        int64            `json:"startTime" validate:"required"`
	EndTime          int64            `json:"endTime" validate:"required"`
}

type SubmitBidPayload struct {
	AuctionId      domain.AuctionId
	BidderId       domain.UserId
	Amount         int64
	IdempotencyKey string
}

type UseCase interface {
	CreateAuction(ctx ctx.Ctx, payload *CreateAuctionPayload) (*Auction, error)
	ListAuctions(ctx ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Auction, error)
	GetAuctionState(ctx ctx.Ctx, id domain.AuctionId) (*State, error)
	SubmitBid(ctx ctx.Ctx, payload *SubmitBidPayload) (*bid.Bid, error)
	ListBids(ctx ctx.Ctx, id domain.AuctionId) ([]*bid.Bid, error)
	CancelAuction(ctx ctx.Ctx, id domain.AuctionId) (*Auction, error)
	SettleAuction(ctx ctx.Ctx, id domain.AuctionId) (*Auction, error)
	OpenDueAuctions(ctx ctx.Ctx, now time.Time) (int, error)
	CloseDueAuctions(ctx ctx.Ctx, now time.Time) (int, error)
	RebuildHighBid(ctx ctx.Ctx, id domain.AuctionId) (*Auction, error)
}
