package account

import (
	"time"

	"github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/domain"
)

// Account is the identity collaborator's view of a user. The core
// trusts PhoneVerified and Role as given; verification itself happens
// elsewhere.
type Account struct {
	Id            domain.UserId `json:"id" bson:"id"`
	Phone         string        `json:"phone" bson:"phone"`
	PhoneVerified bool          `json:"phoneVerified" bson:"phoneVerified"`
	DisplayName   string        `json:"displayName" bson:"displayName"`
	Role          domain.Role   `json:"role" bson:"role"`
	CreatedAt     time.Time     `json:"createdAt" bson:"createdAt"`
}

type Patchable struct {
	PhoneVerified *bool        `bson:"phoneVerified,omitempty"`
	DisplayName   *string      `bson:"displayName,omitempty"`
	Role          *domain.Role `bson:"role,omitempty"`
}

type Repo interface {
	Create(ctx ctx.Ctx, account *Account) error
	FindOne(ctx ctx.Ctx, id domain.UserId) (*Account, error)
	Update(ctx ctx.Ctx, id domain.UserId, patch Patchable) error
}

type Usecase interface {
	Get(ctx ctx.Ctx, id domain.UserId) (*Account, error)
	Create(ctx ctx.Ctx, account *Account) (*Account, error)
	IsAdmin(ctx ctx.Ctx, id domain.UserId) (bool, error)
}
