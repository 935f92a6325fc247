package usecase

import (
	"time"

	"github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/domain"
	"github.com/bidmarkt/goapi/domain/account"
)

type impl struct {
	repo account.Repo
}

// New creates new account usecase
func New(repo account.Repo) account.Usecase {
	return &impl{
		repo: repo,
	}
}

func (im *impl) Get(c ctx.Ctx, id domain.UserId) (*account.Account, error) {
	return im.repo.FindOne(c, id)
}

func (im *impl) Create(c ctx.Ctx, a *account.Account) (*account.Account, error) {
	if a.Role == "" {
		a.Role = domain.RoleUser
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if err := im.repo.Create(c, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (im *impl) IsAdmin(c ctx.Ctx, id domain.UserId) (bool, error) {
	a, err := im.repo.FindOne(c, id)
	if err != nil {
		return false, err
	}
	return a.Role == domain.RoleAdmin, nil
}
