package usecase

import (
	"github.com/bidmarkt/goapi/base/ctx"
	hcdomain "github.com/bidmarkt/goapi/domain/healthcheck"
)

type impl struct {
	repo hcdomain.Repo
}

// New creates new healthcheck usecase
func New(repo hcdomain.Repo) hcdomain.Usecase {
	return &impl{
		repo: repo,
	}
}

func (im *impl) Check(context ctx.Ctx) error {
	if err := im.repo.CheckMongo(context); err != nil {
		return err
	}
	return im.repo.CheckRedis(context)
}
