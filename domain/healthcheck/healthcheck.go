package healthcheck

import (
	"github.com/bidmarkt/goapi/base/ctx"
)

type Repo interface {
	CheckMongo(ctx ctx.Ctx) error
	CheckRedis(ctx ctx.Ctx) error
}

type Usecase interface {
	Check(ctx ctx.Ctx) error
}
