package domain

import (
	"github.com/golang-jwt/jwt"

	"github.com/bidmarkt/goapi/base/ctx"
)

type JwtCustomClaims struct {
	UserId string `json:"userId"`
	Role   string `json:"role"`
	jwt.StandardClaims
}

type AuthUsecase interface {
	SignToken(ctx ctx.Ctx, userId UserId) (string, error)
	ParseToken(ctx ctx.Ctx, token string) (UserId, Role, error)
}
