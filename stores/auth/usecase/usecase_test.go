package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/domain"
	"github.com/bidmarkt/goapi/domain/account"
	mAccount "github.com/bidmarkt/goapi/domain/account/mocks"
	"github.com/bidmarkt/goapi/stores/auth/usecase"
)

func TestSignAndParseToken(t *testing.T) {
	mockAccountUC := &mAccount.Usecase{}

	mockAccountUC.On("Get", mock.Anything, domain.UserId("user-1")).Return(&account.Account{
		Id:   "user-1",
		Role: domain.RoleUser,
	}, nil)

	ctx := ctx.Background()
	u := usecase.New("jwt-secret", mockAccountUC)
	tkn, err := u.SignToken(ctx, "user-1")
	assert.NoError(t, err)
	assert.NotEmpty(t, tkn)
	userId, role, err := u.ParseToken(ctx, tkn)
	assert.NoError(t, err)
	assert.Equal(t, domain.UserId("user-1"), userId)
	assert.Equal(t, domain.RoleUser, role)
}

func TestSignTokenCreatesMissingAccount(t *testing.T) {
	mockAccountUC := &mAccount.Usecase{}

	mockAccountUC.On("Get", mock.Anything, domain.UserId("new-user")).Return(nil, domain.ErrNotFound)
	mockAccountUC.On("Create", mock.Anything, mock.Anything).Return(&account.Account{
		Id:   "new-user",
		Role: domain.RoleUser,
	}, nil)

	ctx := ctx.Background()
	u := usecase.New("jwt-secret", mockAccountUC)
	tkn, err := u.SignToken(ctx, "new-user")
	assert.NoError(t, err)
	assert.NotEmpty(t, tkn)

	mockAccountUC.AssertCalled(t, "Create", mock.Anything, mock.Anything)
}
