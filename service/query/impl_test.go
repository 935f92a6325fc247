package query

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/bidmarkt/goapi/base/ctx"
)

type RetryTestSuite struct {
	suite.Suite
}

func TestRetryTestSuite(t *testing.T) {
	suite.Run(t, new(RetryTestSuite))
}

func networkErr() error {
	return mongo.CommandError{Message: "connection reset", Labels: []string{"NetworkError"}}
}

func (s *RetryTestSuite) TestIsTransient() {
	s.False(isTransient(nil))
	s.False(isTransient(ErrNotFound))
	s.False(isTransient(mongo.ErrNoDocuments))
	s.True(isTransient(networkErr()))
}

func (s *RetryTestSuite) TestReadWithRetryRecovers() {
	im := &impl{}

	attempts := 0
	err := im.readWithRetry(ctx.Background(), func() error {
		attempts++
		if attempts < 2 {
			return networkErr()
		}
		return nil
	})
	s.Require().NoError(err)
	s.Equal(2, attempts)
}

func (s *RetryTestSuite) TestReadWithRetryExhausted() {
	im := &impl{}

	attempts := 0
	err := im.readWithRetry(ctx.Background(), func() error {
		attempts++
		return networkErr()
	})
	s.Require().ErrorIs(err, ErrUnavailable)
	s.Equal(maxReadAttempts, attempts)
}

func (s *RetryTestSuite) TestReadWithRetryPassesQueryOutcomeThrough() {
	im := &impl{}

	attempts := 0
	err := im.readWithRetry(ctx.Background(), func() error {
		attempts++
		return mongo.ErrNoDocuments
	})
	s.Require().ErrorIs(err, mongo.ErrNoDocuments)
	s.Equal(1, attempts)
}
