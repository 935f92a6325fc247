package money

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/bidmarkt/goapi/domain"
)

type MoneyTestSuite struct {
	suite.Suite
}

func TestMoneyTestSuite(t *testing.T) {
	suite.Run(t, new(MoneyTestSuite))
}

func (s *MoneyTestSuite) TestToDisplay() {
	tests := []struct {
		desc   string
		amount int64
		exp    string
	}{
		{
			desc:   "whole amount",
			amount: 10000,
			exp:    "100.00",
		},
		{
			desc:   "with cents",
			amount: 10050,
			exp:    "100.50",
		},
		{
			desc:   "zero",
			amount: 0,
			exp:    "0.00",
		},
		{
			desc:   "single cent",
			amount: 1,
			exp:    "0.01",
		},
	}
	for _, t := range tests {
		s.Equal(t.exp, ToDisplay(t.amount), t.desc)
	}
}

func (s *MoneyTestSuite) TestFromDisplay() {
	tests := []struct {
		desc    string
		display string
		exp     int64
		expErr  error
	}{
		{
			desc:    "whole amount",
			display: "100",
			exp:     10000,
		},
		{
			desc:    "with cents",
			display: "100.50",
			exp:     10050,
		},
		{
			desc:    "sub cent precision",
			display: "100.505",
			expErr:  domain.ErrInvalidAmount,
		},
		{
			desc:    "not a number",
			display: "abc",
			expErr:  domain.ErrInvalidAmount,
		},
	}
	for _, t := range tests {
		amount, err := FromDisplay(t.display)
		if t.expErr != nil {
			s.ErrorIs(err, t.expErr, t.desc)
		} else {
			s.NoError(err, t.desc)
			s.Equal(t.exp, amount, t.desc)
		}
	}
}

func (s *MoneyTestSuite) TestRoundTrip() {
	amount, err := FromDisplay(ToDisplay(1234567))
	s.NoError(err)
	s.Equal(int64(1234567), amount)
}
