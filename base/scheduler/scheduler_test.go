package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	bCtx "github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/domain/auction/mocks"
)

func TestSchedulerSweeps(t *testing.T) {
	req := require.New(t)

	uc := &mocks.UseCase{}
	uc.On("OpenDueAuctions", mock.Anything, mock.Anything).Return(1, nil)
	uc.On("CloseDueAuctions", mock.Anything, mock.Anything).Return(2, nil)

	errorCh := make(chan error, 1)
	s := NewAuctionScheduler(&AuctionSchedulerCfg{
		Auction:  uc,
		Interval: 10 * time.Millisecond,
		ErrorCh:  errorCh,
	})

	ctx, cancel := bCtx.WithCancel(bCtx.Background())
	s.Start(ctx)

	time.Sleep(50 * time.Millisecond)
	cancel()
	s.Wait()

	req.Empty(errorCh)
	uc.AssertCalled(t, "OpenDueAuctions", mock.Anything, mock.Anything)
	uc.AssertCalled(t, "CloseDueAuctions", mock.Anything, mock.Anything)
}

func TestSchedulerStopsOnError(t *testing.T) {
	req := require.New(t)

	boom := errors.New("boom")
	uc := &mocks.UseCase{}
	uc.On("OpenDueAuctions", mock.Anything, mock.Anything).Return(0, boom)

	errorCh := make(chan error, 1)
	s := NewAuctionScheduler(&AuctionSchedulerCfg{
		Auction:  uc,
		Interval: 10 * time.Millisecond,
		ErrorCh:  errorCh,
	})

	s.Start(bCtx.Background())
	s.Wait()

	req.Equal(boom, <-errorCh)
	uc.AssertNotCalled(t, "CloseDueAuctions", mock.Anything, mock.Anything)
}
