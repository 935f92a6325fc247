package goroutine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecoverableGo(t *testing.T) {
	req := require.New(t)

	done := make(chan struct{})
	panicChan := RecoverableGo(func() {
		close(done)
	})
	<-done
	ev, ok := <-panicChan
	req.Nil(ev)
	req.False(ok)
}

func TestRecoverableGoPanic(t *testing.T) {
	req := require.New(t)

	recovered := false
	panicChan := RecoverableGo(func() {
		panic("boom")
	}, WithAfterRecovered(func(p interface{}, stack []byte) {
		recovered = true
	}))

	ev := <-panicChan
	req.NotNil(ev)
	req.Equal("boom", ev.Panic)
	req.True(recovered)
}
