package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	bCtx "github.com/bidmarkt/goapi/base/ctx"
)

func Test_SendOutbid(t *testing.T) {
	req := require.New(t)

	var received OutbidEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/events/outbid", r.URL.Path)
		req.NoError(json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(&ClientCfg{
		HttpClient: http.Client{},
		Timeout:    10 * time.Second,
		Endpoint:   srv.URL,
		Apikey:     "api_key",
	})

	ctx := bCtx.Background()
	err := c.SendOutbid(ctx, &OutbidEvent{
		BidderId:  "bidder",
		AuctionId: "auction",
		NewAmount: 10500,
		Timestamp: time.Now(),
	})
	req.NoError(err)
	req.Equal(int64(10500), received.NewAmount)
}

func Test_SendOutbid_non200(t *testing.T) {
	req := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(&ClientCfg{
		HttpClient: http.Client{},
		Timeout:    10 * time.Second,
		Endpoint:   srv.URL,
	})

	err := c.SendOutbid(bCtx.Background(), &OutbidEvent{})
	req.ErrorIs(err, ErrStatusCodeNotOk)
}
