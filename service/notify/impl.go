package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	bCtx "github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/base/log"
)

const (
	bearerKey = "client-id"
)

type client struct {
	client   http.Client
	timeout  time.Duration
	endpoint string
	apikey   string
}

func NewClient(cfg *ClientCfg) Client {
	return &client{
		client:   cfg.HttpClient,
		timeout:  cfg.Timeout,
		endpoint: cfg.Endpoint,
		apikey:   cfg.Apikey,
	}
}

func (c *client) SendOutbid(ctx bCtx.Ctx, event *OutbidEvent) error {
	url := c.endpoint + "/events/outbid"

	body, err := json.Marshal(event)
	if err != nil {
		ctx.WithField("err", err).Error("marshal event failed")
		return err
	}

	return c.post(ctx, url, body)
}

func (c *client) post(ctx bCtx.Ctx, url string, body []byte) error {
	ctx, cancel := bCtx.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		ctx.WithFields(log.Fields{
			"url": url,
			"err": err,
		}).Error("NewRequestWithContext failed")
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(bearerKey, c.apikey)
	resp, err := c.client.Do(req)
	if err != nil {
		ctx.WithFields(log.Fields{
			"url": url,
			"err": err,
		}).Error("client.Do failed")
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		ctx.WithFields(log.Fields{
			"url":        url,
			"statusCode": resp.StatusCode,
		}).Error("resp.StatusCode != 200")
		return ErrStatusCodeNotOk
	}
	return nil
}
