package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/base/delivery"
	"github.com/bidmarkt/goapi/domain"
	"github.com/bidmarkt/goapi/domain/auction"
	authMiddleware "github.com/bidmarkt/goapi/stores/auth/delivery/http/middleware"
)

type handler struct {
	auction auction.UseCase
}

// New will initialize the auctions/ resources endpoint
func New(e *echo.Echo, au auction.UseCase, authMiddleware *authMiddleware.AuthMiddleware) {
	h := &handler{
		auction: au,
	}
	g := e.Group("/auctions")
	g.POST("", h.create, authMiddleware.Auth())
	g.GET("", h.list)
	g.GET("/:auctionId", h.get)
	g.GET("/:auctionId/bids", h.listBids)
	g.POST("/:auctionId/bids", h.submitBid, authMiddleware.Auth())
	g.POST("/:auctionId/cancel", h.cancel, authMiddleware.Auth())
	g.POST("/:auctionId/settle", h.settle, authMiddleware.Auth(), authMiddleware.IsAdmin())
	g.POST("/:auctionId/rebuild", h.rebuild, authMiddleware.Auth(), authMiddleware.IsAdmin())
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	userId := c.Get("userId").(domain.UserId)

	p := &auction.CreateAuctionPayload{}

	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid body")
	}

	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	p.OwnerId = userId

	if res, err := h.auction.CreateAuction(ctx, p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusCreated, res)
	}
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		OwnerId domain.UserId  `query:"ownerId"`
		Status  auction.Status `query:"status"`
		Offset  int32          `query:"offset"`
		Limit   int32          `query:"limit" validate:"lte=100"`
	}

	p := &params{Limit: 20}

	if err := c.Bind(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid params")
	}

	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	opts := []auction.FindAllOptionsFunc{
		auction.WithPagination(p.Offset, p.Limit),
	}
	if p.OwnerId != "" {
		opts = append(opts, auction.WithOwnerId(p.OwnerId))
	}
	if p.Status != "" {
		opts = append(opts, auction.WithStatus(p.Status))
	}

	if res, err := h.auction.ListAuctions(ctx, opts...); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) get(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	auctionId := domain.AuctionId(c.Param("auctionId"))

	if res, err := h.auction.GetAuctionState(ctx, auctionId); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) listBids(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	auctionId := domain.AuctionId(c.Param("auctionId"))

	if res, err := h.auction.ListBids(ctx, auctionId); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) submitBid(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	userId := c.Get("userId").(domain.UserId)
	auctionId := domain.AuctionId(c.Param("auctionId"))

	type params struct {
		Amount         int64  `json:"amount" validate:"gt=0"`
		IdempotencyKey string `json:"idempotencyKey"`
	}

	p := &params{}

	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid body")
	}

	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	// header takes precedence over the body field
	if key := c.Request().Header.Get("Idempotency-Key"); key != "" {
		p.IdempotencyKey = key
	}

	payload := &auction.SubmitBidPayload{
		AuctionId:      auctionId,
		BidderId:       userId,
		Amount:         p.Amount,
		IdempotencyKey: p.IdempotencyKey,
	}

	if res, err := h.auction.SubmitBid(ctx, payload); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusCreated, res)
	}
}

func (h *handler) cancel(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	userId := c.Get("userId").(domain.UserId)
	role := c.Get("role").(domain.Role)
	auctionId := domain.AuctionId(c.Param("auctionId"))

	state, err := h.auction.GetAuctionState(ctx, auctionId)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}

	// only the owner or an admin may cancel
	if state.Auction.OwnerId != userId && role != domain.RoleAdmin {
		return delivery.MakeJsonResp(c, http.StatusMethodNotAllowed, "not the auction owner")
	}

	if res, err := h.auction.CancelAuction(ctx, auctionId); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) settle(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	auctionId := domain.AuctionId(c.Param("auctionId"))

	if res, err := h.auction.SettleAuction(ctx, auctionId); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

func (h *handler) rebuild(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	auctionId := domain.AuctionId(c.Param("auctionId"))

	if res, err := h.auction.RebuildHighBid(ctx, auctionId); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}
