package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/base/delivery"
	"github.com/bidmarkt/goapi/domain"
	"github.com/bidmarkt/goapi/domain/listing"
	authMiddleware "github.com/bidmarkt/goapi/stores/auth/delivery/http/middleware"
)

type handler struct {
	listing listing.Usecase
}

// New will initialize the listings/ resources endpoint
func New(e *echo.Echo, us listing.Usecase, authMiddleware *authMiddleware.AuthMiddleware) {
	h := &handler{
		listing: us,
	}
	g := e.Group("/listings")
	g.POST("", h.create, authMiddleware.Auth())
	g.GET("/:listingId", h.get)
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	userId := c.Get("userId").(domain.UserId)

	p := &listing.CreatePayload{}

	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid body")
	}

	if err := c.Validate(p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	p.OwnerId = userId

	if res, err := h.listing.Create(ctx, p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusCreated, res)
	}
}

func (h *handler) get(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	listingId := domain.ListingId(c.Param("listingId"))

	if res, err := h.listing.Get(ctx, listingId); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}
