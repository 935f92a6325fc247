package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/viper"

	"github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/base/database/mongoclient"
	"github.com/bidmarkt/goapi/base/database/redisclient"
	"github.com/bidmarkt/goapi/base/log"
	"github.com/bidmarkt/goapi/base/metrics"
	bValidator "github.com/bidmarkt/goapi/base/validator"
	"github.com/bidmarkt/goapi/domain/auction"
	mmiddleware "github.com/bidmarkt/goapi/middleware"
	"github.com/bidmarkt/goapi/service/notify"
	"github.com/bidmarkt/goapi/service/query"
	"github.com/bidmarkt/goapi/service/redis"
	account_repository "github.com/bidmarkt/goapi/stores/account/repository"
	account_usecase "github.com/bidmarkt/goapi/stores/account/usecase"
	auction_delivery "github.com/bidmarkt/goapi/stores/auction/delivery/http"
	auction_repository "github.com/bidmarkt/goapi/stores/auction/repository"
	auction_usecase "github.com/bidmarkt/goapi/stores/auction/usecase"
	auth_delivery "github.com/bidmarkt/goapi/stores/auth/delivery/http"
	auth_middleware "github.com/bidmarkt/goapi/stores/auth/delivery/http/middleware"
	auth_usecase "github.com/bidmarkt/goapi/stores/auth/usecase"
	bid_repository "github.com/bidmarkt/goapi/stores/bid/repository"
	hc_delivery "github.com/bidmarkt/goapi/stores/healthcheck/delivery/http"
	hc_repo "github.com/bidmarkt/goapi/stores/healthcheck/repository"
	hc_usecase "github.com/bidmarkt/goapi/stores/healthcheck/usecase"
	listing_delivery "github.com/bidmarkt/goapi/stores/listing/delivery/http"
	listing_repository "github.com/bidmarkt/goapi/stores/listing/repository"
	listing_usecase "github.com/bidmarkt/goapi/stores/listing/usecase"
	notification_usecase "github.com/bidmarkt/goapi/stores/notification/usecase"
)

func init() {
	viper.SetConfigType("yaml")
	viper.SetConfigFile(`infra/configs/config.yaml`)
	err := viper.ReadInConfig()
	if err != nil {
		panic(err)
	}

	if viper.GetBool(`debug`) {
		log.Log().Info("Service RUN on DEBUG mode")
	}
}

func main() {
	// init echo
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{}))
	e.Use(middleware.RequestID())
	middL := mmiddleware.InitMiddleware()
	e.Use(middL.ResponseLogger())
	e.Use(middL.AddContext())
	e.Use(middleware.CORS())
	e.Validator = bValidator.NewCustomValidator(validator.New())

	context := ctx.Background()

	// init mongo client
	context.Info("init mongo")
	uri := viper.GetString("mongo.uri")
	authDBName := viper.GetString("mongo.authDBName")
	dbName := viper.GetString("mongo.dbName")
	enableSSL := viper.GetBool("mongo.enableSSL")
	checkIndex := viper.GetBool("mongo.checkIndex")
	mongoClient := mongoclient.MustConnectMongoClient(uri, authDBName, dbName, enableSSL, true, 2)
	q := query.New(mongoClient, checkIndex)

	// init redis service
	context.Info("init redis cache")
	redisCacheName := viper.GetString("redis_cache.name")
	redisCacheURI := viper.GetString("redis_cache.uri")
	redisCachePwd := viper.GetString("redis_cache.password")
	redisCachePoolMultiplier := viper.GetFloat64("redis_cache.poolMultiplier")
	redisCachePool := redisclient.MustConnectRedis(redisCacheURI, redisCachePwd, redisclient.RedisParam{
		PoolMultiplier: redisCachePoolMultiplier,
		Retry:          true,
	})
	redisCache := redis.New(redisCacheName, metrics.New(redisCacheName), &redis.Pools{
		Src: redisCachePool,
	})

	notifyClient := notify.NewClient(&notify.ClientCfg{
		HttpClient: http.Client{},
		Timeout:    viper.GetDuration("notify.timeout"),
		Endpoint:   viper.GetString("notify.endpoint"),
		Apikey:     viper.GetString("notify.apikey"),
	})

	// construct repository, usecase and delivery
	hcRepo := hc_repo.New(mongoClient, redisCache)
	auctionRepo := auction_repository.New(q)
	ledgerRepo := bid_repository.New(q)
	listingRepo := listing_repository.New(q)
	accountRepo := account_repository.New(q, redisCache)

	hc := hc_usecase.New(hcRepo)
	accountUC := account_usecase.New(accountRepo)
	listingUC := listing_usecase.New(listingRepo)
	notifier := notification_usecase.New(notifyClient)
	auctionUC := auction_usecase.New(&auction_usecase.AuctionUseCaseCfg{
		AuctionRepo: auctionRepo,
		Ledger:      ledgerRepo,
		ListingRepo: listingRepo,
		Tx:          q,
		Redis:       redisCache,
		Notifier:    notifier,
		Policy: auction.Policy{
			MinimumIncrement: viper.GetInt64("auction.minimumIncrement"),
			AllowSelfOutbid:  viper.GetBool("auction.allowSelfOutbid"),
		},
		MaxRetries:   viper.GetInt("auction.maxRetries"),
		RetryBackoff: viper.GetDuration("auction.retryBackoff"),
	})
	auth := auth_usecase.New(viper.GetString("auth.jwtSecret"), accountUC)

	authMiddleware := auth_middleware.New(auth)

	hc_delivery.New(e, hc)
	auth_delivery.New(e, auth)
	listing_delivery.New(e, listingUC, authMiddleware)
	auction_delivery.New(e, auctionUC, authMiddleware)

	go func() {
		if err := e.Start(viper.GetString("server.address")); err != nil && err != http.ErrServerClosed {
			log.Log().WithField("err", err).Error("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-quit
	log.Log().WithField("signal", sig).Info("received signal")
	ctx, cancel := ctx.WithTimeout(context, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Log().WithField("err", err).Error("shutting down the server")
	} else {
		log.Log().Info("shutdown server successfully")
	}
}
