package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	bCtx "github.com/bidmarkt/goapi/base/ctx"
	"github.com/bidmarkt/goapi/base/database/mongoclient"
	"github.com/bidmarkt/goapi/base/database/redisclient"
	"github.com/bidmarkt/goapi/base/log"
	"github.com/bidmarkt/goapi/base/metrics"
	"github.com/bidmarkt/goapi/base/scheduler"
	"github.com/bidmarkt/goapi/domain/auction"
	"github.com/bidmarkt/goapi/service/notify"
	"github.com/bidmarkt/goapi/service/query"
	"github.com/bidmarkt/goapi/service/redis"
	auction_repository "github.com/bidmarkt/goapi/stores/auction/repository"
	auction_usecase "github.com/bidmarkt/goapi/stores/auction/usecase"
	bid_repository "github.com/bidmarkt/goapi/stores/bid/repository"
	listing_repository "github.com/bidmarkt/goapi/stores/listing/repository"
	notification_usecase "github.com/bidmarkt/goapi/stores/notification/usecase"
)

func init() {
	pflag.String("config", "infra/configs/config.yaml", "path to the config file")
	pflag.Duration("interval", 0, "sweep interval, overrides the config value")
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)

	viper.SetConfigType("yaml")
	viper.SetConfigFile(viper.GetString("config"))
	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	if viper.GetBool(`debug`) {
		log.Log().Info("Service RUN on DEBUG mode")
	}
}

func main() {
	context, cancel := bCtx.WithCancel(bCtx.Background())
	defer cancel()

	context.Info("init mongo")
	uri := viper.GetString("mongo.uri")
	authDBName := viper.GetString("mongo.authDBName")
	dbName := viper.GetString("mongo.dbName")
	enableSSL := viper.GetBool("mongo.enableSSL")
	checkIndex := viper.GetBool("mongo.checkIndex")
	mongoClient := mongoclient.MustConnectMongoClient(uri, authDBName, dbName, enableSSL, true, 2)
	q := query.New(mongoClient, checkIndex)

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

	auctionRepo := auction_repository.New(q)
	ledgerRepo := bid_repository.New(q)
	listingRepo := listing_repository.New(q)
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

	interval := viper.GetDuration("interval")
	if interval <= 0 {
		interval = viper.GetDuration("scheduler.interval")
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}

	errorCh := make(chan error, 1)
	sched := scheduler.NewAuctionScheduler(&scheduler.AuctionSchedulerCfg{
		Auction:  auctionUC,
		Interval: interval,
		ErrorCh:  errorCh,
	})

	context.WithField("interval", interval).Info("starting auction scheduler")
	sched.Start(context)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-quit:
		log.Log().WithField("signal", sig).Info("received signal")
		cancel()
		sched.Wait()
	case err := <-errorCh:
		log.Log().WithField("err", err).Error("scheduler stopped with error")
		cancel()
		os.Exit(1)
	}

	log.Log().Info("scheduler shut down")
}
