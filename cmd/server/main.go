package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flash-sale-backend/internal/config"
	"github.com/iliyamo/flash-sale-backend/internal/database"
	"github.com/iliyamo/flash-sale-backend/internal/handler"
	"github.com/iliyamo/flash-sale-backend/internal/middleware"
	"github.com/iliyamo/flash-sale-backend/internal/queue"
	"github.com/iliyamo/flash-sale-backend/internal/repository"
	"github.com/iliyamo/flash-sale-backend/internal/router"
	"github.com/iliyamo/flash-sale-backend/internal/sale"
	queuepub "github.com/iliyamo/flash-sale-backend/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		log.Fatalf("schema migration failed: %v", err)
	}
	cancel()

	// Repositories.
	users := repository.NewUserRepo(db)
	products := repository.NewProductRepo(db)
	events := repository.NewSaleEventRepo(db)
	stock := repository.NewStockRepo(db)
	orders := repository.NewOrderRepo(db)

	// The purchase pipeline.
	orch := sale.NewOrchestrator(events, stock, orders, queuepub.OrderNotifier{})

	// Activation sweep keeps cached statuses in step with event windows.
	scheduler := sale.NewScheduler(events, time.Duration(cfg.SweepIntervalSec)*time.Second)
	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()
	go scheduler.Run(schedCtx)

	// Order log consumer; runs its own reconnect loop forever.
	go func() {
		if err := queue.StartOrderConsumer(); err != nil {
			log.Printf("order consumer stopped: %v", err)
		}
	}()

	// Redis is optional: without it the limiter and cache become no-ops.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and response cache disabled")
	}

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	authH := handler.NewAuthHandler(cfg, users)
	productH := handler.NewProductHandler(products)
	eventH := handler.NewSaleEventHandler(cfg, events, products, stock)
	orderH := handler.NewOrderHandler(cfg, orch, orders)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterCatalog(e, productH, eventH, cache)
	router.RegisterAdmin(e, productH, eventH, cfg.JWTSecret)
	router.RegisterOrders(e, orderH, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
