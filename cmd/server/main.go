package main

import (
	"fmt"
	"log"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/api"
	"github.com/qs3c/metrics_go_server/internal/api/handler"
	"github.com/qs3c/metrics_go_server/internal/database"
	"github.com/qs3c/metrics_go_server/internal/pkg/metrics"
	"github.com/qs3c/metrics_go_server/internal/pkg/queue"
	"github.com/qs3c/metrics_go_server/internal/pkg/whop"
	"github.com/qs3c/metrics_go_server/internal/repository"
	"github.com/qs3c/metrics_go_server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	if cfg.Whop.APIKey == "" {
		log.Println("Warning: whop.api_key is empty, billing requests will be rejected")
	}
	billing := whop.NewClient(&cfg.Whop)
	collector := metrics.New()

	// 初始化 Queue
	jobQueue := queue.NewQueue(rdb, cfg.Queue.BackfillQueue)
	locker := queue.NewLocker(rdb)

	// 初始化 Repository
	snapshotRepo := repository.NewSnapshotRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	jobRepo := repository.NewJobRepository(db)

	// 初始化 Service
	analyticsService := service.NewAnalyticsService(billing, snapshotRepo, companyRepo, collector, cfg)
	backfillService := service.NewBackfillService(billing, snapshotRepo, companyRepo, jobRepo, jobQueue, locker, collector, cfg)
	snapshotService := service.NewSnapshotService(billing, snapshotRepo, companyRepo, collector, cfg)

	// 初始化 Handler
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, backfillService)
	jobsHandler := handler.NewJobsHandler(snapshotService, backfillService)
	healthHandler := handler.NewHealthHandler(db, rdb)

	// 初始化 Router
	router := api.NewRouter(analyticsHandler, jobsHandler, healthHandler, collector, cfg)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
