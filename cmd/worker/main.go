package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/database"
	"github.com/qs3c/metrics_go_server/internal/pkg/metrics"
	"github.com/qs3c/metrics_go_server/internal/pkg/pubsub"
	"github.com/qs3c/metrics_go_server/internal/pkg/queue"
	"github.com/qs3c/metrics_go_server/internal/pkg/whop"
	"github.com/qs3c/metrics_go_server/internal/repository"
	"github.com/qs3c/metrics_go_server/internal/service"
	"github.com/qs3c/metrics_go_server/internal/worker"
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

	// 初始化 Queue 和 Pub/Sub
	jobQueue := queue.NewQueue(rdb, cfg.Queue.BackfillQueue)
	publisher := pubsub.NewPublisher(rdb, cfg.Queue.ProgressChannel)
	collector := metrics.New()

	// 初始化 Repository
	jobRepo := repository.NewJobRepository(db)
	backfillService := service.NewBackfillService(
		whop.NewClient(&cfg.Whop),
		repository.NewSnapshotRepository(db),
		repository.NewCompanyRepository(db),
		jobRepo,
		jobQueue,
		queue.NewLocker(rdb),
		collector,
		cfg,
	)

	// 创建任务处理器
	processor := worker.NewProcessor(jobRepo, backfillService, publisher, collector)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	log.Printf("Worker started, max workers: %d", cfg.Queue.MaxWorkers)
	worker.Run(ctx, jobQueue, processor, cfg.Queue.MaxWorkers)
	log.Println("Worker shutdown complete")
}
