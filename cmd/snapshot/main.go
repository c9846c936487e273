package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/database"
	"github.com/qs3c/metrics_go_server/internal/pkg/metrics"
	"github.com/qs3c/metrics_go_server/internal/pkg/queue"
	"github.com/qs3c/metrics_go_server/internal/pkg/whop"
	"github.com/qs3c/metrics_go_server/internal/repository"
	"github.com/qs3c/metrics_go_server/internal/service"
)

var (
	companyID = flag.String("company", "", "Capture a single company, default all registered companies")
	backfill  = flag.Bool("backfill", false, "Run pending historical backfills before capturing")
)

// 由外部调度器每天 05:00 UTC 调用
func main() {
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	billing := whop.NewClient(&cfg.Whop)
	collector := metrics.New()
	snapshotRepo := repository.NewSnapshotRepository(db)
	companyRepo := repository.NewCompanyRepository(db)

	start := time.Now()

	if *backfill {
		rdb, err := database.NewRedis(&cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect redis: %v", err)
		}
		backfillService := service.NewBackfillService(billing, snapshotRepo, companyRepo,
			repository.NewJobRepository(db),
			queue.NewQueue(rdb, cfg.Queue.BackfillQueue),
			queue.NewLocker(rdb),
			collector, cfg)

		result, err := backfillService.RunAll(ctx)
		if err != nil {
			log.Fatalf("Backfill failed: %v", err)
		}
		log.Printf("Backfill finished: %d companies, %d succeeded, %d failed",
			result.Total, result.Succeeded, result.Failed)
	}

	snapshotService := service.NewSnapshotService(billing, snapshotRepo, companyRepo, collector, cfg)

	if *companyID != "" {
		snapshot, err := snapshotService.CaptureCompanySnapshot(ctx, *companyID)
		if err != nil {
			log.Fatalf("Snapshot failed for company %s: %v", *companyID, err)
		}
		log.Printf("Snapshot captured for company %s: MRR %.2f, %d subscribers",
			*companyID, snapshot.MRRTotal, snapshot.SubscribersTotal)
		return
	}

	result, err := snapshotService.CaptureAllSnapshots(ctx)
	if err != nil {
		log.Fatalf("Snapshot job failed: %v", err)
	}

	log.Printf("Snapshot job finished in %s: %d companies, %d succeeded, %d failed",
		time.Since(start).Round(time.Millisecond), result.Total, result.Succeeded, result.Failed)
	for _, e := range result.Errors {
		log.Printf("  - %s", e)
	}
	if result.Failed > 0 {
		os.Exit(1)
	}
}
