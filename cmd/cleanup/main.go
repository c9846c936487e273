package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/database"
	"github.com/qs3c/metrics_go_server/internal/repository"
	"github.com/qs3c/metrics_go_server/internal/service"
)

var (
	dryRun    = flag.Bool("dry-run", true, "Dry run mode, only count snapshots that would be deleted")
	keepDays  = flag.Int("keep-days", 0, "Days of snapshots to keep, default retention.keep_days")
	companyID = flag.String("company", "", "Only clean one company, default all companies")
)

func main() {
	flag.Parse()

	log.Println("Starting snapshot cleanup...")
	log.Printf("Mode: dry-run=%v", *dryRun)

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 连接数据库
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// 清理不需要计费平台
	snapshotService := service.NewSnapshotService(nil,
		repository.NewSnapshotRepository(db),
		repository.NewCompanyRepository(db),
		nil, cfg)

	result, err := snapshotService.Cleanup(context.Background(), *keepDays, *dryRun, *companyID)
	if err != nil {
		log.Fatalf("Cleanup failed: %v", err)
	}

	// 输出统计
	scope := "all companies"
	if *companyID != "" {
		scope = "company " + *companyID
	}
	log.Println(strings.Repeat("=", 60))
	log.Println("Cleanup Summary")
	log.Println(strings.Repeat("=", 60))
	log.Printf("Scope: %s", scope)
	log.Printf("Cutoff: %s", result.Cutoff.Format("2006-01-02"))
	log.Printf("Snapshots older than cutoff: %d", result.Matched)
	log.Printf("Deleted: %d", result.Deleted)
	if result.DryRun {
		log.Println("DRY RUN MODE - No snapshots were actually deleted")
		log.Println("   Run with -dry-run=false to actually delete snapshots")
	} else {
		log.Println("Cleanup completed!")
	}
	log.Println(strings.Repeat("=", 60))
}
