package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/pkg/jwt"
)

var (
	serviceName = flag.String("service", "scheduler", "Name of the calling service")
	expireHours = flag.Int("expire-hours", 0, "Token lifetime in hours, default auth.expire_hours")
)

// 为定时任务生成服务令牌
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

	hours := *expireHours
	if hours <= 0 {
		hours = cfg.Auth.ExpireHours
	}

	token, err := jwt.GenerateToken(*serviceName, cfg.Auth.ServiceSecret, hours)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}
	fmt.Println(token)
}
