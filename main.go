package main

import (
	"fmt"
	"log"

	"flowgen/internal/config"
	"flowgen/internal/db"
	"flowgen/internal/pkg/logger"
	"flowgen/internal/router"
	"flowgen/internal/service"
)

func main() {
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	if err := db.InitDB(cfg); err != nil {
		zlog.Fatal("init database", "error", err)
	}
	zlog.Info("database initialized", "path", cfg.Database.Path)

	svcCtx := service.NewServiceContext(cfg, zlog)

	if err := svcCtx.Scheduler.Start(); err != nil {
		zlog.Fatal("start scheduler", "error", err)
	}
	defer svcCtx.Scheduler.Stop()

	r := router.SetupRouter(svcCtx)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	zlog.Info("server starting", "addr", addr)
	if err := r.Run(addr); err != nil {
		zlog.Fatal("server failed", "error", err)
	}
}
