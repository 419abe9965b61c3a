package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"rappel-client/internal/config"
	"rappel-client/internal/stub"
	"rappel-client/pkg/logger"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "chemin du fichier de configuration")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Stub.Port),
		Handler: stub.NewServer().Router(),
	}

	go func() {
		logger.Infof("stub backend listening on port %d", cfg.Stub.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("stub backend failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("stub backend shutting down")
	if err := server.Close(); err != nil {
		logger.Errorf("stub backend close failed: %v", err)
	}
}
