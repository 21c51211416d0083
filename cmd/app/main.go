package main

import (
	"context"
	"flag"
	"log"
	"os"

	"CardioStage/internal/di"
	"CardioStage/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "config file path (defaults and env only when empty)")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s model=%s audit=%s", cfg.Environment, cfg.Model.Type, cfg.Audit.Backend)

	// Artifacts are loaded here; a failure exits before anything listens.
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
