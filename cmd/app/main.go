package main

import (
	"flag"
	"log"
	"os"

	"PortfolioDash/internal/di"
	"PortfolioDash/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s backend=%s session_store=%s activity=%s",
		cfg.Environment, cfg.Backend.BaseURL, cfg.Session.Store, cfg.Activity.Backend)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
