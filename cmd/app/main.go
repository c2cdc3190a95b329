package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"FinCast/internal/di"
	"FinCast/pkg/config"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("run: %v", err)
	}
}
