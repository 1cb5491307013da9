package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"leverage-core/internal/api"
	"leverage-core/internal/events"
	"leverage-core/internal/monitor"
	"leverage-core/internal/preset"
	"leverage-core/pkg/config"
	"leverage-core/pkg/db"
	"leverage-core/pkg/i18n"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf(i18n.Get("ConfigLoadFailed"), err)
	}

	i18n.SetLanguage(i18n.Language(cfg.Language))
	log.Println(i18n.Get("Starting"))
	log.Printf(i18n.Get("ConfigLoaded"), cfg.Port)
	log.Printf(i18n.Get("UsingDBPath"), cfg.DBPath)

	bus := events.NewBus()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf(i18n.Get("DBInitFailed"), err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf(i18n.Get("DBMigrationsFailed"), err)
	}

	sysMetrics := monitor.NewSystemMetrics()

	presets, err := preset.Load(cfg.PresetsPath)
	if err != nil {
		log.Printf(i18n.Get("PresetsLoadFailed"), err)
		presets = nil
	} else {
		log.Printf(i18n.Get("PresetsLoaded"), len(presets), cfg.PresetsPath)
	}

	buildVersion := os.Getenv("APP_VERSION")
	if buildVersion == "" {
		buildVersion = "v1.0-dev"
	}

	server := api.NewServer(
		bus,
		database,
		sysMetrics,
		presets,
		api.SystemMeta{
			Language: cfg.Language,
			Version:  buildVersion,
		},
		cfg.JWTSecret,
		api.HistoryLimits{
			DefaultLimit: cfg.HistoryDefaultLimit,
			MaxLimit:     cfg.HistoryMaxLimit,
		},
		api.RateLimits{
			PerSecond: cfg.RateLimitPerSecond,
			Burst:     cfg.RateLimitBurst,
		},
	)
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf(i18n.Get("APIServerError"), err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println(i18n.Get("ShuttingDown"))
}
