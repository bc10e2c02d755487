package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	viral "github.com/USBABC1/V75VIRAL"
	"github.com/USBABC1/V75VIRAL/api"
	"github.com/USBABC1/V75VIRAL/config"
	"github.com/USBABC1/V75VIRAL/db"
	"github.com/USBABC1/V75VIRAL/metrics"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file")
	port := flag.String("port", "", "Server port (overrides config)")
	dbPath := flag.String("db", "", "Database file path (overrides config)")
	memoryStore := flag.Bool("memory-store", false, "Keep search history in memory instead of SQLite")
	disableCORS := flag.Bool("disable-cors", false, "Disable CORS")
	downloadImages := flag.Bool("download-images", false, "Save local copies of result images")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Addr = ":" + *port
	}
	if *dbPath != "" {
		cfg.Database.DSN = *dbPath
	}
	if *disableCORS {
		cfg.Server.CORSEnabled = false
	}
	if *downloadImages {
		cfg.Images.Download = true
	}

	metrics.Register(prometheus.DefaultRegisterer)

	var store db.Store
	if *memoryStore {
		store = db.NewMemoryStore(db.DefaultMaxHistory)
	} else {
		store, err = db.New(db.Config{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN})
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
	}

	finder := viral.New(finderConfig(cfg))

	server := api.NewServer(api.Config{
		Addr:        cfg.Server.Addr,
		CORSEnabled: cfg.Server.CORSEnabled,
		Defaults: api.RequestDefaults{
			MaxImages:     cfg.Search.DefaultMaxImages,
			MinEngagement: cfg.Search.DefaultMinEngagement,
			Platforms:     cfg.Search.DefaultPlatforms,
		},
	}, store, finder)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	fmt.Println("Server stopped")
}

func finderConfig(cfg *config.Config) viral.Config {
	fc := viral.DefaultConfig()
	fc.ContentAPIURL = cfg.Providers.ContentAPIURL
	fc.ContentAPIToken = cfg.Providers.ContentAPIToken
	fc.SearchAPIURL = cfg.Providers.SearchAPIURL
	fc.SearchAPIKey = cfg.Providers.SearchAPIKey
	fc.OpenAIBaseURL = cfg.Providers.OpenAIBaseURL
	fc.OpenAIKey = cfg.Providers.OpenAIKey
	fc.OpenAIModel = cfg.Providers.OpenAIModel
	fc.DownloadImages = cfg.Images.Download
	fc.ImagesDir = cfg.Images.Dir
	fc.MaxImageSizeBytes = cfg.Images.MaxSizeMB * 1024 * 1024
	return fc
}
