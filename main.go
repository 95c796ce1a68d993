package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"postergrid/api"
	"postergrid/config"
	"postergrid/handlers"
	"postergrid/services/batch"
	"postergrid/services/collections"
	"postergrid/services/enrich"
	"postergrid/services/localstore"
	"postergrid/services/metadata"
	"postergrid/services/ratelimit"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {

	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	fmt.Println("postergrid backend starting...")

	// Determine config path (env or default)
	configPath := os.Getenv("POSTERGRID_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("data", "settings.json")
	}

	// Init config manager and load settings (creates defaults if missing)
	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			multiWriter := io.MultiWriter(os.Stdout, fileWriter)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	if settings.TMDB.APIKey == "" {
		log.Printf("Warning: no TMDB API key configured, lookups will fail until one is set in %s", configPath)
	}
	if settings.OMDB.APIKey == "" {
		log.Printf("award lookups disabled (no OMDb API key configured)")
	}

	// Persistent key/value store for caches and collections
	store, err := localstore.Open(afero.NewOsFs(), settings.Storage.Directory)
	if err != nil {
		log.Fatalf("failed to open store in %s: %v", settings.Storage.Directory, err)
	}

	// Shared admission window for all TMDB traffic
	limiter := ratelimit.New(settings.RateLimit.MaxRequests,
		time.Duration(settings.RateLimit.PeriodSeconds)*time.Second)

	metadataSvc := metadata.NewService(settings.TMDB.APIKey, settings.OMDB.APIKey,
		settings.TMDB.Language, nil, limiter, store)
	resolver := batch.NewResolver(metadataSvc, time.Duration(settings.Batch.ItemDelayMs)*time.Millisecond)
	pipeline := enrich.NewPipeline(metadataSvc)
	collectionsSvc := collections.NewService(store)

	metadataHandler := handlers.NewMetadataHandler(metadataSvc, resolver, pipeline)
	collectionsHandler := handlers.NewCollectionsHandler(collectionsSvc)

	r := mux.NewRouter()
	api.Register(r, metadataHandler, collectionsHandler)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Setup graceful shutdown
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
}
