package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/figmap/server/internal/api"
	"github.com/figmap/server/internal/cache"
	"github.com/figmap/server/internal/config"
	"github.com/figmap/server/internal/dataset"
	"github.com/figmap/server/internal/engine"
	"github.com/figmap/server/internal/render"
	"github.com/figmap/server/internal/service"
	"github.com/figmap/server/pkg/colormap"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(serveConfigPath)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "config/server.yaml", "Path to configuration file")
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log.Printf("Starting figmap server on port %d", cfg.Server.Port)

	ds, err := service.LoadDataset(cfg.Data.ProteinsPath)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	opts := engine.Options{
		WindowStart:          cfg.Session.WindowStart,
		WindowEnd:            cfg.Session.WindowEnd,
		ScrollStep:           cfg.Session.ScrollStep,
		ClearColorOnDeselect: cfg.Session.ClearColorOnDeselect,
	}
	if cfg.Data.PalettePath != "" {
		palette, err := colormap.LoadPalette(cfg.Data.PalettePath)
		if err != nil {
			return fmt.Errorf("failed to load palette: %w", err)
		}
		opts.Palette = palette
		log.Printf("  Palette: %d colours from %s", len(palette), cfg.Data.PalettePath)
	}

	var hierarchy dataset.Hierarchy
	if cfg.Data.HierarchyPath != "" {
		hierarchy, err = dataset.LoadHierarchy(cfg.Data.HierarchyPath)
		if err != nil {
			return fmt.Errorf("failed to load hierarchy: %w", err)
		}
		log.Printf("  Hierarchy: %d entries from %s", len(hierarchy), cfg.Data.HierarchyPath)
	}

	cacheManager, err := cache.NewManager(cache.Config{
		FrameCacheSizeMB: cfg.Cache.FrameSizeMB,
		FrameTTL:         time.Duration(cfg.Cache.FrameTTLMinutes) * time.Minute,
		QueryCacheSize:   cfg.Cache.QueryCacheSize,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer cacheManager.Close()

	svc := service.NewSessionService(service.SessionServiceConfig{
		Dataset:     ds,
		Hierarchy:   hierarchy,
		Options:     opts,
		MaxSessions: cfg.Session.MaxSessions,
		Cache:       cacheManager,
		Renderer:    render.NewFrameRenderer(render.Config{CellSize: cfg.Render.CellSize}),
	})

	router := api.NewRouter(api.RouterConfig{
		Service:     svc,
		CORSOrigins: cfg.Server.CORSOrigins,
		Title:       cfg.Server.Title,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
	return nil
}
