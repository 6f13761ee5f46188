package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/yourusername/link-resolve-go/api"
	"github.com/yourusername/link-resolve-go/internal/app"
	"github.com/yourusername/link-resolve-go/internal/domain"
	"github.com/yourusername/link-resolve-go/internal/download"
	"github.com/yourusername/link-resolve-go/internal/infrastructure"
	"github.com/yourusername/link-resolve-go/internal/platforms"
	"github.com/yourusername/link-resolve-go/internal/resolver"
	"github.com/yourusername/link-resolve-go/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file")

func main() {
	flag.Parse()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting link-resolve server",
		zap.String("version", "1.0.0"),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("cache_dir", config.Download.CacheDir))

	if err := os.MkdirAll(config.Download.CacheDir, 0755); err != nil {
		log.Fatal("Failed to create cache directory", zap.Error(err))
	}

	client, err := buildHTTPClient(config.Download.Proxy)
	if err != nil {
		log.Fatal("Invalid proxy URL", zap.Error(err))
	}

	downloader := download.NewManager(download.Config{
		CacheDir:      config.Download.CacheDir,
		Concurrency:   config.Download.Concurrency,
		MaxSize:       config.Download.MaxSizeMB * 1024 * 1024,
		MaxDuration:   config.Download.MaxDuration,
		FetchTimeout:  config.Download.FetchTimeout,
		MaxRetries:    config.Download.MaxRetries,
		RetryDelay:    config.Download.RetryDelay,
		Base64Payload: config.Download.Base64Payload,
	}, client, afero.NewOsFs(), log)

	env := resolver.NewEnv(downloader, client, log)
	registry := resolver.NewRegistry(log)
	for _, parser := range platforms.All(env) {
		registry.AddParser(parser)
	}
	dispatcher := resolver.NewDispatcher(env, registry, config.Resolver, log)

	var history domain.HistoryRepository
	if config.History.Enabled {
		if err := os.MkdirAll(filepath.Dir(config.History.DatabasePath), 0755); err != nil {
			log.Fatal("Failed to create history directory", zap.Error(err))
		}
		repo, err := infrastructure.NewSQLiteHistoryRepository(config.History.DatabasePath)
		if err != nil {
			log.Fatal("Failed to initialize history repository", zap.Error(err))
		}
		defer repo.Close()
		history = repo
	}

	service := app.NewResolverService(dispatcher, config.Resolver, history, log)

	router := api.SetupRouter(service, downloader, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// buildHTTPClient returns the shared HTTP client, routed through the
// configured proxy when one is set.
func buildHTTPClient(proxy string) (*http.Client, error) {
	if proxy == "" {
		return &http.Client{}, nil
	}
	proxyURL, err := url.Parse(proxy)
	if err != nil {
		return nil, fmt.Errorf("failed to parse proxy URL: %w", err)
	}
	return &http.Client{
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
	}, nil
}
