package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bahjat/image-scraper/internal/imagescrape"
	"github.com/Bahjat/image-scraper/internal/platform/config"
	"github.com/Bahjat/image-scraper/internal/platform/logger"
	"github.com/Bahjat/image-scraper/internal/platform/middleware"
	"github.com/Bahjat/image-scraper/internal/scraper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	// One pooled transport for the whole process; every scrape shares it.
	transport := imagescrape.NewTransport(imagescrape.TransportOptions{
		MaxIdleConnsPerHost:  cfg.MaxConcurrentFetches,
		AllowPrivateNetworks: cfg.AllowPrivateNetworks,
	})
	defer transport.CloseIdleConnections()

	fetcher := imagescrape.NewHTTPClient(imagescrape.ClientOptions{
		Transport: transport,
		Timeout:   cfg.PageFetchTimeout,
		UserAgent: cfg.UserAgent,
		Logger:    log,
	})
	sizer := imagescrape.NewSizeFetcher(imagescrape.ClientOptions{
		Transport: transport,
		Timeout:   cfg.SizeFetchTimeout,
		UserAgent: cfg.UserAgent,
		Logger:    log,
	})
	engine := imagescrape.NewEngine(fetcher, sizer, cfg.MaxConcurrentFetches, log)

	svc := scraper.NewService(engine, log)
	mux := http.NewServeMux()
	scraper.NewTransport(svc, log, cfg.RequestTimeout).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           middleware.RequestID(middleware.Logging(log)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("image scraper listening",
			"addr", srv.Addr,
			"max_concurrent_fetches", cfg.MaxConcurrentFetches,
			"request_timeout", cfg.RequestTimeout.String(),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
