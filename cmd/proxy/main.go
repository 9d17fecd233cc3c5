package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DeBrosOfficial/chainfiles/pkg/logging"
	"github.com/DeBrosOfficial/chainfiles/pkg/proxy"
	"go.uber.org/zap"
)

func setupLogger() *logging.ColoredLogger {
	logger, err := logging.NewColoredLogger(logging.ComponentProxy, true)
	if err != nil {
		panic(err)
	}
	return logger
}

func main() {
	logger := setupLogger()

	cfg, err := parseProxyConfig(flag.CommandLine, os.Args[1:], logger)
	if err != nil {
		os.Exit(2)
	}
	if cfg.PinataJWT == "" {
		logger.ComponentWarn(logging.ComponentProxy, "PINATA_JWT is not set; uploads will fail with 500")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := proxy.New(cfg, logger)
	p.Start(ctx)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           p.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.ComponentInfo(logging.ComponentProxy, "Pinning proxy starting", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ComponentError(logging.ComponentProxy, "HTTP server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.ComponentInfo(logging.ComponentProxy, "Shutting down pinning proxy...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.ComponentError(logging.ComponentProxy, "HTTP server shutdown error", zap.Error(err))
	}
	logger.ComponentInfo(logging.ComponentProxy, "Proxy shutdown complete")
}
