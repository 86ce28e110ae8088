package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reelclub/moviehub/backend/internal/catalog"
	"github.com/reelclub/moviehub/backend/internal/config"
	"github.com/reelclub/moviehub/backend/internal/log"
	"github.com/reelclub/moviehub/backend/internal/metrics"
	"github.com/reelclub/moviehub/backend/internal/server"
	"github.com/reelclub/moviehub/backend/internal/store"
)

func main() {
	cfg := config.Load()

	logger, err := log.Init(cfg.Dev)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if !cfg.Dev {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.MustRegister()

	st, err := openStore(cfg)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := catalog.NewService(st).Seed(ctx); err != nil {
		logger.Warn("catalog seed failed", zap.Error(err))
	}

	srv := server.New(cfg, st)
	defer srv.Close()

	httpServer := srv.HTTPServer()
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.String("store", cfg.StoreBackend))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func openStore(cfg config.Config) (store.Store, error) {
	if cfg.StoreBackend == "memory" {
		return store.NewMemoryStore(), nil
	}
	return store.OpenBadger(cfg.DataDir)
}
