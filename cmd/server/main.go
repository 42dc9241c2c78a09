package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pkarls/rummikub-backend/internal/auth"
	"github.com/pkarls/rummikub-backend/internal/config"
	"github.com/pkarls/rummikub-backend/internal/feed"
	"github.com/pkarls/rummikub-backend/internal/httpapi"
	"github.com/pkarls/rummikub-backend/internal/play"
	"github.com/pkarls/rummikub-backend/internal/store"
)

func main() {
	log, _ := zap.NewProduction()
	defer func() { _ = log.Sync() }()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	st := store.New(db)
	if err := st.Migrate(); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("connect redis", zap.Error(err))
	}

	fd := feed.New(rdb, log)
	svc := play.NewService(st, fd, log)
	verifier := auth.NewRemoteVerifier(cfg.AuthURL)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(svc, fd, verifier, log),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return srv.Shutdown(context.Background())
	})
	if err := g.Wait(); err != nil {
		log.Fatal("server", zap.Error(err))
	}
}
