package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/KDS-OurMemory/Server-sub001/internal/auth"
	"github.com/KDS-OurMemory/Server-sub001/internal/config"
	"github.com/KDS-OurMemory/Server-sub001/internal/db"
	httpx "github.com/KDS-OurMemory/Server-sub001/internal/http"
	"github.com/KDS-OurMemory/Server-sub001/internal/image"
	"github.com/KDS-OurMemory/Server-sub001/internal/jobs"
	"github.com/KDS-OurMemory/Server-sub001/internal/notify"
)

func main() {
	cfg, _ := config.Load()

	zl, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal(err)
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		logger.Fatal(err)
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret)
	jobsRepo := &jobs.Repo{DB: gdb}
	notifier := &notify.Queue{Repo: jobsRepo, Log: logger}
	images := &image.Dir{Base: cfg.ImageDir}

	r := httpx.NewRouter(cfg, gdb, logger, jwtSvc, notifier, images)

	// push dispatch worker
	worker := &jobs.Worker{
		ID:     "worker-1",
		Repo:   jobsRepo,
		DB:     gdb,
		Sender: &jobs.LogSender{Log: logger},
		Log:    logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(err)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
