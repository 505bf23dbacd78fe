package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ssuzuki-dev/enquete/internal/api"
	"github.com/ssuzuki-dev/enquete/internal/config"
	"github.com/ssuzuki-dev/enquete/internal/db"
	"github.com/ssuzuki-dev/enquete/internal/logger"
	"github.com/ssuzuki-dev/enquete/internal/middleware"
	"github.com/ssuzuki-dev/enquete/internal/services"
)

func main() {
	configPath := flag.String("config", os.Getenv("ENQUETE_CONFIG"), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("load config: %v", err)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	conn, err := db.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("open database: %v", err)
	}
	defer conn.Close()
	if err := db.RunMigrations(conn, cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("run migrations: %v", err)
	}
	store, err := db.NewSQLiteStore(conn)
	if err != nil {
		logger.Fatal("init store: %v", err)
	}

	auth := middleware.NewAuth(cfg.Auth.JWTSecret)
	authSvc := services.NewAuthService(store, auth.SignToken)
	authSvc.SetTokenTTL(cfg.Auth.TokenTTL)

	router := api.NewRouter(
		services.NewResponseService(store),
		services.NewAnalysisService(store),
		authSvc,
		services.NewUserService(store),
	)
	handler := router.Handler(auth, cfg.Server.StaticDir)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening on %s (db %s)", cfg.Server.Addr, cfg.Database.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown: %v", err)
	}
}
