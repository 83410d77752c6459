package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"

	"biblios-backend/internal/library/books"
	"biblios-backend/internal/library/loans"
	"biblios-backend/internal/library/patrons"
	"biblios-backend/internal/library/reports"
	"biblios-backend/internal/platform/db"
	"biblios-backend/internal/platform/web"
	"biblios-backend/pkg/logger"
)

func main() {
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}
	if cfg.Mode != "dev" && cfg.Mode != "release" {
		panic("config: mode must be dev or release")
	}

	log := logger.New("biblios-backend", cfg.LogLevel)
	defer log.Sync()
	sugar := log.Sugar()
	sugar.Infow("starting", "mode", cfg.Mode, "addr", cfg.HTTP.Addr)

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		sugar.Fatalw("database connect failed", "error", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(ctx, conn); err != nil {
		cancel()
		sugar.Fatalw("migration failed", "error", err)
	}
	cancel()
	sugar.Infow("connected", "database", cfg.DB.DBName)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), web.RequestID())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == "dev" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
			ExposeHeaders:    []string{"Content-Length", "Location", "X-Request-ID"},
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := r.Group("/api/v1")
	books.RegisterRoutes(api, books.NewService(conn, sugar.Named("books")))
	patrons.RegisterRoutes(api, patrons.NewService(conn, sugar.Named("patrons")))
	loans.RegisterRoutes(api, loans.NewService(conn, sugar.Named("loans")))
	reports.RegisterRoutes(api, reports.NewService(conn, sugar.Named("reports")))

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		sugar.Infow("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	sugar.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Fatalw("shutdown failed", "error", err)
	}
}
