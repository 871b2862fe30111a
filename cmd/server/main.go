package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/config"
	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/db"
	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/media"
	"github.com/danielrocha92/zero20garage-api-orcamentos/internal/server"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()
	_ = godotenv.Load()
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	cfg := config.Load()

	dbConn, err := db.ConnectAndMigrate(cfg.DatabaseDSN)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	if *migrateOnlyFlag {
		logrus.Info("migrations completed; exiting as requested")
		return
	}

	host := pickMediaHost(cfg)
	logrus.WithFields(logrus.Fields{"env": cfg.Env, "port": cfg.Port}).Info("starting server")

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.New(dbConn, host, cfg),
		ReadTimeout:  cfg.RequestTimeout + 5*time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logrus.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("error during shutdown")
	}
	logrus.Info("server gracefully stopped")
}

// pickMediaHost wires the attachment backend: GCS when a bucket is
// configured, the local upload directory otherwise. With neither, the
// image endpoints answer with a clear configuration error.
func pickMediaHost(cfg config.Config) media.Host {
	if cfg.GCSBucket != "" {
		h, err := media.NewGCSHost(context.Background(), cfg.GCSBucket, cfg.GCSBaseURL)
		if err != nil {
			logrus.WithError(err).Fatal("gcs media host init failed")
		}
		logrus.WithField("bucket", cfg.GCSBucket).Info("media host: gcs")
		return h
	}
	if cfg.UploadDir != "" {
		logrus.WithField("dir", cfg.UploadDir).Info("media host: local disk")
		return media.NewLocalHost(cfg.UploadDir)
	}
	logrus.Warn("no media host configured; image uploads disabled")
	return media.Disabled{}
}
