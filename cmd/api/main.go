package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JasonCodez/kryptyk-labs/internal/accesskey"
	"github.com/JasonCodez/kryptyk-labs/internal/asset"
	"github.com/JasonCodez/kryptyk-labs/internal/audit"
	"github.com/JasonCodez/kryptyk-labs/internal/auth"
	"github.com/JasonCodez/kryptyk-labs/internal/config"
	"github.com/JasonCodez/kryptyk-labs/internal/httpapi"
	"github.com/JasonCodez/kryptyk-labs/internal/mailer"
	"github.com/JasonCodez/kryptyk-labs/internal/mission"
	"github.com/JasonCodez/kryptyk-labs/internal/obs"
	"github.com/JasonCodez/kryptyk-labs/internal/store/pg"
	"github.com/JasonCodez/kryptyk-labs/internal/stream"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)
	cfg := config.Load()

	if cfg.DatabaseDSN == "" {
		log.Fatal("missing DSN: set KRYPTYK_PG_DSN")
	}
	db, err := pg.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	if err := pg.Ping(context.Background(), db); err != nil {
		log.Fatalf("db ping: %v", err)
	}

	tokens, err := auth.NewService(cfg.AuthSecret, auth.WithTTL(cfg.TokenTTL))
	if err != nil {
		log.Fatalf("auth: %v", err)
	}
	keys := accesskey.NewService(db,
		accesskey.WithTTL(cfg.AccessKeyTTL),
		accesskey.WithMaxAttempts(cfg.AccessKeyAttempts),
	)

	var mail mailer.Sender
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.MailFrom,
		})
	} else {
		mail = mailer.LogSender{}
	}

	feed := stream.New()
	auditLog := audit.NewRecorder(db, feed)
	assets := asset.NewService(db, keys, tokens, mail, auditLog)
	missions := mission.NewService(db, mission.NewOracle(cfg.MissionSecret), auditLog)

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, assets, missions, tokens, auditLog, feed, version,
		httpapi.WithRateLimit(cfg.RateBurst, cfg.RatePerSec))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Background chatter keeps the event stream alive between real
	// events; the starter-protocol beacon hides among these lines.
	chatterCtx, stopChatter := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(4 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-chatterCtx.Done():
				return
			case <-ticker.C:
				feed.Publish(feed.RandomChatterEvent())
			}
		}
	}()

	log.Printf("Starting kryptyk-labs-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	stopChatter()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
