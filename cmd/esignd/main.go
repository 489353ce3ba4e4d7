package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inkchain/esigner/internal/capability"
	"github.com/inkchain/esigner/internal/config"
	"github.com/inkchain/esigner/pkg/audit"
	"github.com/inkchain/esigner/pkg/blobstore"
	"github.com/inkchain/esigner/pkg/database"
	"github.com/inkchain/esigner/pkg/document"
	"github.com/inkchain/esigner/pkg/finalizer"
	"github.com/inkchain/esigner/pkg/notify"
	"github.com/inkchain/esigner/pkg/otp"
	"github.com/inkchain/esigner/pkg/reminder"
	"github.com/inkchain/esigner/pkg/server"
	"github.com/inkchain/esigner/pkg/server/metrics"
	"github.com/inkchain/esigner/pkg/signerflow"
	"github.com/inkchain/esigner/pkg/validator"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.Println("🔌 Connecting to database...")
	dbClient, err := database.NewClient(cfg, database.WithLogger(logger))
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer dbClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	migrateCtx, migrateCancel := context.WithTimeout(ctx, 60*time.Second)
	defer migrateCancel()
	if err := dbClient.MigrateUp(migrateCtx); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	logger.Println("✅ Database migrations up to date")

	repos := database.NewRepositories(dbClient.DB())

	clock := capability.SystemClock{}
	rng := capability.SystemRNG{}
	hasher := capability.Hasher{}

	blobs, err := blobstore.New(cfg.BlobRoot)
	if err != nil {
		log.Fatal("Failed to open blob store:", err)
	}

	notifier := notify.NewLoggingNotifier(logger)

	auditSvc := audit.New(repos.Audit, clock, cfg.ChainGenesisPrefix)

	otpStore := otp.New(repos.Otp, clock, rng, cfg.OtpTTL.Duration(), cfg.BcryptCost)

	fin := finalizer.New(repos, blobs, auditSvc, clock, hasher, logger)

	documents := document.New(dbClient, repos, blobs, auditSvc, notifier, clock, rng, hasher, cfg.InviteTTL.Duration())

	flow := signerflow.New(dbClient, repos, blobs, auditSvc, otpStore, fin, notifier, clock, hasher, cfg.ShortCodeLength)

	val := validator.New(dbClient.DB(), repos.Documents, repos.Signers, repos.Users, hasher)

	m, metricsHandler := metrics.New()

	srv := server.New(dbClient, repos, documents, flow, auditSvc, val, m, logger)

	logger.Println("⏰ Starting deadline reminder job...")
	reminderJob := reminder.New(dbClient.DB(), repos, notifier, clock, cfg.ReminderHorizon.Duration(), cfg.ReminderInterval.Duration(), logger)
	go reminderJob.Run(ctx)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Routes(metricsHandler),
	}

	go func() {
		logger.Printf("🌐 esignd listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("🛑 Shutting down esignd...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP server shutdown error: %v", err)
	}

	logger.Println("✅ esignd stopped")
}
