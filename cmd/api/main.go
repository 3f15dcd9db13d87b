package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/punchamoorthee/rentledger/internal/api"
	"github.com/punchamoorthee/rentledger/internal/config"
	"github.com/punchamoorthee/rentledger/internal/importer"
	"github.com/punchamoorthee/rentledger/internal/logging"
	"github.com/punchamoorthee/rentledger/internal/service"
	"github.com/punchamoorthee/rentledger/internal/store"
)

func main() {
	logging.Init("rentledger-api")
	log := logging.Logger

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Unable to open %s store: %v", cfg.StoreDriver, err)
	}
	defer st.Close()

	aliases, err := importer.LoadAliases(cfg.ImportAliasesFile)
	if err != nil {
		log.Fatal(err)
	}

	// Initialize Layers
	clients := service.NewClientService(st)
	periods := service.NewPeriodService(st)
	handler := api.NewHandler(
		clients,
		service.NewLedgerService(st),
		service.NewDocumentService(st),
		service.NewImportService(st, aliases, cfg.ImportRequireCNI),
		service.NewReceiptService(st, cfg),
	)

	if n, err := periods.RollForward(ctx); err != nil {
		log.WithError(err).Warn("Initial period roll-forward failed")
	} else if n > 0 {
		log.WithField("created", n).Info("Generated missing periods")
	}
	scheduler, err := periods.Schedule(cfg.PeriodsCron)
	if err != nil {
		log.Fatal(err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.WithCORS(api.NewRouter(handler), cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.WithFields(logrus.Fields{
		"port":  cfg.Port,
		"store": cfg.StoreDriver,
		"env":   cfg.Env,
		"cron":  cfg.PeriodsCron,
	}).Info("Server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Info("Server stopped")
}
