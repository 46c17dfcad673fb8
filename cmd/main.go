package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"debtster_routes/internal/adapters/opener"
	"debtster_routes/internal/adapters/retry"
	"debtster_routes/internal/config"
	"debtster_routes/internal/handlers"
	"debtster_routes/internal/repository"
	"debtster_routes/internal/repository/audit"
	"debtster_routes/internal/repository/database"
	importitems "debtster_routes/internal/repository/imports"
	"debtster_routes/internal/repository/revocation"
	"debtster_routes/internal/server"
	"debtster_routes/internal/services/collections"
	"debtster_routes/internal/services/export"
	"debtster_routes/internal/services/gate"
	"debtster_routes/internal/services/importer"
	"debtster_routes/internal/services/importer/processors"
	"debtster_routes/internal/services/ledger"
	"debtster_routes/internal/services/routing"
	"debtster_routes/internal/timeutil"
	"debtster_routes/internal/transport/auth"

	"github.com/sirupsen/logrus"
)

func main() {
	settings := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(settings.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	setupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cfg, err := config.Init(setupCtx, settings)
	if err != nil {
		log.Fatalf("[BOOT][ERR] %v", err)
	}
	defer cfg.Close(context.Background())

	if err := cfg.CheckConnections(setupCtx); err != nil {
		log.Fatalf("[BOOT][ERR] connection check failed: %v", err)
	}
	if err := cfg.S3.EnsureBucket(setupCtx); err != nil {
		log.Fatalf("[BOOT][ERR] bucket: %v", err)
	}
	if err := database.NewMigrator(cfg.Postgres, log).Run(setupCtx); err != nil {
		log.Fatalf("[BOOT][ERR] migrate: %v", err)
	}
	log.Info("[BOOT] all connections OK")

	loc := timeutil.LoadLocation(settings.RouteTimezone)
	store := database.NewStore(cfg.Postgres)
	policy := retry.Policy{MaxAttempts: settings.StoreRetryMax, Base: settings.StoreRetryBase}
	schedules := retry.Schedules{Next: store, Policy: policy, Log: log}
	assignments := retry.Assignments{Next: store, Policy: policy, Log: log}
	payments := retry.Ledger{Next: store, Policy: policy, Log: log}
	history := retry.History{Next: store, Policy: policy, Log: log}

	users := database.NewUserRepo(cfg.Postgres)
	sessions := &auth.Resolver{
		PAT: auth.NewPATResolver(repository.NewPersonalAccessTokenRepository(cfg.Postgres, log), users),
	}
	if settings.JWTSecret != "" {
		jwtm := auth.NewJWTManager(settings.JWTSecret, settings.JWTIssuer, settings.JWTTTL)
		sessions.JWT = auth.NewJWTResolver(jwtm, revocation.New(cfg.Redis), users)
	}

	denials := audit.NewSink(cfg.Mongo, log)
	g := gate.New(sessions, assignments, denials, log)
	engine := routing.NewEngine(schedules, assignments, payments, routing.Config{
		HorizonDays:      settings.RouteHorizonDays,
		CarryForwardDays: settings.CarryForwardDays,
		Concurrency:      settings.EngineConcurrency,
		Location:         loc,
	}, log)
	recorder := ledger.NewRecorder(schedules, payments, history, settings.ClockSkew, loc, log)
	svc := collections.New(g, engine, recorder, history, store, loc, log)
	svc.OfflineDays = settings.OfflineMaxAgeDays

	items := importitems.NewItemLogger(cfg.Mongo, log)
	base := processors.NewBaseProcessor(store, items, loc, log)
	compound := opener.NewCompoundOpener(
		opener.NewHTTPOpener(&http.Client{Timeout: 2 * time.Minute}, log),
		opener.NewS3Opener(cfg.S3.Client, log),
		cfg.S3.Bucket,
	)
	imp := importer.NewService(compound, processors.DefaultRegistry(base), items, settings.ImportBatchSize, log)

	job := export.NewRouteSheetJob(engine, store, cfg.S3.Client, cfg.S3.Bucket, loc, log)
	if err := job.Start(settings.ExportCron); err != nil {
		log.Fatalf("[BOOT][ERR] export schedule %q: %v", settings.ExportCron, err)
	}
	defer job.Stop()

	probes := cfg.Probes()
	names := make([]string, 0, len(probes))
	for name := range probes {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make([]handlers.Check, 0, len(names))
	for _, name := range names {
		checks = append(checks, handlers.Check{Name: name, Probe: probes[name]})
	}

	h := handlers.New(svc, imp, importitems.NewRecords(cfg.Mongo), cfg.S3.Client, cfg.S3.Bucket, checks, log)
	h.DenialLog = denials
	srv := server.NewServer(server.Options{Port: settings.Port, AllowedOrigins: settings.AllowedOrigins}, h)

	log.WithField("port", settings.Port).Info("[BOOT] listening")
	if err := srv.Run(runCtx); err != nil {
		log.Errorf("[SERVER][ERR] %v", err)
	}
	h.Wait()
	log.Info("[BOOT] stopped")
}
