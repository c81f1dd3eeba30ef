// Package main is the entry point for the bet tracker API server. It wires
// the reconciliation engine, the query and verification services and the
// scheduled importer, then serves the HTTP API until SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Apsteward8/my-bet-tracker/internal/api"
	"github.com/Apsteward8/my-bet-tracker/internal/authority"
	"github.com/Apsteward8/my-bet-tracker/internal/config"
	"github.com/Apsteward8/my-bet-tracker/internal/domain"
	"github.com/Apsteward8/my-bet-tracker/internal/events"
	"github.com/Apsteward8/my-bet-tracker/internal/lock"
	"github.com/Apsteward8/my-bet-tracker/internal/logger"
	"github.com/Apsteward8/my-bet-tracker/internal/mapping"
	"github.com/Apsteward8/my-bet-tracker/internal/reconcile"
	"github.com/Apsteward8/my-bet-tracker/internal/repository"
	"github.com/Apsteward8/my-bet-tracker/internal/scheduler"
	"github.com/Apsteward8/my-bet-tracker/internal/service"
	"github.com/Apsteward8/my-bet-tracker/internal/telemetry"
)

func main() {
	// ── 1. Config & logger ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	log, err := logger.New("bet-tracker", cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting bet tracker server", zap.String("port", cfg.Server.Port))

	// ── 2. Database ───────────────────────────────────────────────────────────
	db, err := sqlx.Connect("postgres", cfg.DB.DSN)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	log.Info("database connected")

	if err = runMigrations(db, "migrations", log); err != nil {
		log.Fatal("migrations failed", zap.Error(err))
	}

	// ── 3. Reconciliation core ────────────────────────────────────────────────
	loc, err := time.LoadLocation(cfg.Import.Timezone)
	if err != nil {
		log.Fatal("timezone", zap.Error(err))
	}
	books := authority.Default()
	if cfg.Import.AuthorityFile != "" {
		if books, err = authority.Load(cfg.Import.AuthorityFile); err != nil {
			log.Fatal("sportsbook authority", zap.Error(err))
		}
	}

	betRepo := repository.NewBetRepository(db, loc)
	runRepo := repository.NewImportRunRepository(db)

	engine := reconcile.NewEngine(betRepo, books, mapping.NewMapper(books, loc), log,
		reconcile.WithErrorSamples(cfg.Import.ErrorSamples))

	// ── 4. Import lock ────────────────────────────────────────────────────────
	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.Redis.Addr != "" {
		rdb, err := lock.Connect(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("redis connection failed", zap.Error(err))
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, "bettracker:")
		log.Info("redis import lock enabled", zap.String("addr", cfg.Redis.Addr))
	}

	// ── 5. Metrics ────────────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// ── 6. Services ───────────────────────────────────────────────────────────
	importSvc := service.NewImportService(engine, locker, cfg.Import.LockTTL, log)
	importSvc.SetRunStore(runRepo)
	importSvc.SetMetrics(telemetry.NewImports(reg))

	if len(cfg.Kafka.Brokers) > 0 {
		pub := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.ImportTopic)
		defer pub.Close()
		importSvc.SetPublisher(pub)
		log.Info("import events enabled", zap.String("topic", cfg.Kafka.ImportTopic))
	}

	authSvc := service.NewAuthService(cfg.JWT)
	betSvc := service.NewBetService(betRepo, log)
	statsSvc := service.NewStatsService(betRepo, loc)

	// ── 7. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 8. Scheduler ──────────────────────────────────────────────────────────
	if cfg.Import.Schedule != "" {
		var jobs []scheduler.Job
		if cfg.Import.OddsJamPath != "" {
			jobs = append(jobs, scheduler.Job{Source: domain.SourceOddsJam, Path: cfg.Import.OddsJamPath})
		}
		if cfg.Import.PikkitPath != "" {
			jobs = append(jobs, scheduler.Job{Source: domain.SourcePikkit, Path: cfg.Import.PikkitPath})
		}
		sched, err := scheduler.NewScheduler(cfg.Import.Schedule, loc, importSvc, jobs, log)
		if err != nil {
			log.Fatal("scheduler", zap.Error(err))
		}
		sched.Start(ctx)
	}

	// ── 9. HTTP Router ────────────────────────────────────────────────────────
	router := api.SetupRouter(api.RouterDeps{
		AuthSvc:   authSvc,
		BetSvc:    betSvc,
		StatsSvc:  statsSvc,
		ImportSvc: importSvc,
		Books:     books,
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Loc:       loc,
		Log:       log,
		Cfg:       cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── 10. Start server ──────────────────────────────────────────────────────
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", zap.Error(err))
			stop() // trigger graceful shutdown
		}
	}()

	// ── 11. Graceful shutdown ─────────────────────────────────────────────────
	<-ctx.Done()
	log.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", zap.Error(err))
	}

	db.Close()
	log.Info("server stopped cleanly")
}

// runMigrations reads all *.sql files from dir, sorted by name, and executes
// them sequentially. Idempotent: SQL files use IF NOT EXISTS.
func runMigrations(db *sqlx.DB, dir string, log *zap.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("runMigrations: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("runMigrations: read %q: %w", f, err)
		}
		if _, err = db.Exec(string(data)); err != nil {
			return fmt.Errorf("runMigrations: exec %q: %w", f, err)
		}
		log.Info("migration applied", zap.String("file", filepath.Base(f)))
	}
	return nil
}
