// Command importer runs one reconciliation batch from the command line and
// prints its report as JSON. It also mints operator tokens for the API.
//
//	importer -source pikkit -file export.csv
//	importer -source oddsjam -file export.csv -dry-run
//	importer -token alice
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // postgres driver
	"go.uber.org/zap"

	"github.com/Apsteward8/my-bet-tracker/internal/authority"
	"github.com/Apsteward8/my-bet-tracker/internal/config"
	"github.com/Apsteward8/my-bet-tracker/internal/domain"
	"github.com/Apsteward8/my-bet-tracker/internal/lock"
	"github.com/Apsteward8/my-bet-tracker/internal/logger"
	"github.com/Apsteward8/my-bet-tracker/internal/mapping"
	"github.com/Apsteward8/my-bet-tracker/internal/reconcile"
	"github.com/Apsteward8/my-bet-tracker/internal/repository"
	"github.com/Apsteward8/my-bet-tracker/internal/service"
)

func main() {
	var (
		source = flag.String("source", "", "export source: oddsjam or pikkit")
		file   = flag.String("file", "", "path to the CSV export")
		dryRun = flag.Bool("dry-run", false, "reconcile against an empty in-memory store; nothing is written")
		token  = flag.String("token", "", "issue an operator token for this name and exit")
	)
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}

	if *token != "" {
		if cfg.JWT.Secret == "" {
			fatal(errors.New("JWT_SECRET must be set to issue tokens"))
		}
		tok, exp, err := service.NewAuthService(cfg.JWT).IssueOperatorToken(*token)
		if err != nil {
			fatal(err)
		}
		fmt.Println(tok)
		fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
		return
	}

	src, err := domain.ParseSource(*source)
	if err != nil || *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	log, err := logger.New("bet-importer", cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := run(ctx, cfg, log, src, *file, *dryRun)
	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
	if err != nil {
		log.Error("import failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, src domain.Source, path string, dryRun bool) (domain.BatchReport, error) {
	loc, err := time.LoadLocation(cfg.Import.Timezone)
	if err != nil {
		return domain.BatchReport{}, err
	}
	books := authority.Default()
	if cfg.Import.AuthorityFile != "" {
		if books, err = authority.Load(cfg.Import.AuthorityFile); err != nil {
			return domain.BatchReport{}, err
		}
	}

	var store reconcile.Store
	var runs service.RunStore
	if dryRun {
		store = reconcile.NewMemoryStore()
	} else {
		db, err := sqlx.Connect("postgres", cfg.DB.DSN)
		if err != nil {
			return domain.BatchReport{}, fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		store = repository.NewBetRepository(db, loc)
		runs = repository.NewImportRunRepository(db)
	}

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.Redis.Addr != "" && !dryRun {
		rdb, err := lock.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return domain.BatchReport{}, err
		}
		defer rdb.Close()
		// Shares the server's namespace so a CLI run and an upload never overlap.
		locker = lock.NewRedisLocker(rdb, "bettracker:")
	}

	engine := reconcile.NewEngine(store, books, mapping.NewMapper(books, loc), log,
		reconcile.WithErrorSamples(cfg.Import.ErrorSamples))
	svc := service.NewImportService(engine, locker, cfg.Import.LockTTL, log)
	if runs != nil {
		svc.SetRunStore(runs)
	}
	return svc.ImportFile(ctx, src, path)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "importer: %v\n", err)
	os.Exit(1)
}
