package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/longsangsabo2025/sabo-arena/internal/cache"
	"github.com/longsangsabo2025/sabo-arena/internal/config"
	"github.com/longsangsabo2025/sabo-arena/internal/db"
	"github.com/longsangsabo2025/sabo-arena/internal/metrics"
	"github.com/longsangsabo2025/sabo-arena/internal/middleware"
	"github.com/longsangsabo2025/sabo-arena/internal/notify"
	"github.com/longsangsabo2025/sabo-arena/internal/rating"
	"github.com/longsangsabo2025/sabo-arena/internal/scheduler"
	"github.com/longsangsabo2025/sabo-arena/internal/service"
	"github.com/longsangsabo2025/sabo-arena/internal/store"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "arena",
		Usage: "run and administer SABO Arena tournaments",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			settleCommand(),
			tokenCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// app holds everything the commands share once configuration is loaded.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *sqlx.DB
	metrics *metrics.Metrics
	pubSub  *gochannel.GoChannel

	users       *store.UserStore
	tournaments *service.TournamentService
	brackets    *service.BracketGeneration
	matches     *service.MatchService
	settlement  *service.SettlementService
	userService *service.UserService
}

func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	database, err := db.InitDB(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(database.DB); err != nil {
		database.Close()
		return nil, err
	}

	return wire(cfg, logger, database, rules), nil
}

func wire(cfg *config.Config, logger *slog.Logger, database *sqlx.DB, rules *rating.Rules) *app {
	m := metrics.New()
	pubSub := notify.NewGoChannel(logger)
	relay := notify.NewRelay(pubSub, logger, m)

	tournamentStore := store.NewTournamentStore(database)
	ratingStore := store.NewRatingStore(database)
	userStore := store.NewUserStore(database)
	locks := service.NewLocks()

	a := &app{
		cfg:         cfg,
		logger:      logger,
		db:          database,
		metrics:     m,
		pubSub:      pubSub,
		users:       userStore,
		userService: service.NewUserService(database, userStore),
	}
	a.tournaments = service.NewTournamentService(database, tournamentStore, locks, logger, m)
	a.brackets = service.NewBracketService(database, tournamentStore, ratingStore, rules.InitialRating, locks, relay, logger, m)
	a.settlement = service.NewSettlementService(database, tournamentStore, ratingStore, rules, locks, logger, m)
	a.matches = service.NewMatchService(database, tournamentStore, locks, relay, a.settlement, logger, m)
	return a
}

func (a *app) useCache(c service.SnapshotCache) {
	a.tournaments.WithCache(c)
	a.brackets.WithCache(c)
	a.matches.WithCache(c)
	a.settlement.WithCache(c)
}

func (a *app) Close() {
	if err := a.pubSub.Close(); err != nil {
		a.logger.Error("Failed to close pub/sub", "error", err)
	}
	a.db.Close()
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "start the HTTP server",
		Action: func(c *cli.Context) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			snapshots, err := cache.NewSnapshotStore(a.cfg.CachePath, a.cfg.CacheTTL)
			if err != nil {
				return err
			}
			defer snapshots.Close()
			a.useCache(snapshots)

			sched, err := scheduler.New(a.cfg.CachePurgeSchedule, a.logger,
				scheduler.Job{Name: "purge-snapshots", Run: func(context.Context) error {
					_, err := snapshots.Purge()
					return err
				}},
				scheduler.Job{Name: "settle-pending", Run: func(ctx context.Context) error {
					_, err := a.settlement.SettlePending(ctx)
					return err
				}},
			)
			if err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			providers := middleware.InitAuth(a.cfg)

			sessionManager := scs.New()
			sessionManager.Lifetime = a.cfg.SessionLifetime
			sessionManager.Store = sqlite3store.New(a.db.DB)

			server := &http.Server{
				Addr:              a.cfg.ListenAddr,
				Handler:           newRouter(a, sessionManager, providers),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("Server starting", "addr", a.cfg.ListenAddr, "providers", providers)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

func migrateCommand() *cli.Command {
	open := func() (*sqlx.DB, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		return db.InitDB(cfg.DatabasePath)
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: func(c *cli.Context) error {
					database, err := open()
					if err != nil {
						return err
					}
					defer database.Close()
					return db.RunMigrations(database.DB)
				},
			},
			{
				Name:  "down",
				Usage: "roll back the most recent migration",
				Action: func(c *cli.Context) error {
					database, err := open()
					if err != nil {
						return err
					}
					defer database.Close()
					return db.RollbackMigration(database.DB)
				},
			},
		},
	}
}

func settleCommand() *cli.Command {
	return &cli.Command{
		Name:  "settle",
		Usage: "settle every completed tournament that has not been settled yet",
		Action: func(c *cli.Context) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			settled, err := a.settlement.SettlePending(c.Context)
			fmt.Printf("Settled %d tournament(s)\n", settled)
			return err
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "issue a token for a collaborating service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "service", Usage: "name of the calling service", Required: true},
			&cli.DurationFlag{Name: "ttl", Usage: "token lifetime", Value: 24 * time.Hour},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			token, err := middleware.NewCollaboratorAuth(cfg.CollaboratorJWTSecret).IssueToken(c.String("service"), c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}
