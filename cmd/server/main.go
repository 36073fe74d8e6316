package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"didledger/internal/app"
	"didledger/internal/platform/config"
	"didledger/internal/platform/httpserver"
	"didledger/internal/platform/kafka"
	"didledger/internal/platform/logger"
	"didledger/internal/platform/postgres"
	id "didledger/pkg/domain"
)

var Version = "dev"

func main() {
	cliApp := &cli.App{
		Name:  "didledger",
		Usage: "DID registry, credential status registry and audit log",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "HTTP listen address",
				EnvVars: []string{"DIDLEDGER_ADDR"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Postgres DSN; in-memory stores when empty",
				EnvVars: []string{"DIDLEDGER_DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the resolution cache",
				EnvVars: []string{"DIDLEDGER_REDIS_URL"},
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "comma-separated Kafka brokers for the audit stream",
				EnvVars: []string{"DIDLEDGER_KAFKA_BROKERS"},
			},
			&cli.StringFlag{
				Name:    "rabbitmq-url",
				Usage:   "AMQP URL for the audit exchange",
				EnvVars: []string{"DIDLEDGER_RABBITMQ_URL"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"DIDLEDGER_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				EnvVars: []string{"DIDLEDGER_LOG_FORMAT"},
			},
		},
		Commands: []*cli.Command{
			serve,
			migrate,
			token,
			verifyAudit,
		},
		ErrWriter: os.Stderr,
		Version:   Version,
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment, then applies flags given on the command
// line.
func loadConfig(cmd *cli.Context) config.Server {
	cfg := config.FromEnv()
	if cmd.IsSet("addr") {
		cfg.Addr = cmd.String("addr")
	}
	if cmd.IsSet("database-url") {
		cfg.Postgres.DSN = cmd.String("database-url")
	}
	if cmd.IsSet("redis-url") {
		cfg.Redis.URL = cmd.String("redis-url")
	}
	if cmd.IsSet("kafka-brokers") {
		cfg.Kafka.Brokers = kafka.ParseBrokers(cmd.String("kafka-brokers"))
	}
	if cmd.IsSet("rabbitmq-url") {
		cfg.RabbitMQ.URL = cmd.String("rabbitmq-url")
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		cfg.Log.Format = cmd.String("log-format")
	}
	return cfg
}

var serve = &cli.Command{
	Name:  "serve",
	Usage: "Start the HTTP API and audit fan-out",
	Action: func(cmd *cli.Context) error {
		cfg := loadConfig(cmd)
		log := logger.New(cfg.Log)

		ctx, stop := signal.NotifyContext(cmd.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.UsesDevSigningKey() {
			log.WarnContext(ctx, "using the development JWT signing key")
		}

		a, err := app.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				log.Error("shutdown released resources with errors", "error", err)
			}
		}()

		srv := httpserver.New(cfg.Addr, a.Router(), cfg.ReadHeaderTimeout)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.InfoContext(gctx, "starting didledger", "addr", cfg.Addr, "version", Version)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			return nil
		})
		return g.Wait()
	},
}

var migrate = &cli.Command{
	Name:  "migrate",
	Usage: "Apply the Postgres schema",
	Action: func(cmd *cli.Context) error {
		cfg := loadConfig(cmd)
		if cfg.Postgres.DSN == "" {
			return errors.New("migrate requires --database-url or DIDLEDGER_DATABASE_URL")
		}
		ctx, cancel := context.WithTimeout(cmd.Context, time.Minute)
		defer cancel()

		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		logger.New(cfg.Log).InfoContext(ctx, "schema applied")
		return nil
	},
}

var token = &cli.Command{
	Name:      "token",
	Usage:     "Issue a bearer token for a caller identity (development)",
	ArgsUsage: "<identity>",
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:  "ttl",
			Value: time.Hour,
		},
	},
	Action: func(cmd *cli.Context) error {
		caller, err := id.ParseIdentity(cmd.Args().First())
		if err != nil {
			return fmt.Errorf("identity: %w", err)
		}
		cfg := loadConfig(cmd)
		cfg.Postgres.DSN = ""
		cfg.Redis.URL = ""
		cfg.Kafka.Brokers = nil
		cfg.RabbitMQ.URL = ""

		a, err := app.New(cmd.Context, cfg, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		signed, err := a.Tokens.GenerateCallerToken(caller, cmd.Duration("ttl"))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.App.Writer, signed)
		return nil
	},
}

var verifyAudit = &cli.Command{
	Name:  "verify-audit",
	Usage: "Walk the audit log and check its hash chain",
	Action: func(cmd *cli.Context) error {
		cfg := loadConfig(cmd)
		if cfg.Postgres.DSN == "" {
			return errors.New("verify-audit requires --database-url or DIDLEDGER_DATABASE_URL")
		}
		cfg.Redis.URL = ""
		cfg.Kafka.Brokers = nil
		cfg.RabbitMQ.URL = ""

		a, err := app.New(cmd.Context, cfg, logger.New(cfg.Log))
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Audit.Verify(cmd.Context)
		if err != nil {
			return err
		}
		if !result.Valid {
			return fmt.Errorf("audit chain broken at sequence %d after %d entries: %s", *result.BrokenAt, result.Checked, result.Reason)
		}
		fmt.Fprintf(cmd.App.Writer, "audit chain valid: %d entries\n", result.Checked)
		return nil
	},
}
