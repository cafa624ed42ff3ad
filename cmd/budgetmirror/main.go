package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"budgetmirror/internal/config"
	"budgetmirror/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// env is the per-run state built by the Before hook. The logger travels in
// the command context instead.
type env struct {
	cfg     *config.Config
	cfgPath string
}

const envKey = "env"

// envFrom finds the env stored by setup; subcommands walk up to the root app
func envFrom(c *cli.Context) *env {
	for _, ctx := range c.Lineage() {
		if ctx.App == nil {
			continue
		}
		if e, ok := ctx.App.Metadata[envKey].(*env); ok {
			return e
		}
	}
	panic("budgetmirror: command ran without setup")
}

func newApp() *cli.App {
	budgetFlag := &cli.StringFlag{
		Name:    "budget",
		Aliases: []string{"b"},
		Usage:   "Budget ID (may be omitted when the mirror holds a single budget)",
	}

	return &cli.App{
		Name:  "budgetmirror",
		Usage: "Mirror a YNAB budget into a local SQLite database and browse it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (default: search $" + config.EnvConfigPath + ", ./" + config.ConfigFileName + ", XDG dirs)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error); overrides log.level",
			},
		},
		Before:   setup,
		Metadata: map[string]interface{}{},
		Commands: []*cli.Command{
			{
				Name:   "sync",
				Usage:  "Fetch listings and upsert them into the mirror",
				Action: syncCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "budget",
						Aliases: []string{"b"},
						Usage:   "Only sync this budget's listings",
					},
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Ignore cached responses",
					},
				},
			},
			{
				Name:   "resync",
				Usage:  "Wipe the mirror and rebuild it from the remote listings",
				Action: resyncCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Ignore cached responses"},
				},
			},
			{
				Name:   "watch",
				Usage:  "Sync now and again every interval until interrupted",
				Action: watchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "budget",
						Aliases: []string{"b"},
						Usage:   "Only sync this budget's listings",
					},
					&cli.DurationFlag{
						Name:    "interval",
						Aliases: []string{"i"},
						Usage:   "Time between syncs (default: cache.refresh)",
					},
					&cli.IntFlag{
						Name:  "max-failures",
						Usage: "Stop after N consecutive failed syncs (0 = never)",
						Value: 5,
					},
				},
			},
			{
				Name:   "reset",
				Usage:  "Wipe every mirrored row",
				Action: resetCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Usage: "Confirm the reset"},
				},
			},
			{
				Name:   "budgets",
				Usage:  "List mirrored budgets",
				Action: budgetsCommand,
			},
			{
				Name:   "accounts",
				Usage:  "List a budget's accounts",
				Action: accountsCommand,
				Flags: []cli.Flag{
					budgetFlag,
					&cli.BoolFlag{Name: "all", Usage: "Include closed and deleted accounts"},
				},
			},
			{
				Name:   "categories",
				Usage:  "List a budget's categories by group",
				Action: categoriesCommand,
				Flags: []cli.Flag{
					budgetFlag,
					&cli.BoolFlag{Name: "all", Usage: "Include hidden and deleted categories"},
				},
			},
			{
				Name:   "transactions",
				Usage:  "List a budget's transactions, newest first",
				Action: transactionsCommand,
				Flags: []cli.Flag{
					budgetFlag,
					&cli.StringFlag{
						Name:    "where",
						Aliases: []string{"w"},
						Usage:   "Filter such as 'amount<-1000,payee_name~coffee,memo=null'",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: table, json, yaml or csv",
						Value: "table",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Show at most N transactions (0 = all)",
					},
					&cli.BoolFlag{Name: "include-deleted", Usage: "Include deleted transactions"},
				},
			},
			{
				Name:  "cache",
				Usage: "Inspect the response cache",
				Subcommands: []*cli.Command{
					{
						Name:   "stats",
						Usage:  "Show cached endpoints and their age",
						Action: cacheStatsCommand,
					},
					{
						Name:   "clear",
						Usage:  "Drop every cached response",
						Action: cacheClearCommand,
					},
				},
			},
			{
				Name:  "config",
				Usage: "Inspect configuration",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Print the effective configuration (token redacted)",
						Action: configShowCommand,
					},
				},
			},
		},
	}
}

// setup loads the config and builds the logger before any command runs
func setup(c *cli.Context) error {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if explicit := c.String("config"); explicit != "" {
		cfg, path, err = config.LoadFromPath(explicit)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	levelName := cfg.Log.Level
	if flagLevel := c.String("log-level"); flagLevel != "" {
		levelName = flagLevel
	}
	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return err
	}

	out := c.App.ErrWriter
	if out == nil {
		out = os.Stderr
	}
	log := logger.NewConsole(out).Level(level)
	if path != "" {
		log.Debug().Str("path", path).Msg("config loaded")
	} else {
		log.Debug().Msg("no config file found, using defaults")
	}

	c.Context = logger.WithContext(c.Context, log)
	c.App.Metadata[envKey] = &env{cfg: cfg, cfgPath: path}
	return nil
}
