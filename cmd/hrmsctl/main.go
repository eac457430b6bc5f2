package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/odyssey-hrms/cmd/hrmsctl/cli"
	"github.com/odyssey-erp/odyssey-hrms/internal/app"
	"github.com/odyssey-erp/odyssey-hrms/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-hrms/internal/platform/db"
)

const usage = `usage: hrmsctl <command> [flags]

commands:
  migrate up|down|version     apply or inspect schema migrations
  consolidate-roles           fold legacy roles into the system roles
  snapshot                    enqueue a governance health snapshot
  queue                       show background queue statistics
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	var code int
	switch os.Args[1] {
	case "migrate":
		code = runMigrate(cfg, os.Args[2:])
	case "consolidate-roles":
		code = runConsolidate(ctx, cfg, logger, os.Args[2:])
	case "snapshot":
		code = runSnapshot(ctx, cfg, os.Args[2:])
	case "queue":
		code = runQueue(ctx, cfg, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		code = 2
	}
	stop()
	os.Exit(code)
}

func runMigrate(cfg *app.Config, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "migrate: expected up, down or version")
		return 2
	}
	if args[0] == "version" {
		version, dirty, err := db.MigrationVersion(cfg.PGDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			return 1
		}
		fmt.Printf("version %d (dirty=%t)\n", version, dirty)
		return 0
	}
	if err := db.Migrate(cfg.PGDSN, args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		return 1
	}
	fmt.Printf("migrate %s: ok\n", args[0])
	return 0
}

func runConsolidate(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("consolidate-roles", flag.ContinueOnError)
	actor := fs.Int64("actor", 0, "user id recorded as the actor in the audit log")
	dryRun := fs.Bool("dry-run", false, "report what would change without writing")
	jsonOut := fs.Bool("json", false, "print machine readable output")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	pool, err := db.New(ctx, cfg.Postgres())
	if err != nil {
		fmt.Fprintf(os.Stderr, "consolidate-roles: %v\n", err)
		return 1
	}
	defer pool.Close()
	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		fmt.Fprintf(os.Stderr, "consolidate-roles: %v\n", err)
		return 1
	}
	defer redisClient.Close()

	services := app.NewServices(cfg, logger, pool, redisClient, nil)
	return cli.ConsolidateCommand(ctx, services.Roles, cli.ConsolidateOptions{
		ActorID:    *actor,
		DryRun:     *dryRun,
		JSONOutput: *jsonOut,
	})
}

func runSnapshot(ctx context.Context, cfg *app.Config, args []string) int {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	reason := fs.String("reason", "manual", "reason recorded with the task")
	jsonOut := fs.Bool("json", false, "print machine readable output")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	jobsCLI, err := cli.NewJobsCLI(cfg.AsynqRedis())
	if err != nil {
		fmt.Fprintf(os.Stderr, "snapshot: %v\n", err)
		return 1
	}
	defer jobsCLI.Close()
	return cli.SnapshotCommand(ctx, jobsCLI, cli.SnapshotOptions{Reason: *reason, JSONOutput: *jsonOut})
}

func runQueue(ctx context.Context, cfg *app.Config, args []string) int {
	fs := flag.NewFlagSet("queue", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print machine readable output")
	scheduled := fs.Int("scheduled", 0, "also list up to N scheduled tasks")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	jobsCLI, err := cli.NewJobsCLI(cfg.AsynqRedis())
	if err != nil {
		fmt.Fprintf(os.Stderr, "queue: %v\n", err)
		return 1
	}
	defer jobsCLI.Close()
	if code := cli.QueueCommand(ctx, jobsCLI, *jsonOut, os.Stdout, os.Stderr); code != 0 {
		return code
	}
	if *scheduled > 0 {
		tasks, err := jobsCLI.ListScheduled(ctx, *scheduled)
		if err != nil {
			fmt.Fprintf(os.Stderr, "queue: %v\n", err)
			return 1
		}
		for _, task := range tasks {
			fmt.Printf(" - %s %s at %s\n", task.ID, task.Type, task.NextProcessAt.UTC().Format("2006-01-02T15:04:05Z"))
		}
	}
	return 0
}
