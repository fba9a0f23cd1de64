package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dimitrije/teamsync-api/internal/config"
	"github.com/dimitrije/teamsync-api/internal/database"
	"github.com/dimitrije/teamsync-api/internal/logger"
	"github.com/dimitrije/teamsync-api/internal/services"
	"go.uber.org/zap"
)

type options struct {
	purge bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	fs.BoolVar(&opts.purge, "purge", false, "also delete terminal connection requests past retention")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logr := logger.New(cfg.Env, cfg.LogLevel, "reconcile")
	defer func() { _ = logr.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	guard := services.NewOwnershipGuard(db, logr)
	reports, err := guard.ReconcileAll(ctx)
	if err != nil {
		logr.Error("some teams could not be reconciled", zap.Error(err))
	}

	for _, r := range reports {
		for _, a := range r.Actions {
			fmt.Printf("team %s: %s %s\n", r.TeamID, a.Kind, a.UserID)
		}
	}
	fmt.Printf("Repaired %d teams\n", len(reports))

	if opts.purge {
		cutoff := time.Now().Add(-cfg.RequestRetention)
		n, err := services.NewConnectionService(db, logr).PurgeTerminalRequests(ctx, cutoff)
		if err != nil {
			logr.Fatal("failed to purge connection requests", zap.Error(err))
		}
		fmt.Printf("Purged %d terminal connection requests older than %s\n", n, cutoff.Format(time.RFC3339))
	}
}
