package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"stint/pkg/daemon"
	"stint/pkg/dispatch"
	"stint/pkg/engine"
)

// newDaemonCmd creates the "stint daemon" subcommand, which runs the
// coordination daemon in the foreground until SIGTERM/SIGINT.
func newDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the stint daemon in the foreground",
		Long:  "Binds the unix socket, initializes the state database, and serves\nrequests until SIGTERM or SIGINT. Shutdown drains queued requests first.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd)
		},
	}
}

func runDaemon(cmd *cobra.Command) error {
	paths, err := ResolvePaths()
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}

	fileCfg, err := LoadConfig(paths.ConfigPath)
	if err != nil {
		return err
	}
	fileCfg.apply(paths)

	drainTimeout, err := fileCfg.drainTimeout(0)
	if err != nil {
		return err
	}

	for _, dir := range []string{paths.StintHome, paths.DehydrationsDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	status, pid, err := DaemonStatus(paths.PIDPath)
	if err != nil {
		return err
	}
	switch status {
	case StatusRunning:
		return fmt.Errorf("daemon already running (PID %d)", pid)
	case StatusStale:
		log.Printf("removing stale PID file (process %d is dead)", pid)
		if err := RemovePIDFile(paths.PIDPath); err != nil {
			return err
		}
	case StatusStopped:
	}

	db, err := openDB(paths.StateDBPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	registry := dispatch.NewRegistry()
	registry.Use(dispatch.Buffered())
	registry.Use(dispatch.Transaction(db))
	engine.RegisterAll(registry, engine.Config{DehydrationDir: paths.DehydrationsDir})

	if err := WritePIDFile(paths.PIDPath, os.Getpid()); err != nil {
		return err
	}

	ctx, cleanup := SetupSignalHandler(cmd.Context(), paths.PIDPath)
	defer cleanup()

	srv := daemon.New(daemon.Config{
		SocketPath:   paths.SocketPath,
		DrainTimeout: drainTimeout,
	}, db, registry)

	log.Printf("stint daemon listening on %s (PID %d)", paths.SocketPath, os.Getpid())
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	log.Printf("stint daemon stopped")
	return nil
}
