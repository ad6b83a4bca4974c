package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pisshoff/pisshoff/internal/audit"
	"github.com/pisshoff/pisshoff/internal/config"
	"github.com/pisshoff/pisshoff/internal/logger"
	"github.com/pisshoff/pisshoff/internal/sshd"
	"github.com/pisshoff/pisshoff/internal/state"
)

func main() {
	root := &cobra.Command{
		Use:   "pisshoffd",
		Short: "an SSH honeypot that logs every attacker interaction",
		RunE:  run,
	}

	root.Flags().StringP("config", "c", "", "path to the TOML configuration file (env CONFIG)")
	root.Flags().CountP("verbose", "v", "increase log verbosity (repeatable: -v, -vv, -vvv)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = os.Getenv("CONFIG")
	}
	if configPath == "" {
		return fmt.Errorf("--config is required (or set the CONFIG environment variable)")
	}

	verbosity, _ := cmd.Flags().GetCount("verbose")

	if err := logger.Init(verbosity, ""); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	hostKey, err := sshd.GenerateHostKey()
	if err != nil {
		return fmt.Errorf("generate host key: %w", err)
	}

	auditWriter := audit.NewWriter(cfg.AuditOutputFile)
	passwords := state.NewStoredPasswords()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "pisshoff"
	}

	server := sshd.New(sshd.Config{
		ListenAddress:     cfg.ListenAddress,
		ServerID:          cfg.ServerID,
		AccessProbability: cfg.AccessProbability,
	}, hostKey, passwords, auditWriter, hostname)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reloadCh := make(chan os.Signal, 1)
	signal.Notify(reloadCh, syscall.SIGHUP)
	go func() {
		for range reloadCh {
			logger.Info("received SIGHUP, reloading audit output file")
			auditWriter.Reload()
		}
	}()

	errCh := make(chan error, 2)
	go func() {
		errCh <- auditWriter.Run()
	}()
	go func() {
		errCh <- server.ListenAndServe(ctx)
	}()

	logger.Info("pisshoffd started", "listen-address", cfg.ListenAddress, "audit-output-file", cfg.AuditOutputFile)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		auditWriter.Shutdown()
		return nil
	case err := <-errCh:
		stop()
		auditWriter.Shutdown()
		if err != nil {
			return fmt.Errorf("daemon error: %w", err)
		}
		return nil
	}
}
