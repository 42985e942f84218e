// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bpowers/sycoca"
)

// env holds what every subcommand needs once flags are parsed.
type env struct {
	configFile string
	cfg        *Config
	logger     *slog.Logger
	logCloser  io.Closer
}

// NewRootCmd returns the sycoca command tree.
func NewRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "sycoca",
		Short:         "Build and inspect the system configuration cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(e.configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			e.cfg = cfg
			e.logger, e.logCloser = newLogger(cfg.Log, cmd.ErrOrStderr())
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if e.logCloser != nil {
				return e.logCloser.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&e.configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/sycoca/sycoca.yaml)")

	root.AddCommand(
		newBuildCmd(e),
		newInfoCmd(e),
		newLookupCmd(e),
		newListCmd(e),
		newOffersCmd(e),
		newMenuCmd(e),
	)
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sycoca:", err)
		os.Exit(1)
	}
}

// openDatabase opens the configured database.  A missing or outdated
// database is rebuilt by running this executable's build command.
func (e *env) openDatabase() (*sycoca.Database, error) {
	opts := []sycoca.Option{
		sycoca.WithLogger(e.logger),
		sycoca.WithPath(e.cfg.Database.Path),
		sycoca.WithGlobalPath(e.cfg.Database.GlobalPath),
		sycoca.WithRebuildTimeout(e.cfg.Database.RebuildTimeout),
		sycoca.WithEntryCacheSize(e.cfg.Database.EntryCacheSize),
		sycoca.WithInvoker(e.invoker()),
	}
	// empty leaves the choice to $SYCOCA_STRATEGY
	if strategy, ok := sycoca.ParseStrategy(e.cfg.Database.Strategy); ok {
		opts = append(opts, sycoca.WithStrategy(strategy))
	}
	return sycoca.Open(opts...)
}

func (e *env) invoker() sycoca.BuilderInvoker {
	exe, err := os.Executable()
	if err != nil {
		e.logger.Warn("can't locate executable, rebuilding with sycoca from $PATH", "err", err)
		return sycoca.DefaultInvoker()
	}
	args := []string{"build"}
	if e.configFile != "" {
		args = append(args, "--config", e.configFile)
	}
	return &sycoca.ExecInvoker{Command: exe, Args: args}
}
