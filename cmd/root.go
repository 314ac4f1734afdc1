package cmd

import (
	"fmt"
	"os"

	"monochrome/config"
	"monochrome/services"
	"monochrome/storage"

	"github.com/spf13/cobra"
)

// Version information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// app holds the dependencies shared by every command
type app struct {
	cfg     config.Config
	store   storage.KV
	tracker services.Tracker
}

// newApp loads the configuration and opens the history store
func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Storage.Backend, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}

	return &app{
		cfg:     cfg,
		store:   store,
		tracker: services.NewTracker(store),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// Execute runs the root command
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:               "monochrome",
		Short:             "Track downloads and manage a local music library",
		Version:           fmt.Sprintf("%s (built %s)", Version, BuildTime),
		SilenceErrors:     true,
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default $MONOCHROME_CONFIG or <data dir>/config.yaml)")

	// withApp opens the shared dependencies for the duration of a command
	withApp := func(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return run(cmd, args, a)
		}
	}

	root.AddCommand(newServeCommand(withApp))
	root.AddCommand(newScanCommand(withApp))
	root.AddCommand(newReadCommand(withApp))
	root.AddCommand(newSaveCommand(withApp))
	root.AddCommand(newHistoryCommand(withApp))

	return root
}

type appRunner func(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error
