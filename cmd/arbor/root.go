package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/spf13/cobra"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor serves declarative form UIs",
	Long: `Arbor rebuilds a form UI from a Definition and the session state on every
interaction, and keeps the browser in sync over HTTP (htmx + Alpine.js).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
		applyFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger, err = cli.NewLogger(cfg)
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, domain.ErrTimeoutExceeded) {
			fmt.Fprintln(os.Stderr, "No submission received before the timeout.")
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./arbor.yaml when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Log as JSON")
	rootCmd.PersistentFlags().String("store", "", "Session store: memory, file, redis or bolt")
	rootCmd.PersistentFlags().Bool("serialize", false, "Serialize requests of the same session")
}

// applyFlags overrides the loaded configuration with the flags the user set.
func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("json-logs") {
		cfg.JSONLogs, _ = flags.GetBool("json-logs")
	}
	if flags.Changed("store") {
		cfg.Store.Backend, _ = flags.GetString("store")
	}
	if flags.Changed("serialize") {
		cfg.Serialize, _ = flags.GetBool("serialize")
	}
	if f := flags.Lookup("port"); f != nil && f.Changed {
		cfg.Port, _ = flags.GetInt("port")
	}
	if f := flags.Lookup("host"); f != nil && f.Changed {
		cfg.Host, _ = flags.GetString("host")
	}
	if f := flags.Lookup("metrics"); f != nil && f.Changed {
		cfg.Metrics, _ = flags.GetBool("metrics")
	}
	if f := flags.Lookup("timeout"); f != nil && f.Changed {
		cfg.Timeout, _ = flags.GetDuration("timeout")
	}
	if f := flags.Lookup("redis-url"); f != nil && f.Changed {
		cfg.Store.URL, _ = flags.GetString("redis-url")
	}
}

func defFlag(cmd *cobra.Command, usage string) {
	cmd.Flags().StringP("def", "d", "", usage)
	_ = cmd.MarkFlagRequired("def")
}

func listenFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", config.Default().Port, "First port to try")
	cmd.Flags().String("host", config.Default().Host, "Interface to listen on")
}
