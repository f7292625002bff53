package main

import (
	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persisted sessions",
	Long:  `List, inspect, and remove sessions in the configured store (file, bolt or redis).`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(cmd, func(s *cli.Sessions) error {
			return s.List(cmd.Context())
		})
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Print the state of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(cmd, func(s *cli.Sessions) error {
			return s.Inspect(cmd.Context(), args[0])
		})
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(cmd, func(s *cli.Sessions) error {
			return s.Remove(cmd.Context(), args...)
		})
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	sessionCmd.PersistentFlags().String("app", "", "Hosted app whose sessions to manage")
}

func withSessions(cmd *cobra.Command, fn func(*cli.Sessions) error) error {
	f, err := cli.NewFactory(cfg, logger)
	if err != nil {
		return err
	}
	defer f.Close()

	app, _ := cmd.Flags().GetString("app")
	return fn(cli.NewSessions(f, app, cmd.OutOrStdout()))
}
