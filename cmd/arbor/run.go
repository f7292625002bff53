package main

import (
	"context"
	"time"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect one submission and print it as JSON",
	Long: `Serves the definition until the form is submitted once, prints the captured
state to stdout and exits. Exits with status 1 when --timeout elapses first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		def, _ := cmd.Flags().GetString("def")

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		return cli.RunOnce(ctx, cfg, cli.RunOptions{
			Def:    def,
			Out:    cmd.OutOrStdout(),
			Notice: cmd.ErrOrStderr(),
		}, logger)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	defFlag(runCmd, "Definition file")
	listenFlags(runCmd)
	runCmd.Flags().Duration("timeout", 5*time.Minute, "Give up when nothing is submitted in time")
}
