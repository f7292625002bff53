package main

import (
	"context"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a definition (or a directory of them) over HTTP",
	Long: `Serves one definition file at /, or every definition of a directory under
/apps/{name}/ on a single listener. Stops gracefully on SIGINT/SIGTERM.

A directory host also accepts definitions from other processes:
"arbor serve --def form.yaml --attach http://127.0.0.1:8080" mounts form.yaml
on that host and exits. It fails with "service unavailable" when no host answers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		def, _ := cmd.Flags().GetString("def")

		if attach, _ := cmd.Flags().GetString("attach"); attach != "" {
			return cli.Attach(cmd.Context(), cli.AttachOptions{Host: attach, Def: def, Out: cmd.OutOrStdout()})
		}

		tui.PrintBanner()

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		return cli.Serve(ctx, cfg, cli.ServeOptions{Def: def, Out: cmd.OutOrStdout()}, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	defFlag(serveCmd, "Definition file or directory")
	listenFlags(serveCmd)
	serveCmd.Flags().Bool("metrics", false, "Expose Prometheus metrics at /metrics")
	serveCmd.Flags().String("redis-url", "", "Redis URL for --store redis")
	serveCmd.Flags().String("attach", "", "Mount the definition on the running host at this URL instead of listening")
}
