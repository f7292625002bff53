package main

import (
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Build a definition once and print the tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		def, _ := cmd.Flags().GetString("def")
		state, _ := cmd.Flags().GetString("state")
		format, _ := cmd.Flags().GetString("format")

		return cli.Tree(cli.TreeOptions{
			Def:    def,
			State:  state,
			Format: format,
			Out:    cmd.OutOrStdout(),
			Styled: tui.IsTerminal(os.Stdout),
		})
	},
}

func init() {
	rootCmd.AddCommand(treeCmd)
	defFlag(treeCmd, "Definition file")
	treeCmd.Flags().String("state", "", "JSON file with the state to build against")
	treeCmd.Flags().StringP("format", "f", cli.FormatMarkdown, "Output format: md, json, html, mermaid or schema")
}
