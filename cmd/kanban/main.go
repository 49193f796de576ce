package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

// rootFlags are the flags shared by every command.
type rootFlags struct {
	configPath string
	addr       string
	dbPath     string
}

func main() {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:     "kanban",
		Short:   "Kanban board backend with sprint tracking and GitHub pull request sync",
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Optional YAML config file")
	rootCmd.PersistentFlags().StringVar(&flags.addr, "addr", "", "HTTP listen address (overrides KANBAN_ADDR)")
	rootCmd.PersistentFlags().StringVar(&flags.dbPath, "db", "", "Path to sqlite database file (overrides KANBAN_DB_PATH)")

	rootCmd.AddCommand(serveCmd(flags))
	rootCmd.AddCommand(syncCmd(flags))
	rootCmd.AddCommand(usersCmd(flags))
	rootCmd.AddCommand(resetCmd(flags))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
