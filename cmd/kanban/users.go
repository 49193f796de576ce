package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// usersCmd groups the board member commands.
func usersCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage board members",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Replace board members with the repository contributors",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.board.Users.RefreshFromGitHub(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d users loaded\n", n)
			return nil
		},
	})
	return cmd
}
