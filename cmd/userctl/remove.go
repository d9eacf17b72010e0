package main

import (
	"fmt"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/store"
	"github.com/spf13/cobra"
)

func newRemoveCmd(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <email>",
		Aliases: []string{"rm"},
		Short:   "Delete a user record",
		Long: `Delete the user record for an email. A running server may still serve
the user from its warm cache until the entry expires.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := args[0]
			return withStore(cmd, open, func(s store.UserStore) error {
				removed, err := s.Remove(cmd.Context(), email)
				if err != nil {
					return err
				}
				if !removed {
					fmt.Fprintf(cmd.OutOrStdout(), "no user with email %s\n", email)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", email)
				return nil
			})
		},
	}
}
