package main

import (
	"context"
	"io"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/config"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/store"
	"github.com/spf13/cobra"
)

type storeOpener func(ctx context.Context, cfg *config.Config) (store.UserStore, error)

func newRootCmd(open storeOpener, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "userctl",
		Short: "Inspect and maintain sonar-webapp users",
		Long: `userctl works directly on the user store selected by STORE_DRIVER.

Example usage:
  userctl list                 # Table of all users
  userctl list --json          # Same, as JSON
  userctl remove a@x.com       # Delete one user`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(newListCmd(open), newRemoveCmd(open))
	return root
}

// withStore opens the configured store for the duration of fn.
func withStore(cmd *cobra.Command, open storeOpener, fn func(store.UserStore) error) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	s, err := open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
