package main

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/models"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/store"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

func newListCmd(open storeOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all users, oldest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput, _ := cmd.Flags().GetBool("json")
			return withStore(cmd, open, func(s store.UserStore) error {
				users, err := s.List(cmd.Context())
				if err != nil {
					return err
				}
				sort.Slice(users, func(i, j int) bool {
					if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
						return users[i].CreatedAt.Before(users[j].CreatedAt)
					}
					// UUIDv7 ids sort by creation time
					return users[i].ID < users[j].ID
				})
				if jsonOutput {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(users)
				}
				return renderUsers(cmd, users)
			})
		},
	}
	cmd.Flags().Bool("json", false, "output as JSON")
	return cmd
}

func renderUsers(cmd *cobra.Command, users []models.User) error {
	table := tablewriter.NewTable(cmd.OutOrStdout(),
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)

	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{u.Email, u.ID, u.CreatedAt.UTC().Format(time.RFC3339)})
	}

	table.Header([]string{"EMAIL", "ID", "CREATED"})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
