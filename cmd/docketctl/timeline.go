package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"writ_docket_go/config"
	"writ_docket_go/db"
	"writ_docket_go/services"
)

func timelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <case-number>",
		Short: "Print the finalized proceedings of a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(cfg *config.Config) error {
				c, err := services.FindCaseByNumber(db.DB, operator, args[0])
				if err != nil {
					return fmt.Errorf("case %s: %w", args[0], err)
				}
				_, rows, err := services.CaseTimeline(db.DB, operator, c.ID)
				if err != nil {
					return err
				}

				if viper.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), rows)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s  %s  %s  %s\n", c.CaseNumber, c.BranchName, c.PetitionerName, c.Status)

				tw := table.NewWriter()
				tw.SetOutputMirror(out)
				header := table.Row{}
				for _, h := range services.TimelineHeaders {
					header = append(header, h)
				}
				tw.AppendHeader(header)
				for _, r := range rows {
					tw.AppendRow(table.Row(r.Values()))
				}
				tw.SetStyle(table.StyleLight)
				tw.Render()
				return nil
			})
		},
	}
}
