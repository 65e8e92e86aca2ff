package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"writ_docket_go/config"
	"writ_docket_go/services"
)

func branchesCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "branches",
		Short: "Validate and list the branch directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = config.Load().BranchesFile
			}
			dir, err := services.LoadBranchDirectory(file)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			if dir == nil {
				return fmt.Errorf("%s: %w", file, os.ErrNotExist)
			}

			if viper.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), dir.List())
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Name", "District", "Code"})
			for _, b := range dir.List() {
				tw.AppendRow(table.Row{b.Name, b.District, b.Code})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "branch directory (defaults to BRANCHES_FILE)")
	return cmd
}
