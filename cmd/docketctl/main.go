package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"writ_docket_go/config"
	"writ_docket_go/db"
	"writ_docket_go/services"
)

// operator is the identity the CLI reads cases as
var operator = services.Caller{Email: "docketctl@localhost", Role: services.RoleAdmin}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "docketctl",
		Short:         "Operator tool for the writ docket",
		Long:          `Runs migrations, issues access tokens and inspects case timelines and branches.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	rootCmd.AddCommand(migrateCmd(), tokenCmd(), timelineCmd(), branchesCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("docketctl failed")
		os.Exit(1)
	}
}

// withDatabase loads the configuration and opens the database for fn. An
// already open db.DB is reused and left open.
func withDatabase(fn func(cfg *config.Config) error) error {
	cfg := config.Load()
	config.SetupLogger(cfg)

	if db.DB == nil {
		if err := db.Initialize(cfg); err != nil {
			return err
		}
		defer func() {
			db.Close()
			db.DB = nil
		}()
	}
	return fn(cfg)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
