package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"incident-dashboard/internal/db"
	"incident-dashboard/internal/repository"
)

var seedReset bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the demo cameras and incidents",
	RunE: func(cmd *cobra.Command, args []string) error {
		gdb, err := db.Open(cmd.Context(), cfg.Database, appLog)
		if err != nil {
			return err
		}
		defer db.Close(gdb)

		if err := db.Migrate(gdb); err != nil {
			return err
		}

		res, err := db.Seed(cmd.Context(), repository.NewIncidentRepository(gdb), time.Now(), seedReset, appLog)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d cameras and %d incidents (%d incidents stored).\n",
			res.Cameras, res.Incidents, res.Total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().BoolVar(&seedReset, "reset", false, "delete existing incidents and cameras first")
}
