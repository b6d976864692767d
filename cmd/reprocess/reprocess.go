package reprocess

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aquatel/hydronet-go/internal/authz"
	"github.com/aquatel/hydronet-go/internal/conf"
	"github.com/aquatel/hydronet-go/internal/engine"
)

// Command creates the reprocess command, which reruns the pipeline for a
// single measurement point.
func Command(settings *conf.Settings) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "reprocess [point-id]",
		Short: "Reprocess a single measurement point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pointID, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid point id %q: %w", args[0], err)
			}
			if date == "" {
				return fmt.Errorf("--date is required")
			}

			eng, err := engine.Bootstrap(settings, authz.AllowAll{})
			if err != nil {
				return err
			}
			defer eng.Close()

			result, err := eng.Orchestrator.ReprocessPoint(cmd.Context(), uint(pointID), date)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&date, "date", viper.GetString("reprocess.date"), "Reference date (YYYY-MM-DD)")
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}
