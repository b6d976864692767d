package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aquatel/hydronet-go/internal/authz"
	"github.com/aquatel/hydronet-go/internal/conf"
	"github.com/aquatel/hydronet-go/internal/datastore"
	"github.com/aquatel/hydronet-go/internal/engine"
)

// Command creates the batch command, which runs the detection pipeline for
// every active point on a reference date.
func Command(settings *conf.Settings) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run the detection batch for a reference date",
		Long:  "Process every active measurement point for the given date and upsert the resulting treatment pendencies.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" {
				date = time.Now().AddDate(0, 0, -1).Format(datastore.DateFormat)
			}

			eng, err := engine.Bootstrap(settings, authz.AllowAll{})
			if err != nil {
				return err
			}
			defer eng.Close()

			result, err := eng.Orchestrator.ExecuteBatch(cmd.Context(), date)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&date, "date", viper.GetString("batch.date"), "Reference date (YYYY-MM-DD), defaults to yesterday")
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}
