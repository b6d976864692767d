package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	batchcmd "github.com/aquatel/hydronet-go/cmd/batch"
	"github.com/aquatel/hydronet-go/cmd/relations"
	"github.com/aquatel/hydronet-go/cmd/reprocess"
	"github.com/aquatel/hydronet-go/cmd/serve"
	"github.com/aquatel/hydronet-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hydronet",
		Short: "HydroNet-Go telemetry anomaly engine CLI",
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		batchcmd.Command(settings),
		reprocess.Command(settings),
		relations.Command(settings),
		serve.Command(settings),
	)

	return rootCmd
}

// setupFlags configures the global flags for the root command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	cmd.PersistentFlags().IntVar(&settings.Engine.Workers, "workers", viper.GetInt("engine.workers"), "Concurrent point workers for a batch run")

	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		cobra.CheckErr(err)
	}
}
