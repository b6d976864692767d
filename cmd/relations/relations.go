package relations

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aquatel/hydronet-go/internal/authz"
	"github.com/aquatel/hydronet-go/internal/conf"
	"github.com/aquatel/hydronet-go/internal/engine"
)

// Command creates the relations command group for the derived ML relation
// table.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relations",
		Short: "Inspect and synchronize the derived ML relation table",
	}

	cmd.AddCommand(checkCommand(settings), applyCommand(settings))
	return cmd
}

// checkCommand derives the relations from the topology and prints the diff
// against the persisted table without touching it.
func checkCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Show the diff between topology-derived and persisted relations",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := engine.Bootstrap(settings, authz.AllowAll{})
			if err != nil {
				return err
			}
			defer eng.Close()

			diff, err := eng.Deriver.Check()
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(diff)
		},
	}
}

// applyCommand recomputes the diff and persists it. The apply is an explicit
// operator action; topology edits never trigger it on their own.
func applyCommand(settings *conf.Settings) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the derived relation diff to the persisted table",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := engine.Bootstrap(settings, authz.AllowAll{})
			if err != nil {
				return err
			}
			defer eng.Close()

			diff, err := eng.Deriver.Check()
			if err != nil {
				return err
			}
			if len(diff.ToAdd) == 0 && len(diff.ToRemove) == 0 {
				fmt.Println("relation table already in sync")
				return nil
			}
			if !yes {
				fmt.Printf("would add %d and remove %d relations; rerun with --yes to apply\n",
					len(diff.ToAdd), len(diff.ToRemove))
				return nil
			}

			if err := eng.Deriver.Apply(cmd.Context(), diff); err != nil {
				return err
			}
			fmt.Printf("applied: %d added, %d removed\n", len(diff.ToAdd), len(diff.ToRemove))
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Apply without confirmation prompt")
	return cmd
}
