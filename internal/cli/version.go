package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/monorkin/living-power/internal/database"
	"github.com/monorkin/living-power/internal/version"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the version",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{"skip_init": "true"},
	Run: func(cmd *cobra.Command, args []string) {
		schemaVersion, err := database.LatestSchemaVersion()
		if err != nil {
			fmt.Printf("living-power %s\n", version.GetVersion())
			return
		}

		fmt.Printf("living-power %s (ledger schema %d)\n", version.GetVersion(), schemaVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
