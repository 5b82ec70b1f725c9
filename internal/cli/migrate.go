package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/monorkin/living-power/internal/globals"
	"github.com/monorkin/living-power/internal/migration"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [legacy_db]",
	Short: "Copy devices and collections from a previous ledger",
	Long: `Copy every device, its latest metadata and all of its active collections
from the ledger of a previous release. Collections that are already present are
skipped, so an interrupted migration can simply be run again.

Without an argument the legacy ledger path from the settings is used.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) {
	legacyPath := globals.Settings.ResolvedLegacyDBPath()
	if len(args) == 1 {
		legacyPath = args[0]
	}

	source, err := migration.OpenLedgerSource(legacyPath)
	if err != nil {
		fail("Failed to open legacy ledger", err, "path", legacyPath)
	}
	defer source.Close()

	globals.Logger.Info("Migrating", "from", legacyPath)

	report, err := globals.Migration.Run(context.Background(), source)
	if err != nil {
		printJSON(report)
		fail("Migration failed", err, "path", legacyPath)
	}

	printJSON(report)
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
