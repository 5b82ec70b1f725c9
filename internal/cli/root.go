package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/monorkin/living-power/internal/config"
	"github.com/monorkin/living-power/internal/globals"
)

var (
	verbose bool
	dbPath  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "living-power",
	Short: "Measurement ledger for bio-photovoltaic devices",
	Long: `Stores measurements collected from bio-photovoltaic (BPV) devices in an
append-only local ledger.

Measurements are imported in batches, split into collections small enough to be
stored as single records, and linked to the device that produced them.
Collections are never changed once written; deleting one only hides it from
listings.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Annotations["skip_init"] == "true" {
			return
		}
		initializeApp()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", fmt.Sprintf("Path to the ledger database (default $%s or the data dir)", config.DB_PATH_ENV))
}

// initializeApp initializes settings and the ledger for CLI commands
func initializeApp() {
	if dbPath != "" {
		config.SetDBPath(dbPath)
	}

	if err := globals.Initialize(verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// fail logs err and terminates the command.
func fail(message string, err error, attrs ...any) {
	globals.Logger.Error(message, append(attrs, "error", err)...)
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, err)
	os.Exit(1)
}

func printJSON(value any) {
	output, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		fail("Failed to format response", err)
	}

	fmt.Println(string(output))
}
