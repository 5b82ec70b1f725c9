package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/monorkin/living-power/internal/devices"
	"github.com/monorkin/living-power/internal/globals"
	"github.com/monorkin/living-power/internal/ledger"
	"github.com/monorkin/living-power/internal/measurements"
	"github.com/monorkin/living-power/internal/models"
)

var importResistorOhms uint32

// collectionCmd represents the collection command
var collectionCmd = &cobra.Command{
	Use:     "collection",
	Aliases: []string{"c", "collections"},
	Short:   "Import and inspect measurement collections",
	Long:    `Commands for storing measurements and browsing the collections they were stored in.`,
}

var collectionImportCmd = &cobra.Command{
	Use:   "import <serial_number> <csv_file>",
	Short: "Import measurements from a CSV log",
	Long: `Import a CSV log written by the sensor firmware. Each row has the form

  YYYY-MM-DD,HH:MM:SS,temperature,humidity,lightlevel,voltage

Rows that cannot be parsed are reported and skipped. The device is registered
if it is not known yet.

Examples:
  living-power collection import ARDUINO-1 DATALOG.CSV --resistor 10000`,
	Args: cobra.ExactArgs(2),
	Run:  runCollectionImport,
}

var collectionListCmd = &cobra.Command{
	Use:     "list <serial_number>",
	Aliases: []string{"ls"},
	Short:   "List the collections of a device",
	Args:    cobra.ExactArgs(1),
	Run:     runCollectionList,
}

var collectionGetCmd = &cobra.Command{
	Use:   "get <collection_hash>",
	Short: "Show a collection as JSON",
	Args:  cobra.ExactArgs(1),
	Run:   runCollectionGet,
}

var collectionDeleteCmd = &cobra.Command{
	Use:   "delete <collection_hash>",
	Short: "Delete a collection",
	Long: `Unlink a collection from its device and mark it deleted. The collection can
still be fetched by hash afterwards.`,
	Args: cobra.ExactArgs(1),
	Run:  runCollectionDelete,
}

var collectionDeletedCmd = &cobra.Command{
	Use:   "deleted <serial_number>",
	Short: "List the deleted collections of a device",
	Args:  cobra.ExactArgs(1),
	Run:   runCollectionDeleted,
}

var collectionExportCmd = &cobra.Command{
	Use:   "export <serial_number>",
	Short: "Print every measurement of a device as JSON",
	Args:  cobra.ExactArgs(1),
	Run:   runCollectionExport,
}

func runCollectionImport(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	serialNumber, path := args[0], args[1]

	file, err := os.Open(path)
	if err != nil {
		fail("Failed to open CSV file", err, "path", path)
	}
	defer file.Close()

	parsed, lineErrors, err := measurements.ParseCSV(file)
	if err != nil {
		fail("Failed to read CSV file", err, "path", path)
	}
	for _, lineErr := range lineErrors {
		globals.Logger.Warn("Skipping measurement line", "line", lineErr.Line, "text", lineErr.Text, "error", lineErr.Err)
	}

	device, err := globals.Devices.Ensure(ctx, serialNumber)
	if err != nil {
		fail("Failed to register device", err, "serial", serialNumber)
	}

	resistorOhms := importResistorOhms
	if !cmd.Flags().Changed("resistor") {
		resistorOhms = globals.Settings.DefaultExternalResistorOhms
	}

	hashes, err := globals.Collections.Create(ctx, device, resistorOhms, parsed)
	for _, hash := range hashes {
		fmt.Println(hash)
	}
	if err != nil {
		fail("Failed to store measurements", err, "serial", serialNumber, "stored", len(hashes))
	}

	globals.Logger.Info("Import completed",
		"serial", serialNumber,
		"measurements", len(parsed),
		"skipped_lines", len(lineErrors),
		"collections", len(hashes),
	)
}

func runCollectionList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	serialNumber := args[0]

	links, err := globals.Collections.ListForDevice(ctx, devices.Resolve(serialNumber))
	if err != nil {
		fail("Failed to fetch collections", err, "serial", serialNumber)
	}

	if len(links) == 0 {
		fmt.Println("No collections found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "HASH\tMEASUREMENTS\tLINKED AT")
	fmt.Fprintln(w, "----\t------------\t---------")

	for _, link := range links {
		collection, _, err := globals.Collections.Get(ctx, link.Target)
		if err != nil {
			fail("Failed to fetch collection", err, "hash", link.Target)
		}

		count := 0
		if collection != nil {
			count = len(collection.Measurements)
		}

		fmt.Fprintf(w, "%s\t%d\t%s\n", link.Target, count, link.Timestamp.Time().Format(TIME_FORMAT))
	}
}

// collectionResponse is the JSON form of a collection.
type collectionResponse struct {
	Hash       ledger.Hash                  `json:"hash"`
	CreatedAt  string                       `json:"created_at"`
	DeletedAt  string                       `json:"deleted_at,omitempty"`
	Collection models.MeasurementCollection `json:"collection"`
}

func runCollectionGet(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	hash, err := ledger.ParseHash(args[0])
	if err != nil {
		fail("Invalid collection hash", err, "hash", args[0])
	}

	collection, record, err := globals.Collections.Get(ctx, hash)
	if err != nil {
		fail("Failed to fetch collection", err, "hash", hash)
	}
	if collection == nil {
		fmt.Fprintf(os.Stderr, "Error: Collection not found: %s\n", hash)
		os.Exit(1)
	}

	response := collectionResponse{
		Hash:       hash,
		CreatedAt:  record.CreatedAt.Time().Format(TIME_FORMAT),
		Collection: *collection,
	}

	deletion, err := globals.Collections.OldestDeletion(ctx, hash)
	if err != nil {
		fail("Failed to fetch deletions", err, "hash", hash)
	}
	if deletion != nil {
		response.DeletedAt = deletion.Timestamp.Time().Format(TIME_FORMAT)
	}

	printJSON(response)
}

func runCollectionDelete(cmd *cobra.Command, args []string) {
	hash, err := ledger.ParseHash(args[0])
	if err != nil {
		fail("Invalid collection hash", err, "hash", args[0])
	}

	deletionID, err := globals.Collections.Delete(context.Background(), hash)
	if err != nil {
		fail("Failed to delete collection", err, "hash", hash)
	}

	fmt.Println(deletionID)
}

func runCollectionDeleted(cmd *cobra.Command, args []string) {
	serialNumber := args[0]

	details, err := globals.Collections.ListDeletedForDevice(context.Background(), devices.Resolve(serialNumber))
	if err != nil {
		fail("Failed to fetch deleted collections", err, "serial", serialNumber)
	}

	if len(details) == 0 {
		fmt.Println("No deleted collections found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "HASH\tLINKED AT\tDELETED AT")
	fmt.Fprintln(w, "----\t---------\t----------")

	for _, detail := range details {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			detail.Link.Target,
			detail.Link.Timestamp.Time().Format(TIME_FORMAT),
			detail.Deletions[0].Timestamp.Time().Format(TIME_FORMAT),
		)
	}
}

func runCollectionExport(cmd *cobra.Command, args []string) {
	serialNumber := args[0]

	all, err := globals.Collections.Measurements(context.Background(), devices.Resolve(serialNumber))
	if err != nil {
		fail("Failed to fetch measurements", err, "serial", serialNumber)
	}

	printJSON(all)
}

func init() {
	rootCmd.AddCommand(collectionCmd)

	collectionCmd.AddCommand(collectionImportCmd)
	collectionCmd.AddCommand(collectionListCmd)
	collectionCmd.AddCommand(collectionGetCmd)
	collectionCmd.AddCommand(collectionDeleteCmd)
	collectionCmd.AddCommand(collectionDeletedCmd)
	collectionCmd.AddCommand(collectionExportCmd)

	collectionImportCmd.Flags().Uint32VarP(&importResistorOhms, "resistor", "r", 0, "External resistor in ohms (defaults to the settings value)")
}
