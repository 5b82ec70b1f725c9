package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/monorkin/living-power/internal/globals"
	"github.com/monorkin/living-power/internal/ledger"
	"github.com/monorkin/living-power/internal/models"
)

const TIME_FORMAT = "2006-01-02T15:04:05Z07:00"

var (
	deviceName   string
	resistorFrom string
	resistorTo   string
)

// deviceCmd represents the device command
var deviceCmd = &cobra.Command{
	Use:     "device",
	Aliases: []string{"d", "devices"},
	Short:   "Manage and list devices",
	Long:    `Commands for registering devices and inspecting their metadata.`,
}

var deviceListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all registered devices",
	Long:    `List all registered devices with their serial number, name and identity hash.`,
	Run:     runDeviceList,
}

var deviceRegisterCmd = &cobra.Command{
	Use:   "register <serial_number>",
	Short: "Register a device or change its name",
	Long: `Register a device by its serial number. Registering an existing device again
records new metadata; the most recent metadata wins.

Examples:
  living-power device register ARDUINO-1 --name Greenhouse`,
	Args: cobra.ExactArgs(1),
	Run:  runDeviceRegister,
}

var deviceInfoCmd = &cobra.Command{
	Use:   "info <serial_number>",
	Short: "Show a device as JSON",
	Args:  cobra.ExactArgs(1),
	Run:   runDeviceInfo,
}

var deviceResistorCmd = &cobra.Command{
	Use:   "resistor",
	Short: "Manage the external resistor history of a device",
}

var deviceResistorSetCmd = &cobra.Command{
	Use:   "set <serial_number> <ohms>",
	Short: "Record the external resistor fitted to a device",
	Long: `Record which external resistor was fitted to a device during a time window.
Without --to the window stays open.

Examples:
  living-power device resistor set ARDUINO-1 10000 --from 2024-03-01T00:00:00Z`,
	Args: cobra.ExactArgs(2),
	Run:  runDeviceResistorSet,
}

var deviceResistorListCmd = &cobra.Command{
	Use:     "list <serial_number>",
	Aliases: []string{"ls"},
	Short:   "List the external resistor history of a device",
	Args:    cobra.ExactArgs(1),
	Run:     runDeviceResistorList,
}

var deviceResistorDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove an external resistor entry",
	Args:  cobra.ExactArgs(1),
	Run:   runDeviceResistorDelete,
}

func runDeviceList(cmd *cobra.Command, args []string) {
	globals.Logger.Debug("Fetching devices from ledger")

	devices, err := globals.Devices.List(context.Background())
	if err != nil {
		fail("Failed to fetch devices", err)
	}

	if len(devices) == 0 {
		fmt.Println("No devices found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "SERIAL\tNAME\tHASH")
	fmt.Fprintln(w, "------\t----\t----")

	for _, device := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\n", device.SerialNumber, device.Name(), device.Hash)
	}

	globals.Logger.Debug("Device list completed", "count", len(devices))
}

func runDeviceRegister(cmd *cobra.Command, args []string) {
	serialNumber := args[0]
	name := deviceName
	if name == "" {
		name = serialNumber
	}

	hash, err := globals.Devices.Register(context.Background(), serialNumber, models.DeviceInfo{Name: name})
	if err != nil {
		fail("Failed to register device", err, "serial", serialNumber)
	}

	fmt.Println(hash)
}

func runDeviceInfo(cmd *cobra.Command, args []string) {
	serialNumber := args[0]

	device, err := globals.Devices.Get(context.Background(), serialNumber)
	if err != nil {
		fail("Failed to fetch device", err, "serial", serialNumber)
	}
	if device == nil {
		fmt.Fprintf(os.Stderr, "Error: Device not found: %s\n", serialNumber)
		os.Exit(1)
	}

	printJSON(device)
}

func runDeviceResistorSet(cmd *cobra.Command, args []string) {
	serialNumber := args[0]

	ohms, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		fail("Invalid resistor value", err, "value", args[1])
	}

	value := models.ExternalResistorValue{Ohms: ohms}
	if value.From, err = parseTimestamp(resistorFrom); err != nil {
		fail("Invalid --from", err)
	}
	if value.To, err = parseTimestamp(resistorTo); err != nil {
		fail("Invalid --to", err)
	}

	id, err := globals.Devices.SetExternalResistorValue(context.Background(), serialNumber, value)
	if err != nil {
		fail("Failed to set external resistor", err, "serial", serialNumber)
	}

	fmt.Println(id)
}

func runDeviceResistorList(cmd *cobra.Command, args []string) {
	serialNumber := args[0]

	values, err := globals.Devices.ExternalResistorValues(context.Background(), serialNumber)
	if err != nil {
		fail("Failed to fetch external resistor values", err, "serial", serialNumber)
	}

	if len(values) == 0 {
		fmt.Println("No external resistor values found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tOHMS\tFROM\tTO")
	fmt.Fprintln(w, "--\t----\t----\t--")

	for _, value := range values {
		to := "-"
		if value.Value.To != 0 {
			to = value.Value.To.Time().Format(TIME_FORMAT)
		}

		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
			value.ID,
			value.Value.Ohms,
			value.Value.From.Time().Format(TIME_FORMAT),
			to,
		)
	}
}

func runDeviceResistorDelete(cmd *cobra.Command, args []string) {
	id, err := uuid.Parse(args[0])
	if err != nil {
		fail("Invalid id", err, "id", args[0])
	}

	if err := globals.Devices.DeleteExternalResistorValue(context.Background(), id); err != nil {
		fail("Failed to delete external resistor value", err, "id", id)
	}
}

// parseTimestamp accepts RFC 3339 times. An empty string yields zero.
func parseTimestamp(value string) (ledger.Timestamp, error) {
	if value == "" {
		return 0, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return 0, err
	}

	return ledger.FromTime(t), nil
}

func init() {
	rootCmd.AddCommand(deviceCmd)

	deviceCmd.AddCommand(deviceListCmd)
	deviceCmd.AddCommand(deviceRegisterCmd)
	deviceCmd.AddCommand(deviceInfoCmd)
	deviceCmd.AddCommand(deviceResistorCmd)

	deviceRegisterCmd.Flags().StringVarP(&deviceName, "name", "n", "", "Display name (defaults to the serial number)")

	deviceResistorCmd.AddCommand(deviceResistorSetCmd)
	deviceResistorCmd.AddCommand(deviceResistorListCmd)
	deviceResistorCmd.AddCommand(deviceResistorDeleteCmd)

	deviceResistorSetCmd.Flags().StringVar(&resistorFrom, "from", "", "Start of the window (RFC 3339)")
	deviceResistorSetCmd.Flags().StringVar(&resistorTo, "to", "", "End of the window (RFC 3339, open if omitted)")
}
