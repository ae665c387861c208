package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/gopher-os/acpitables/device/acpi"
	"github.com/spf13/cobra"
)

// NewFindCmd returns a new instance of the find subcommand and appends it to
// the root command.
func NewFindCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "find SIGNATURE",
		Short: "Look up a table by signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _, cleanup, err := openDirectory()
			if err != nil {
				return err
			}
			defer cleanup()

			index, _ := cmd.Flags().GetInt("index")
			oemID, _ := cmd.Flags().GetString("oem-id")
			oemTableID, _ := cmd.Flags().GetString("oem-table-id")
			dump, _ := cmd.Flags().GetBool("hexdump")

			var t *acpi.Table
			if oemID != "" || oemTableID != "" {
				t, err = dir.FindOEM(args[0], oemID, oemTableID)
			} else {
				t, err = dir.FindNth(args[0], index)
			}
			if err != nil {
				return err
			}
			defer func() { _ = dir.Unref(t) }()

			printTable(cmd, t)
			if dump {
				fmt.Fprint(cmd.OutOrStdout(), hex.Dump(t.Bytes()))
			}
			return nil
		},
	}
	c.Flags().Int("index", 0, "Select the n-th table sharing the signature")
	c.Flags().String("oem-id", "", "Only match tables with this OEM ID")
	c.Flags().String("oem-table-id", "", "Only match tables with this OEM table ID")
	c.Flags().Bool("hexdump", false, "Dump the raw table contents")
	root.AddCommand(c)
	return c
}

func printTable(cmd *cobra.Command, t *acpi.Table) {
	hdr := t.Header()
	fmt.Fprintf(cmd.OutOrStdout(), "Signature:    %s\n", t.Signature().String())
	fmt.Fprintf(cmd.OutOrStdout(), "Origin:       %s\n", t.Origin())
	fmt.Fprintf(cmd.OutOrStdout(), "Address:      0x%x\n", t.PhysAddr())
	fmt.Fprintf(cmd.OutOrStdout(), "Length:       %d\n", t.Length())
	fmt.Fprintf(cmd.OutOrStdout(), "Revision:     %d\n", hdr.Revision)
	fmt.Fprintf(cmd.OutOrStdout(), "OEM ID:       %s\n", hdr.OEMIDString())
	fmt.Fprintf(cmd.OutOrStdout(), "OEM table ID: %s\n", hdr.OEMTableIDString())
}

// register the subcommand into rootCmd
var _ = NewFindCmd(rootCmd)
