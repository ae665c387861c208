package cmd

import (
	"fmt"

	"github.com/gopher-os/acpitables/device/acpi"
	"github.com/gopher-os/acpitables/device/acpi/table"
	"github.com/spf13/cobra"
)

// NewSubtablesCmd returns a new instance of the subtables subcommand and
// appends it to the root command.
func NewSubtablesCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "subtables SIGNATURE",
		Short: "Walk the variable-length records of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _, cleanup, err := openDirectory()
			if err != nil {
				return err
			}
			defer cleanup()

			skip, _ := cmd.Flags().GetInt("skip")
			wide, _ := cmd.Flags().GetBool("wide-length")

			t, err := dir.Find(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = dir.Unref(t) }()

			// Records follow the table header, or the fixed fields of the
			// interrupt controller table, unless told otherwise.
			if !cmd.Flags().Changed("skip") {
				skip = table.SizeofSDTHeader
				if t.Signature() == table.SigMADT {
					skip = table.SizeofMADT
				}
			}

			shape := acpi.ShapeByteLength
			if wide {
				shape = acpi.ShapeWordLength
			}

			var count int
			err = acpi.ForEachSubtableShape(t.Bytes(), skip, shape, func(st acpi.Subtable) acpi.IterationDecision {
				fmt.Fprintf(cmd.OutOrStdout(), "[%03d] type=%d length=%d", count, st.Type, st.Length)
				if t.Signature() == table.SigMADT {
					if entry, ok := table.DecodeMADTEntry(st.Data); ok {
						fmt.Fprintf(cmd.OutOrStdout(), " %+v", entry)
					}
				}
				fmt.Fprintln(cmd.OutOrStdout())
				count++
				return acpi.IterationContinue
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d records\n", count)
			return nil
		},
	}
	c.Flags().Int("skip", table.SizeofSDTHeader, "Number of bytes preceding the first record")
	c.Flags().Bool("wide-length", false, "Records use a 2-byte length field")
	root.AddCommand(c)
	return c
}

// register the subcommand into rootCmd
var _ = NewSubtablesCmd(rootCmd)
