package cmd

import (
	"fmt"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spf13/cobra"
)

// NewListCmd returns a new instance of the list subcommand and appends it to
// the root command.
func NewListCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "list",
		Short: "List the tables known to the directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _, cleanup, err := openDirectory()
			if err != nil {
				return err
			}
			defer cleanup()

			asJSON, _ := cmd.Flags().GetBool("json")
			if asJSON {
				w := jwriter.NewWriter()
				dir.WriteJSON(&w)
				if err := w.Error(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(w.Bytes()))
				return nil
			}

			for _, info := range dir.Tables() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t0x%016x\t%6d\t%-18s", info.Signature.String(), info.PhysAddr, info.Length, info.Origin)
				if info.Loaded {
					fmt.Fprintf(cmd.OutOrStdout(), "\t%-6s\t%-8s\trev %d", info.OEMID, info.OEMTableID, info.Revision)
				}
				if info.Invalid {
					fmt.Fprint(cmd.OutOrStdout(), "\tinvalid")
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
	c.Flags().Bool("json", false, "Print the directory contents as JSON")
	root.AddCommand(c)
	return c
}

// register the subcommand into rootCmd
var _ = NewListCmd(rootCmd)
