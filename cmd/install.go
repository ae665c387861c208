package cmd

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/gopher-os/acpitables/device/acpi"
	"github.com/spf13/cobra"
)

// NewInstallCmd returns a new instance of the install subcommand and appends
// it to the root command.
func NewInstallCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "install FILE...",
		Short: "Install table overrides and show the resulting lookups",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, cfg, cleanup, err := openDirectory()
			if err != nil {
				return err
			}
			defer cleanup()

			installed := make([]*acpi.Table, 0, len(args))
			defer func() {
				for _, t := range installed {
					_ = dir.Unref(t)
				}
			}()

			for _, path := range args {
				data, err := cfg.FS.ReadFile(path)
				if err != nil {
					return errors.Wrapf(err, "read %q", path)
				}

				t, err := dir.Install(data)
				if err != nil {
					return errors.Wrapf(err, "install %q", path)
				}
				installed = append(installed, t)
			}

			if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
				if err := dir.EnableDynamicAllocation(); err != nil {
					return err
				}
			}

			for _, t := range installed {
				found, err := dir.Find(t.Signature().String())
				if err != nil {
					return err
				}

				hdr := found.Header()
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s %s rev %d)\n",
					t.Signature().String(), found.Origin(), hdr.OEMIDString(), hdr.OEMTableIDString(), hdr.Revision)
				_ = dir.Unref(found)
			}
			return nil
		},
	}
	c.Flags().Bool("migrate", false, "Move early-stored copies to the heap after installing")
	root.AddCommand(c)
	return c
}

// register the subcommand into rootCmd
var _ = NewInstallCmd(rootCmd)
