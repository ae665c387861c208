package cmd

import (
	"github.com/gopher-os/acpitables/device"
	"github.com/gopher-os/acpitables/device/acpi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewProbeCmd returns a new instance of the probe subcommand and appends it
// to the root command.
func NewProbeCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "probe",
		Short: "Probe and initialize the ACPI driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ReadConfigRun(viper.GetString("config-dir"))
			if err != nil {
				return err
			}

			dirCfg, cleanup, err := cfg.DirectoryConfig()
			if err != nil {
				return err
			}
			defer cleanup()

			if scan, _ := cmd.Flags().GetBool("scan"); scan {
				dirCfg.RootPointer = nil
			}

			drivers := device.ProbeAll(cmd.OutOrStdout(), device.DriverInfoList{
				{Order: device.DetectOrderACPI, Probe: acpi.Probe(dirCfg)},
			})
			for _, drv := range drivers {
				if acpiDrv, ok := drv.(*acpi.Driver); ok {
					_ = acpiDrv.Directory().Teardown()
				}
			}
			return nil
		},
	}
	c.Flags().Bool("scan", false, "Locate the RSDP by scanning the BIOS areas")
	root.AddCommand(c)
	return c
}

// register the subcommand into rootCmd
var _ = NewProbeCmd(rootCmd)
