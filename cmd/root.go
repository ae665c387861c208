package cmd

import (
	"os"

	"github.com/gopher-os/acpitables/device/acpi/firmware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd returns the top-level command with its persistent flags bound
// to the configuration keys.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "acpitables",
		Short:         "Inspect and override ACPI tables",
		SilenceErrors: true,
	}
	cmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	cmd.PersistentFlags().String("config-dir", "/etc/acpitables", "Set config dir")
	cmd.PersistentFlags().String("source", sourceDump, "Table source: dump or devmem")
	cmd.PersistentFlags().String("tables-dir", firmware.SysfsTablesDir, "Directory holding raw table dumps")
	cmd.PersistentFlags().String("devmem", "/dev/mem", "Physical memory device used by the devmem source")
	cmd.PersistentFlags().String("checksum", "warn", "Checksum policy: warn or enforce")
	cmd.PersistentFlags().Int("early-buffer", 0, "Stage installed tables in an early buffer of this many bytes instead of the heap")
	_ = viper.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("config-dir", cmd.PersistentFlags().Lookup("config-dir"))
	_ = viper.BindPFlag("source", cmd.PersistentFlags().Lookup("source"))
	_ = viper.BindPFlag("tables-dir", cmd.PersistentFlags().Lookup("tables-dir"))
	_ = viper.BindPFlag("devmem", cmd.PersistentFlags().Lookup("devmem"))
	_ = viper.BindPFlag("checksum", cmd.PersistentFlags().Lookup("checksum"))
	_ = viper.BindPFlag("early-buffer", cmd.PersistentFlags().Lookup("early-buffer"))
	return cmd
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = NewRootCmd()

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
