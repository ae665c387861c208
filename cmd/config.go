package cmd

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gopher-os/acpitables/device/acpi"
	"github.com/gopher-os/acpitables/device/acpi/firmware"
	"github.com/gopher-os/acpitables/mem/devmem"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/twpayne/go-vfs"
)

const (
	sourceDump   = "dump"
	sourceDevMem = "devmem"
)

// fsys is the filesystem used to read configuration files and table dumps.
var fsys vfs.FS = vfs.OSFS

// RunConfig holds the settings shared by all commands.
type RunConfig struct {
	Logger *logrus.Logger `mapstructure:"-"`
	FS     vfs.FS         `mapstructure:"-"`

	Source      string `mapstructure:"source"`
	TablesDir   string `mapstructure:"tables-dir"`
	DevMem      string `mapstructure:"devmem"`
	Checksum    string `mapstructure:"checksum"`
	EarlyBuffer int    `mapstructure:"early-buffer"`
	Debug       bool   `mapstructure:"debug"`
}

// ReadConfigRun merges the optional config file in configDir, the
// ACPITABLES_* environment variables and the command line flags.
func ReadConfigRun(configDir string) (*RunConfig, error) {
	cfg := &RunConfig{
		Logger: logrus.New(),
		FS:     fsys,
	}
	cfg.Logger.SetOutput(os.Stderr)

	if configDir != "" {
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config.yaml")
		// If a config file is found, read it in.
		_ = viper.MergeInConfig()
	}

	viper.SetEnvPrefix("ACPITABLES")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode configuration")
	}

	if cfg.Debug {
		cfg.Logger.SetLevel(logrus.DebugLevel)
	}

	return cfg, nil
}

// DirectoryConfig converts the run configuration into the settings used by
// the table directory. The returned cleanup function releases the table
// source.
func (cfg *RunConfig) DirectoryConfig() (acpi.Config, func(), error) {
	policy, err := acpi.ParseChecksumPolicy(cfg.Checksum)
	if err != nil {
		return acpi.Config{}, nil, err
	}

	dirCfg := acpi.Config{
		Logger:            cfg.Logger,
		ChecksumPolicy:    policy,
		DynamicAllocation: cfg.EarlyBuffer <= 0,
	}
	if cfg.EarlyBuffer > 0 {
		dirCfg.EarlyTableBuffer = make([]byte, cfg.EarlyBuffer)
	}

	switch cfg.Source {
	case sourceDump:
		m, img, err := firmware.BuildFromDumps(cfg.FS, cfg.TablesDir)
		if err != nil {
			return acpi.Config{}, nil, err
		}

		cfg.Logger.WithField("rsdp", img.RSDP).Debug("loaded table dumps")
		dirCfg.Mapper = m
		dirCfg.RootPointer = img.RootPointer
		return dirCfg, func() {}, nil
	case sourceDevMem:
		m, err := devmem.Open(cfg.DevMem)
		if err != nil {
			return acpi.Config{}, nil, err
		}

		dirCfg.Mapper = m
		dirCfg.RootPointer = func() (uint64, error) {
			addr, err := devmem.SystabRootPointer(cfg.FS)()
			if err == nil {
				return addr, nil
			}

			cfg.Logger.WithError(err).Debug("falling back to scanning the BIOS area for the RSDP")
			return acpi.FindRSDP(m)
		}
		return dirCfg, func() { _ = m.Close() }, nil
	}

	return acpi.Config{}, nil, errors.Newf("unknown table source %q", cfg.Source)
}

// openDirectory reads the configuration and initializes a table directory
// from the configured source.
func openDirectory() (*acpi.Directory, *RunConfig, func(), error) {
	cfg, err := ReadConfigRun(viper.GetString("config-dir"))
	if err != nil {
		return nil, nil, nil, err
	}

	dirCfg, cleanup, err := cfg.DirectoryConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	dir, err := acpi.Init(dirCfg)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	return dir, cfg, func() {
		if err := dir.Teardown(); err != nil {
			cfg.Logger.WithError(err).Warn("table directory teardown failed")
		}
		cleanup()
	}, nil
}
