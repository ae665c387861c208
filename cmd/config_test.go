package cmd

import (
	"os"

	"github.com/gopher-os/acpitables/device/acpi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var _ = Describe("Config", Label("config", "cmd"), func() {
	var (
		flags   *pflag.FlagSet
		restore func()
	)

	BeforeEach(func() {
		rootCmd = NewRootCmd()
		flags = rootCmd.PersistentFlags()
		restore = useDumpFS(nil)
	})
	AfterEach(func() {
		restore()
		_ = os.Unsetenv("ACPITABLES_EARLY_BUFFER")
	})

	Describe("ReadConfigRun", func() {
		It("uses the flag defaults", func() {
			cfg, err := ReadConfigRun("")
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.Source).To(Equal(sourceDump))
			Expect(cfg.Checksum).To(Equal("warn"))
			Expect(cfg.EarlyBuffer).To(Equal(0))
			Expect(cfg.Logger.GetLevel()).To(Equal(logrus.InfoLevel))
			Expect(cfg.FS).To(BeIdenticalTo(fsys))
		})
		It("picks up changed flags", func() {
			Expect(flags.Set("checksum", "enforce")).To(Succeed())
			Expect(flags.Set("debug", "true")).To(Succeed())

			cfg, err := ReadConfigRun("")
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.Checksum).To(Equal("enforce"))
			Expect(cfg.Logger.GetLevel()).To(Equal(logrus.DebugLevel))
		})
		It("reads settings from the environment", func() {
			Expect(os.Setenv("ACPITABLES_EARLY_BUFFER", "256")).To(Succeed())

			cfg, err := ReadConfigRun("")
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.EarlyBuffer).To(Equal(256))
		})
		It("binds standalone flag sets", func() {
			extra := pflag.NewFlagSet("testflags", pflag.ContinueOnError)
			extra.String("tables-dir", "", "")
			Expect(extra.Set("tables-dir", "/tmp/tables")).To(Succeed())
			Expect(viper.BindPFlags(extra)).To(Succeed())

			cfg, err := ReadConfigRun("")
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.TablesDir).To(Equal("/tmp/tables"))
		})
	})

	Describe("DirectoryConfig", func() {
		It("configures an early buffer", func() {
			Expect(flags.Set("early-buffer", "512")).To(Succeed())
			Expect(flags.Set("checksum", "enforce")).To(Succeed())

			cfg, err := ReadConfigRun("")
			Expect(err).ToNot(HaveOccurred())

			dirCfg, cleanup, err := cfg.DirectoryConfig()
			Expect(err).ToNot(HaveOccurred())
			defer cleanup()

			Expect(dirCfg.DynamicAllocation).To(BeFalse())
			Expect(dirCfg.EarlyTableBuffer).To(HaveLen(512))
			Expect(dirCfg.ChecksumPolicy).To(Equal(acpi.ChecksumEnforce))
			Expect(dirCfg.Mapper).ToNot(BeNil())

			rsdp, err := dirCfg.RootPointer()
			Expect(err).ToNot(HaveOccurred())
			Expect(rsdp).ToNot(BeZero())
		})
		It("fails if the physical memory device cannot be opened", func() {
			Expect(flags.Set("source", sourceDevMem)).To(Succeed())
			Expect(flags.Set("devmem", "/nonexistent/mem")).To(Succeed())

			cfg, err := ReadConfigRun("")
			Expect(err).ToNot(HaveOccurred())

			_, _, err = cfg.DirectoryConfig()
			Expect(err).To(HaveOccurred())
		})
		It("rejects unknown checksum policies", func() {
			Expect(flags.Set("checksum", "sometimes")).To(Succeed())

			cfg, err := ReadConfigRun("")
			Expect(err).ToNot(HaveOccurred())

			_, _, err = cfg.DirectoryConfig()
			Expect(err).To(MatchError(acpi.ErrInvalidArgument))
		})
	})
})
