package cmd

import (
	"github.com/gopher-os/acpitables/device/acpi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Install", Label("install", "cmd"), func() {
	var restore func()

	BeforeEach(func() {
		rootCmd = NewRootCmd()
		_ = NewInstallCmd(rootCmd)

		truncated := fixture("SSDT.aml")
		restore = useDumpFS(map[string]interface{}{
			"/overrides": map[string]interface{}{
				"DSDT.aml":      fixture("DSDT.aml"),
				"SSDT.aml":      fixture("SSDT.aml"),
				"truncated.aml": truncated[:40],
			},
		})
	})
	AfterEach(func() {
		restore()
	})

	It("shadows the firmware table with the installed copy", func() {
		_, output, err := executeCommandC(rootCmd, "install", "/overrides/DSDT.aml", "/overrides/SSDT.aml")
		Expect(err).ToNot(HaveOccurred())
		Expect(output).To(ContainSubstring("DSDT -> installed-buffer (uTEST OVERRIDE rev 1)"))
		Expect(output).To(ContainSubstring("SSDT -> installed-buffer"))
	})
	It("stages installs in the early buffer", func() {
		_, output, err := executeCommandC(rootCmd, "install", "--early-buffer", "128", "--migrate", "/overrides/DSDT.aml")
		Expect(err).ToNot(HaveOccurred())
		Expect(output).To(ContainSubstring("DSDT -> installed-buffer"))
	})
	It("fails once the early buffer is exhausted", func() {
		_, _, err := executeCommandC(rootCmd, "install", "--early-buffer", "64", "/overrides/DSDT.aml", "/overrides/SSDT.aml")
		Expect(err).To(MatchError(acpi.ErrOutOfSpace))
	})
	It("rejects truncated tables", func() {
		_, _, err := executeCommandC(rootCmd, "install", "/overrides/truncated.aml")
		Expect(err).To(MatchError(acpi.ErrInvalidTableLength))
	})
	It("fails for missing files", func() {
		_, _, err := executeCommandC(rootCmd, "install", "/overrides/missing.aml")
		Expect(err).To(HaveOccurred())
	})
})
