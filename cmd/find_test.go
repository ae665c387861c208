package cmd

import (
	"github.com/gopher-os/acpitables/device/acpi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Find", Label("find", "cmd"), func() {
	var restore func()

	BeforeEach(func() {
		rootCmd = NewRootCmd()
		_ = NewFindCmd(rootCmd)
		restore = useDumpFS(nil)
	})
	AfterEach(func() {
		restore()
	})

	It("prints the header of a firmware table", func() {
		_, output, err := executeCommandC(rootCmd, "find", "MCFG")
		Expect(err).ToNot(HaveOccurred())
		Expect(output).To(ContainSubstring("Signature:    MCFG"))
		Expect(output).To(ContainSubstring("Origin:       firmware"))
		Expect(output).To(ContainSubstring("Length:       60"))
		Expect(output).To(ContainSubstring("OEM ID:       HPQOEM"))
	})
	It("follows the FADT to the DSDT", func() {
		_, output, err := executeCommandC(rootCmd, "find", "DSDT", "--hexdump")
		Expect(err).ToNot(HaveOccurred())
		Expect(output).To(ContainSubstring("OEM table ID: OVERRIDE"))
		Expect(output).To(ContainSubstring("|DSDT5"))
	})
	It("matches tables by OEM ID", func() {
		_, output, err := executeCommandC(rootCmd, "find", "DSDT", "--oem-id", "uTEST")
		Expect(err).ToNot(HaveOccurred())
		Expect(output).To(ContainSubstring("OEM ID:       uTEST"))

		_, _, err = executeCommandC(rootCmd, "find", "DSDT", "--oem-id", "NOBODY")
		Expect(err).To(MatchError(acpi.ErrNotFound))
	})
	It("fails for a missing instance", func() {
		_, _, err := executeCommandC(rootCmd, "find", "MCFG", "--index", "1")
		Expect(err).To(MatchError(acpi.ErrNotFound))
	})
	It("rejects malformed signatures", func() {
		_, _, err := executeCommandC(rootCmd, "find", "TOOLONG")
		Expect(err).To(HaveOccurred())
	})
})
