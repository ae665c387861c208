package cmd

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Probe", Label("probe", "cmd"), func() {
	var restore func()

	BeforeEach(func() {
		rootCmd = NewRootCmd()
		_ = NewProbeCmd(rootCmd)
		restore = useDumpFS(nil)
	})
	AfterEach(func() {
		restore()
	})

	It("initializes the ACPI driver", func() {
		_, output, err := executeCommandC(rootCmd, "probe")
		Expect(err).ToNot(HaveOccurred())
		Expect(output).To(ContainSubstring("[ACPI(0.1.0)] FACP at"))
		Expect(output).To(ContainSubstring("[ACPI(0.1.0)] initialized"))
	})
	It("locates the RSDP by scanning the BIOS area", func() {
		_, output, err := executeCommandC(rootCmd, "probe", "--scan")
		Expect(err).ToNot(HaveOccurred())
		Expect(output).To(ContainSubstring("APIC at"))
		Expect(output).To(ContainSubstring("[ACPI(0.1.0)] initialized"))
	})
	It("rejects an unknown checksum policy", func() {
		_, _, err := executeCommandC(rootCmd, "probe", "--checksum", "sometimes")
		Expect(err).To(HaveOccurred())
	})
})
