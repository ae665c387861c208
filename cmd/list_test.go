package cmd

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("List", Label("list", "cmd"), func() {
	var restore func()

	BeforeEach(func() {
		rootCmd = NewRootCmd()
		_ = NewListCmd(rootCmd)
		restore = useDumpFS(nil)
	})
	AfterEach(func() {
		restore()
	})

	It("lists the firmware tables in discovery order", func() {
		_, output, err := executeCommandC(rootCmd, "list")
		Expect(err).ToNot(HaveOccurred())
		Expect(output).To(MatchRegexp(`(?s)FACP.*DSDT.*APIC.*MCFG`))
		Expect(output).To(ContainSubstring("firmware"))
		Expect(output).ToNot(ContainSubstring("RSDT"))
	})
	It("prints the directory as JSON", func() {
		_, output, err := executeCommandC(rootCmd, "list", "--json")
		Expect(err).ToNot(HaveOccurred())
		Expect(output).To(ContainSubstring(`"dynamicAllocation":true`))
		Expect(output).To(ContainSubstring(`"signature":"MCFG"`))
		Expect(output).To(ContainSubstring(`"loaded":false`))
	})
	It("reports an early store when an early buffer is configured", func() {
		_, output, err := executeCommandC(rootCmd, "list", "--json", "--early-buffer", "4096")
		Expect(err).ToNot(HaveOccurred())
		Expect(output).To(ContainSubstring(`"dynamicAllocation":false`))
		Expect(output).To(ContainSubstring(`"capacity":4096`))
	})
	It("fails if the dump directory is missing", func() {
		_, _, err := executeCommandC(rootCmd, "list", "--tables-dir", "/missing")
		Expect(err).To(HaveOccurred())
	})
	It("fails on an unknown table source", func() {
		_, _, err := executeCommandC(rootCmd, "list", "--source", "tape")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("unknown table source"))
	})
})
