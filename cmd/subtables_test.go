package cmd

import (
	"github.com/gopher-os/acpitables/device/acpi"
	"github.com/gopher-os/acpitables/device/acpi/firmware"
	"github.com/gopher-os/acpitables/device/acpi/table"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Subtables", Label("subtables", "cmd"), func() {
	var restore func()

	BeforeEach(func() {
		rootCmd = NewRootCmd()
		_ = NewSubtablesCmd(rootCmd)
		// TEST carries two records right after its header.
		test, err := table.Encode(table.SDTHeader{
			Signature: table.Signature{'T', 'E', 'S', 'T'},
			Revision:  1,
		}, []byte{1, 4, 0xaa, 0xbb, 2, 3, 0xcc})
		Expect(err).ToNot(HaveOccurred())

		restore = useDumpFS(map[string]interface{}{
			firmware.SysfsTablesDir: map[string]interface{}{"TEST": test},
		})
	})
	AfterEach(func() {
		restore()
	})

	It("walks the interrupt controller records", func() {
		_, output, err := executeCommandC(rootCmd, "subtables", "APIC")
		Expect(err).ToNot(HaveOccurred())
		Expect(output).To(ContainSubstring("[000] type=0 length=8"))
		Expect(output).To(ContainSubstring("[004] type=1 length=12"))
		Expect(output).To(ContainSubstring("IRQSrc:9"))
		Expect(output).To(ContainSubstring("12 records"))
	})
	It("starts after the table header by default", func() {
		_, output, err := executeCommandC(rootCmd, "subtables", "TEST")
		Expect(err).ToNot(HaveOccurred())
		Expect(output).To(ContainSubstring("[000] type=1 length=4"))
		Expect(output).To(ContainSubstring("[001] type=2 length=3"))
		Expect(output).To(ContainSubstring("2 records"))
	})
	It("walks from the start of the table when the skip is zero", func() {
		// The signature bytes read as a record longer than the table.
		_, _, err := executeCommandC(rootCmd, "subtables", "TEST", "--skip", "0")
		Expect(err).To(MatchError(acpi.ErrInvalidTableLength))
	})
	It("honours an explicit header skip", func() {
		// MCFG allocation records do not use the type/length framing;
		// the reserved field that follows the header reads as a zero
		// length record.
		_, _, err := executeCommandC(rootCmd, "subtables", "MCFG", "--skip", "36")
		Expect(err).To(MatchError(acpi.ErrInvalidTableLength))
	})
	It("reports a table without records", func() {
		_, output, err := executeCommandC(rootCmd, "subtables", "MCFG", "--skip", "60")
		Expect(err).ToNot(HaveOccurred())
		Expect(output).To(ContainSubstring("0 records"))
	})
	It("rejects a skip past the end of the table", func() {
		_, _, err := executeCommandC(rootCmd, "subtables", "MCFG", "--skip", "61")
		Expect(err).To(MatchError(acpi.ErrInvalidTableLength))
	})
})
