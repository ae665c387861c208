package cmd

import (
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/gopher-os/acpitables/device/acpi/firmware"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-vfs"
	"github.com/twpayne/go-vfs/vfst"
)

func executeCommandC(cmd *cobra.Command, args ...string) (c *cobra.Command, output string, err error) {
	// Set args to command
	cmd.SetArgs(args)
	// store old stdout
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	// Change stdout to our pipe
	os.Stdout = w
	// run the command
	c, err = cmd.ExecuteC()
	if err != nil {
		// Remember to restore stdout!
		os.Stdout = oldStdout
		return nil, "", err
	}
	err = w.Close()
	if err != nil {
		// Remember to restore stdout!
		os.Stdout = oldStdout
		return nil, "", err
	}
	// Read output from our pipe
	out, _ := io.ReadAll(r)
	// restore stdout
	os.Stdout = oldStdout

	return c, string(out), nil
}

// fixture returns the contents of a table from the table package test data.
func fixture(name string) []byte {
	_, file, _, _ := runtime.Caller(0)
	data, err := os.ReadFile(filepath.Join(filepath.Dir(file), "..", "device", "acpi", "table", "tabletest", name))
	Expect(err).ToNot(HaveOccurred())
	return data
}

// useDumpFS points the commands at a test filesystem that holds the APIC,
// DSDT and MCFG dumps plus any extra files. Extra entries under the tables
// directory are added next to the default dumps. The returned function restores
// the original filesystem.
func useDumpFS(extra map[string]interface{}) func() {
	root := map[string]interface{}{
		firmware.SysfsTablesDir: map[string]interface{}{
			"APIC": fixture("APIC.aml"),
			"DSDT": fixture("DSDT.aml"),
			"MCFG": fixture("MCFG.aml"),
		},
	}
	for k, v := range extra {
		if tables, ok := v.(map[string]interface{}); ok && k == firmware.SysfsTablesDir {
			for name, data := range tables {
				root[k].(map[string]interface{})[name] = data
			}
			continue
		}
		root[k] = v
	}

	fs, cleanup, err := vfst.NewTestFS(root)
	Expect(err).ToNot(HaveOccurred())

	fsys = fs
	return func() {
		fsys = vfs.OSFS
		cleanup()
	}
}
