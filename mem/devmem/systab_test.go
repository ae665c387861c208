package devmem

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-vfs/vfst"
)

func TestSystabRootPointer(t *testing.T) {
	specs := []struct {
		name    string
		systab  string
		exp     uint64
		wantErr error
	}{
		{
			name:   "prefers ACPI 2.0 entry",
			systab: "SMBIOS3=0x7fb3e000\nACPI=0x7fb7e000\nACPI20=0x7fb7e014\nSMBIOS=0x7fb3f000\n",
			exp:    0x7fb7e014,
		},
		{
			name:   "ACPI 1.0 only",
			systab: "ACPI=0xf68f0\n",
			exp:    0xf68f0,
		},
		{
			name:    "no ACPI entry",
			systab:  "SMBIOS=0x7fb3f000\n",
			wantErr: ErrNoRSDPEntry,
		},
	}

	for _, spec := range specs {
		t.Run(spec.name, func(t *testing.T) {
			fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{
				SystabPath: spec.systab,
			})
			require.NoError(t, err)
			defer cleanup()

			addr, err := SystabRootPointer(fs)()
			if spec.wantErr != nil {
				require.True(t, errors.Is(err, spec.wantErr), "got %v", err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, spec.exp, addr)
		})
	}
}

func TestSystabErrors(t *testing.T) {
	fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{
		SystabPath: "ACPI20=not-a-number\n",
	})
	require.NoError(t, err)
	defer cleanup()

	_, err = SystabRootPointer(fs)()
	require.Error(t, err)

	empty, cleanupEmpty, err := vfst.NewTestFS(map[string]interface{}{})
	require.NoError(t, err)
	defer cleanupEmpty()

	_, err = SystabRootPointer(empty)()
	require.Error(t, err)
}
