package firmware

import (
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/gopher-os/acpitables/device/acpi/table"
	"github.com/gopher-os/acpitables/mem/physmem"
	"github.com/twpayne/go-vfs"
)

// SysfsTablesDir is the directory where Linux exports the raw contents of
// the ACPI tables.
const SysfsTablesDir = "/sys/firmware/acpi/tables"

var sigFACS = table.Signature{'F', 'A', 'C', 'S'}

// Dump is the raw contents of a table read from a dump directory.
type Dump struct {
	// Name is the file name of the dump (e.g. "SSDT2").
	Name string

	Data []byte
}

// LoadDumps reads every regular file in dir that contains a well-formed
// table. Sub-directories and files that are too short to hold the table
// they declare are ignored. The dumps are returned sorted by file name.
func LoadDumps(fs vfs.FS, dir string) ([]Dump, error) {
	infos, err := fs.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read table dump directory %q", dir)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	var dumps []Dump
	for _, info := range infos {
		if !info.Mode().IsRegular() {
			continue
		}

		data, err := fs.ReadFile(filepath.Join(dir, info.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "read table dump %q", info.Name())
		}

		hdr, ok := table.DecodeSDTHeader(data)
		if !ok || hdr.Length < table.SizeofSDTHeader || uint64(hdr.Length) > uint64(len(data)) {
			continue
		}

		dumps = append(dumps, Dump{Name: info.Name(), Data: data[:hdr.Length]})
	}

	return dumps, nil
}

// BuildFromDumps lays out the tables read from dir in a fresh address space
// and returns the address space together with the image layout.
func BuildFromDumps(fs vfs.FS, dir string) (*physmem.Memory, *Image, error) {
	dumps, err := LoadDumps(fs, dir)
	if err != nil {
		return nil, nil, err
	}

	if len(dumps) == 0 {
		return nil, nil, errors.Wrapf(ErrInvalidTable, "no tables found in %q", dir)
	}

	b := NewBuilder()
	for _, dump := range dumps {
		hdr, _ := table.DecodeSDTHeader(dump.Data)
		switch hdr.Signature {
		case table.SigRSDT, table.SigXSDT, sigFACS:
			// Root tables are regenerated; the FACS is referenced by
			// the FADT and has no standard header.
			continue
		}

		b.Add(dump.Data)
	}

	m := physmem.New()
	img, err := b.Build(m)
	if err != nil {
		return nil, nil, err
	}

	return m, img, nil
}
