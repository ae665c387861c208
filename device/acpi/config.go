package acpi

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

// ChecksumPolicy controls how a table checksum mismatch is handled. The
// checksums of the root pointer and root tables are always enforced.
type ChecksumPolicy uint8

const (
	// ChecksumWarn logs a warning and accepts the table.
	ChecksumWarn ChecksumPolicy = iota

	// ChecksumEnforce rejects the table with ErrBadChecksum.
	ChecksumEnforce
)

var checksumPolicyNames = map[ChecksumPolicy]string{
	ChecksumWarn:    "warn",
	ChecksumEnforce: "enforce",
}

// String implements fmt.Stringer.
func (p ChecksumPolicy) String() string {
	if name, ok := checksumPolicyNames[p]; ok {
		return name
	}

	return "unknown"
}

// ParseChecksumPolicy converts a policy name ("warn" or "enforce") into a
// ChecksumPolicy.
func ParseChecksumPolicy(name string) (ChecksumPolicy, error) {
	for policy, policyName := range checksumPolicyNames {
		if strings.EqualFold(name, policyName) {
			return policy, nil
		}
	}

	return ChecksumWarn, errors.Wrapf(ErrInvalidArgument, "unknown checksum policy %q", name)
}

// Config holds the collaborators and policies used by a Directory.
type Config struct {
	// Mapper provides access to physical memory. It is required for
	// firmware discovery and InstallPhysical.
	Mapper Mapper

	// RootPointer supplies the physical address of the RSDP. If set, Init
	// invokes it exactly once and populates the directory with the
	// firmware tables.
	RootPointer RootPointerFn

	// Logger receives diagnostics. If nil, output is discarded.
	Logger logrus.FieldLogger

	// ChecksumPolicy selects how table checksum mismatches are handled.
	ChecksumPolicy ChecksumPolicy

	// EarlyTableBuffer is a fixed-capacity scratch buffer that backs
	// installed table copies while dynamic allocation is unavailable.
	EarlyTableBuffer []byte

	// DynamicAllocation specifies whether installed table copies may be
	// allocated from the heap.
	DynamicAllocation bool
}

func (cfg *Config) logger() logrus.FieldLogger {
	if cfg.Logger != nil {
		return cfg.Logger
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
