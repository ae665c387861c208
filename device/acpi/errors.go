package acpi

import "github.com/gopher-os/acpitables/kernel"

var (
	// ErrNotFound is returned when no table matches a lookup.
	ErrNotFound = &kernel.Error{Module: "acpi", Message: "table not found"}

	// ErrInvalidTableLength is returned when a declared length is
	// inconsistent with the buffer or with the record boundaries.
	ErrInvalidTableLength = &kernel.Error{Module: "acpi", Message: "invalid table length"}

	// ErrInvalidRootTable is returned when the RSDP, RSDT or XSDT is
	// structurally invalid. Table discovery cannot proceed past it.
	ErrInvalidRootTable = &kernel.Error{Module: "acpi", Message: "invalid root system description table"}

	// ErrOutOfSpace is returned when no backing storage is available for
	// an installed table.
	ErrOutOfSpace = &kernel.Error{Module: "acpi", Message: "no backing storage available for table"}

	// ErrInvalidSignature is returned when a table signature contains
	// non-printable bytes or a lookup signature is not 4 bytes long.
	ErrInvalidSignature = &kernel.Error{Module: "acpi", Message: "invalid table signature"}

	// ErrBadChecksum is returned when ChecksumEnforce is active and a table
	// checksum does not add up to zero.
	ErrBadChecksum = &kernel.Error{Module: "acpi", Message: "detected checksum mismatch while parsing ACPI table header"}

	// ErrInvalidArgument is returned for API misuse such as releasing a
	// table that holds no references.
	ErrInvalidArgument = &kernel.Error{Module: "acpi", Message: "invalid argument"}

	// ErrNotInitialized is returned by directory operations invoked after
	// Teardown.
	ErrNotInitialized = &kernel.Error{Module: "acpi", Message: "table directory is not initialized"}

	// ErrMissingRSDP is returned when the RSDP cannot be located.
	ErrMissingRSDP = &kernel.Error{Module: "acpi", Message: "could not locate ACPI RSDP"}
)
