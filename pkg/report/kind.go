package report

import (
	"errors"
	"fmt"
)

// Kind identifies a report type understood by the toolchain.
type Kind int

// Report kinds.
const (
	KindBlame Kind = iota
	KindCommit

	numKinds
)

// Descriptor contains stable report-kind metadata: the filename shorthand
// and the file extension result files of this kind carry.
type Descriptor struct {
	Kind      Kind
	Name      string
	Shorthand string
	FileExt   string
}

// descriptorTable is the static registration table. Adding a Kind constant
// without a table entry is caught by ValidateDescriptors.
var descriptorTable = []Descriptor{
	{Kind: KindBlame, Name: "BlameReport", Shorthand: "BR", FileExt: ".yaml"},
	{Kind: KindCommit, Name: "CommitReport", Shorthand: "CR", FileExt: ".yaml"},
}

// ErrUnknownKind is returned when a kind or shorthand lookup fails.
var ErrUnknownKind = errors.New("unknown report kind")

// ErrInvalidDescriptorTable is returned when the static descriptor table
// does not cover every kind exactly once.
var ErrInvalidDescriptorTable = errors.New("invalid report descriptor table")

// Descriptor returns the metadata registered for the kind.
func (k Kind) Descriptor() (Descriptor, error) {
	for _, desc := range descriptorTable {
		if desc.Kind == k {
			return desc, nil
		}
	}

	return Descriptor{}, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
}

// String returns the registered name, or a placeholder for unknown kinds.
func (k Kind) String() string {
	desc, err := k.Descriptor()
	if err != nil {
		return fmt.Sprintf("Kind(%d)", int(k))
	}

	return desc.Name
}

// KindByShorthand resolves a filename shorthand to its report kind.
func KindByShorthand(shorthand string) (Descriptor, error) {
	for _, desc := range descriptorTable {
		if desc.Shorthand == shorthand {
			return desc, nil
		}
	}

	return Descriptor{}, fmt.Errorf("%w: shorthand %q", ErrUnknownKind, shorthand)
}

// ValidateDescriptors checks the static table exhaustively: every kind has
// exactly one entry and shorthands are unique. Call once at startup.
func ValidateDescriptors() error {
	seenKinds := make(map[Kind]bool, len(descriptorTable))
	seenShorthands := make(map[string]bool, len(descriptorTable))

	for _, desc := range descriptorTable {
		if desc.Kind < 0 || desc.Kind >= numKinds {
			return fmt.Errorf("%w: entry %q has out-of-range kind", ErrInvalidDescriptorTable, desc.Name)
		}

		if seenKinds[desc.Kind] {
			return fmt.Errorf("%w: duplicate entry for %s", ErrInvalidDescriptorTable, desc.Kind)
		}

		if seenShorthands[desc.Shorthand] {
			return fmt.Errorf("%w: duplicate shorthand %q", ErrInvalidDescriptorTable, desc.Shorthand)
		}

		seenKinds[desc.Kind] = true
		seenShorthands[desc.Shorthand] = true
	}

	for kind := Kind(0); kind < numKinds; kind++ {
		if !seenKinds[kind] {
			return fmt.Errorf("%w: kind %d has no entry", ErrInvalidDescriptorTable, int(kind))
		}
	}

	return nil
}
