// Package blame implements the in-memory model of blame reports, the
// structural diff between two reports of the same project, and the
// aggregations derived from either.
package blame

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Sumatoshi-tech/blamecore/pkg/gitmeta"
)

// UncommittedHash marks interactions attributed to uncommitted changes.
// Time-based aggregations skip it since it has no commit metadata.
const UncommittedHash = "0000000000000000000000000000000000000000"

// Interaction records a data dependency from a base commit's instruction
// onto a set of interacting commits. Amount counts how often the same
// interaction occurred; in a diff it is a signed delta.
type Interaction struct {
	Base        gitmeta.CommitRef
	Interacting []gitmeta.CommitRef
	Amount      int
}

// Degree is the number of interacting commits.
func (i Interaction) Degree() int {
	return len(i.Interacting)
}

// key collapses an interaction to its comparison identity: the base hash
// plus the sorted set of interacting hashes. Insertion order of the
// interacting refs is display-only.
func (i Interaction) key() string {
	hashes := make([]string, len(i.Interacting))
	for idx, ref := range i.Interacting {
		hashes[idx] = ref.CommitHash
	}

	sort.Strings(hashes)

	return i.Base.CommitHash + "\x00" + strings.Join(hashes, "\x00")
}

// sameKey reports whether the interaction collapses to the given base hash
// and interacting hash set.
func (i Interaction) sameKey(baseHash string, interactingHashes []string) bool {
	other := Interaction{
		Base:        gitmeta.CommitRef{CommitHash: baseHash},
		Interacting: make([]gitmeta.CommitRef, len(interactingHashes)),
	}
	for idx, hash := range interactingHashes {
		other.Interacting[idx] = gitmeta.CommitRef{CommitHash: hash}
	}

	return i.key() == other.key()
}

// String renders the interaction the way result tooling prints it.
func (i Interaction) String() string {
	rendered := make([]string, len(i.Interacting))
	for idx, ref := range i.Interacting {
		rendered[idx] = ref.String()
	}

	return fmt.Sprintf("%s <-(# %4d)- [%s]", i.Base, i.Amount, strings.Join(rendered, ", "))
}

// FunctionEntry collects all interactions recorded for one function. The
// mangled name is the unique key within a report.
type FunctionEntry struct {
	Name          string
	DemangledName string
	Interactions  []Interaction
}

// InteractionFor finds the interaction matching the given base hash and
// interacting hash set, if any.
func (e *FunctionEntry) InteractionFor(baseHash string, interactingHashes []string) (Interaction, bool) {
	for _, inter := range e.Interactions {
		if inter.sameKey(baseHash, interactingHashes) {
			return inter, true
		}
	}

	return Interaction{}, false
}

// Report is a single parsed blame report. Immutable after construction;
// function order is declaration order from the result file.
type Report struct {
	headCommit string
	path       string
	meta       Metadata
	order      []string
	functions  map[string]*FunctionEntry
}

// Metadata describes the analyzed module, gathered alongside the result map.
type Metadata struct {
	NumFunctions       int
	NumInstructions    int
	EmptyTrackedVars   int
	TotalTrackedVars   int
	HasTrackedVarStats bool
}

// NewReport builds a report from already-parsed function entries,
// preserving their order. Identity is the head commit plus the originating
// file path.
func NewReport(headCommit, path string, meta Metadata, entries []FunctionEntry) *Report {
	r := &Report{
		headCommit: headCommit,
		path:       path,
		meta:       meta,
		order:      make([]string, 0, len(entries)),
		functions:  make(map[string]*FunctionEntry, len(entries)),
	}

	for idx := range entries {
		entry := entries[idx]
		if _, exists := r.functions[entry.Name]; !exists {
			r.order = append(r.order, entry.Name)
		}

		r.functions[entry.Name] = &entry
	}

	return r
}

// HeadCommit is the commit the analyzed revision was checked out at.
func (r *Report) HeadCommit() string {
	return r.headCommit
}

// Path is the originating result file path.
func (r *Report) Path() string {
	return r.path
}

// Meta returns the module metadata gathered with the report.
func (r *Report) Meta() Metadata {
	return r.meta
}

// Function returns the entry for a mangled function name.
func (r *Report) Function(name string) (*FunctionEntry, bool) {
	entry, found := r.functions[name]

	return entry, found
}

// FunctionEntries returns all entries in declaration order.
func (r *Report) FunctionEntries() []*FunctionEntry {
	entries := make([]*FunctionEntry, 0, len(r.order))
	for _, name := range r.order {
		entries = append(entries, r.functions[name])
	}

	return entries
}

// InHeadInteractions returns the interactions whose base commit is the
// report's head.
func (r *Report) InHeadInteractions() []Interaction {
	var result []Interaction

	for _, entry := range r.FunctionEntries() {
		for _, inter := range entry.Interactions {
			if strings.HasPrefix(inter.Base.CommitHash, r.headCommit) {
				result = append(result, inter)
			}
		}
	}

	return result
}

// OutHeadInteractions returns the interactions where one of the interacting
// commits is the report's head.
func (r *Report) OutHeadInteractions() []Interaction {
	var result []Interaction

	for _, entry := range r.FunctionEntries() {
		for _, inter := range entry.Interactions {
			for _, ref := range inter.Interacting {
				if strings.HasPrefix(ref.CommitHash, r.headCommit) {
					result = append(result, inter)

					break
				}
			}
		}
	}

	return result
}

// InteractionSource is implemented by reports and diffs; aggregations work
// on either.
type InteractionSource interface {
	FunctionEntries() []*FunctionEntry
}
