package blame

import (
	"slices"
	"sync"
)

// Diff is the structural delta between two blame reports of the same
// project at different revisions. It exposes a virtual report that only
// contains functions with at least one changed interaction; amounts of
// those interactions are signed deltas. The result is computed on first
// access and never mutated afterwards, so concurrent readers are safe.
type Diff struct {
	newer *Report
	older *Report

	once      sync.Once
	order     []string
	functions map[string]*FunctionEntry
}

// NewDiff creates a diff of newer against older. The two reports need not
// be adjacent in history; callers establish adjacency.
func NewDiff(newer, older *Report) *Diff {
	return &Diff{newer: newer, older: older}
}

// HeadCommit is the head commit of the newer report.
func (d *Diff) HeadCommit() string {
	return d.newer.HeadCommit()
}

// OlderHeadCommit is the head commit of the older report.
func (d *Diff) OlderHeadCommit() string {
	return d.older.HeadCommit()
}

// HasFunction reports whether the function survived the diff, i.e. has at
// least one changed interaction. Functions absent from the diff are
// unchanged by definition.
func (d *Diff) HasFunction(name string) bool {
	d.compute()

	_, found := d.functions[name]

	return found
}

// Function returns the diff entry for a mangled function name.
func (d *Diff) Function(name string) (*FunctionEntry, bool) {
	d.compute()

	entry, found := d.functions[name]

	return entry, found
}

// FunctionEntries returns all changed functions. Order follows the newer
// report's declaration order, with older-only functions appended in the
// older report's order.
func (d *Diff) FunctionEntries() []*FunctionEntry {
	d.compute()

	entries := make([]*FunctionEntry, 0, len(d.order))
	for _, name := range d.order {
		entries = append(entries, d.functions[name])
	}

	return entries
}

// InteractionFor searches all changed functions for the interaction with
// the given base hash and interacting hash set.
func (d *Diff) InteractionFor(baseHash string, interactingHashes []string) (Interaction, bool) {
	for _, entry := range d.FunctionEntries() {
		if inter, found := entry.InteractionFor(baseHash, interactingHashes); found {
			return inter, true
		}
	}

	return Interaction{}, false
}

// compute materializes the diff exactly once.
func (d *Diff) compute() {
	d.once.Do(func() {
		d.functions = make(map[string]*FunctionEntry)

		names := unionFunctionNames(d.newer, d.older)
		for _, name := range names {
			newerEntry, inNewer := d.newer.Function(name)
			olderEntry, inOlder := d.older.Function(name)

			var diffEntry *FunctionEntry

			switch {
			case inNewer && inOlder:
				diffEntry = diffFunctionEntries(newerEntry, olderEntry)
			case inNewer:
				// Function was added: its interactions carry over verbatim.
				diffEntry = copyEntry(newerEntry)
			default:
				// Function was removed: the older interactions carry over
				// verbatim, amounts deliberately not negated.
				diffEntry = copyEntry(olderEntry)
			}

			if len(diffEntry.Interactions) > 0 {
				d.order = append(d.order, name)
				d.functions[name] = diffEntry
			}
		}
	})
}

// unionFunctionNames returns newer's function names in declaration order,
// followed by older-only names in the older report's order.
func unionFunctionNames(newer, older *Report) []string {
	var names []string

	seen := make(map[string]bool)

	for _, entry := range newer.FunctionEntries() {
		names = append(names, entry.Name)
		seen[entry.Name] = true
	}

	for _, entry := range older.FunctionEntries() {
		if !seen[entry.Name] {
			names = append(names, entry.Name)
		}
	}

	return names
}

// interactionBucket accumulates the amounts on both sides for one
// interaction identity.
type interactionBucket struct {
	base        Interaction
	newerAmount int
	olderAmount int
}

// diffFunctionEntries computes the signed interaction deltas for a function
// present in both reports. Identical base/interacting-set pairs are
// collapsed; duplicate keys within one report sum their amounts. Output
// order is first occurrence while scanning newer then older.
func diffFunctionEntries(newer, older *FunctionEntry) *FunctionEntry {
	var order []string

	buckets := make(map[string]*interactionBucket)

	accumulate := func(entry *FunctionEntry, intoNewer bool) {
		for _, inter := range entry.Interactions {
			k := inter.key()

			bucket, exists := buckets[k]
			if !exists {
				bucket = &interactionBucket{base: copyInteraction(inter)}
				buckets[k] = bucket

				order = append(order, k)
			}

			if intoNewer {
				bucket.newerAmount += inter.Amount
			} else {
				bucket.olderAmount += inter.Amount
			}
		}
	}

	accumulate(newer, true)
	accumulate(older, false)

	diffEntry := &FunctionEntry{
		Name:          newer.Name,
		DemangledName: newer.DemangledName,
	}

	for _, k := range order {
		bucket := buckets[k]

		delta := bucket.newerAmount - bucket.olderAmount
		if delta == 0 {
			continue
		}

		changed := bucket.base
		changed.Amount = delta
		diffEntry.Interactions = append(diffEntry.Interactions, changed)
	}

	return diffEntry
}

// copyEntry deep-copies a function entry so diff results never alias the
// input reports.
func copyEntry(entry *FunctionEntry) *FunctionEntry {
	copied := &FunctionEntry{
		Name:          entry.Name,
		DemangledName: entry.DemangledName,
		Interactions:  make([]Interaction, 0, len(entry.Interactions)),
	}

	for _, inter := range entry.Interactions {
		copied.Interactions = append(copied.Interactions, copyInteraction(inter))
	}

	return copied
}

// copyInteraction clones an interaction including its interacting slice.
func copyInteraction(inter Interaction) Interaction {
	inter.Interacting = slices.Clone(inter.Interacting)

	return inter
}
