package blame

import (
	"github.com/Sumatoshi-tech/blamecore/pkg/gitmeta"
)

// Commit hashes reused across the package tests.
const (
	hashHead     = "e8999a84efbd9c3e739bff7af39500d14e61bfbc"
	hashInterOne = "48f8ed5347aeb9d54e7ea041b1f8d67ffe74db33"
	hashInterTwo = "a387695a1a2e52dcb1c5b21e73d2fd5a6aadbaf9"
)

func ref(hash string) gitmeta.CommitRef {
	return gitmeta.ParseCommitRef(hash)
}

func interaction(base string, amount int, interacting ...string) Interaction {
	inter := Interaction{Base: ref(base), Amount: amount}
	for _, hash := range interacting {
		inter.Interacting = append(inter.Interacting, ref(hash))
	}

	return inter
}

func entry(name string, inters ...Interaction) FunctionEntry {
	return FunctionEntry{Name: name, DemangledName: name, Interactions: inters}
}

func reportOf(head string, entries ...FunctionEntry) *Report {
	return NewReport(head, "", Metadata{}, entries)
}
