package blame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff_SelfDiffIsEmpty(t *testing.T) {
	t.Parallel()

	rep := reportOf(hashHead,
		entry("bool_exec",
			interaction(hashHead, 22, hashInterOne),
			interaction(hashHead, 5, hashInterOne, hashInterTwo),
		),
		entry("adjust_assignment_or_if"),
	)

	diff := NewDiff(rep, rep)

	for _, fe := range rep.FunctionEntries() {
		assert.False(t, diff.HasFunction(fe.Name), fe.Name)
	}

	assert.Empty(t, diff.FunctionEntries())
}

func TestDiff_AddedFunctionKeptVerbatim(t *testing.T) {
	t.Parallel()

	older := reportOf(hashInterOne)
	newer := reportOf(hashHead,
		entry("fresh", interaction(hashHead, 22, hashInterOne)),
	)

	diff := NewDiff(newer, older)

	require.True(t, diff.HasFunction("fresh"))

	fe, found := diff.Function("fresh")
	require.True(t, found)
	require.Len(t, fe.Interactions, 1)
	assert.Equal(t, 22, fe.Interactions[0].Amount)
}

func TestDiff_RemovedFunctionKeptVerbatim(t *testing.T) {
	t.Parallel()

	older := reportOf(hashInterOne,
		entry("gone", interaction(hashInterOne, 22, hashInterTwo)),
	)
	newer := reportOf(hashHead)

	diff := NewDiff(newer, older)

	require.True(t, diff.HasFunction("gone"))

	fe, found := diff.Function("gone")
	require.True(t, found)
	require.Len(t, fe.Interactions, 1)
	// Amounts from the older side stay unchanged, not negated.
	assert.Equal(t, 22, fe.Interactions[0].Amount)
}

func TestDiff_InteractionDelta(t *testing.T) {
	t.Parallel()

	older := reportOf(hashInterOne,
		entry("bool_exec", interaction(hashHead, 22, hashInterOne)),
	)
	newer := reportOf(hashHead,
		entry("bool_exec", interaction(hashHead, 19, hashInterOne)),
	)

	diff := NewDiff(newer, older)

	inter, found := diff.InteractionFor(hashHead, []string{hashInterOne})
	require.True(t, found)
	assert.Equal(t, -3, inter.Amount)
}

func TestDiff_ZeroDeltaDropped(t *testing.T) {
	t.Parallel()

	older := reportOf(hashInterOne,
		entry("bool_exec",
			interaction(hashHead, 22, hashInterOne),
			interaction(hashHead, 5, hashInterOne, hashInterTwo),
		),
	)
	newer := reportOf(hashHead,
		entry("bool_exec",
			interaction(hashHead, 22, hashInterOne),
			interaction(hashHead, 8, hashInterOne, hashInterTwo),
		),
	)

	diff := NewDiff(newer, older)

	fe, found := diff.Function("bool_exec")
	require.True(t, found)
	require.Len(t, fe.Interactions, 1)

	// Only the changed key survives.
	assert.Equal(t, 3, fe.Interactions[0].Amount)
	assert.Equal(t, 2, fe.Interactions[0].Degree())
}

func TestDiff_DuplicateKeysSummed(t *testing.T) {
	t.Parallel()

	// The same key twice in one report is tolerated and summed.
	older := reportOf(hashInterOne,
		entry("f",
			interaction(hashHead, 10, hashInterOne),
			interaction(hashHead, 12, hashInterOne),
		),
	)
	newer := reportOf(hashHead,
		entry("f", interaction(hashHead, 19, hashInterOne)),
	)

	diff := NewDiff(newer, older)

	inter, found := diff.InteractionFor(hashHead, []string{hashInterOne})
	require.True(t, found)
	assert.Equal(t, -3, inter.Amount)
}

func TestDiff_HeadCommits(t *testing.T) {
	t.Parallel()

	older := reportOf(hashInterOne)
	newer := reportOf(hashHead)

	diff := NewDiff(newer, older)

	assert.Equal(t, hashHead, diff.HeadCommit())
	assert.Equal(t, hashInterOne, diff.OlderHeadCommit())
}
