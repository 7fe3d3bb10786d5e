package blame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_FunctionOrder(t *testing.T) {
	t.Parallel()

	rep := reportOf(hashHead,
		entry("zeta", interaction(hashHead, 1, hashInterOne)),
		entry("alpha", interaction(hashHead, 2, hashInterOne)),
		entry("mid"),
	)

	var names []string
	for _, fe := range rep.FunctionEntries() {
		names = append(names, fe.Name)
	}

	// Declaration order, not lexicographic.
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}

func TestReport_Function(t *testing.T) {
	t.Parallel()

	rep := reportOf(hashHead, entry("bool_exec", interaction(hashHead, 5, hashInterOne)))

	fe, found := rep.Function("bool_exec")
	require.True(t, found)
	assert.Equal(t, "bool_exec", fe.Name)

	_, found = rep.Function("missing")
	assert.False(t, found)
}

func TestFunctionEntry_InteractionFor(t *testing.T) {
	t.Parallel()

	fe := entry("f",
		interaction(hashHead, 5, hashInterOne, hashInterTwo),
		interaction(hashHead, 22, hashInterOne),
	)

	inter, found := fe.InteractionFor(hashHead, []string{hashInterOne})
	require.True(t, found)
	assert.Equal(t, 22, inter.Amount)

	// Interacting-set order does not matter for the identity.
	inter, found = fe.InteractionFor(hashHead, []string{hashInterTwo, hashInterOne})
	require.True(t, found)
	assert.Equal(t, 5, inter.Amount)

	_, found = fe.InteractionFor(hashInterOne, []string{hashHead})
	assert.False(t, found)
}

func TestInteraction_Degree(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, interaction(hashHead, 22, hashInterOne).Degree())
	assert.Equal(t, 2, interaction(hashHead, 5, hashInterOne, hashInterTwo).Degree())
}

func TestReport_HeadInteractions(t *testing.T) {
	t.Parallel()

	rep := reportOf(hashHead,
		entry("f",
			interaction(hashHead, 3, hashInterOne),
			interaction(hashInterOne, 7, hashHead),
			interaction(hashInterOne, 9, hashInterTwo),
		),
	)

	in := rep.InHeadInteractions()
	require.Len(t, in, 1)
	assert.Equal(t, 3, in[0].Amount)

	out := rep.OutHeadInteractions()
	require.Len(t, out, 1)
	assert.Equal(t, 7, out[0].Amount)
}
