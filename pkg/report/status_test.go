package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	t.Parallel()

	cases := map[string]Status{
		"success":      StatusSuccess,
		"Success":      StatusSuccess,
		"failed":       StatusFailed,
		"cerror":       StatusCompileError,
		"CompileError": StatusCompileError,
		"###":          StatusMissing,
		"blocked":      StatusBlocked,
	}

	for text, want := range cases {
		got, err := ParseStatus(text)
		require.NoError(t, err, text)
		assert.Equal(t, want, got, text)
	}

	_, err := ParseStatus("bogus")
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestStatus_Extension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "success", StatusSuccess.Extension())
	assert.Equal(t, "failed", StatusFailed.Extension())
	assert.Equal(t, "cerror", StatusCompileError.Extension())
	assert.Equal(t, "###", StatusMissing.Extension())
	assert.Equal(t, "blocked", StatusBlocked.Extension())
}

func TestStatus_IsPhysical(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusSuccess.IsPhysical())
	assert.True(t, StatusFailed.IsPhysical())
	assert.True(t, StatusCompileError.IsPhysical())
	assert.False(t, StatusMissing.IsPhysical())
	assert.False(t, StatusBlocked.IsPhysical())
}

func TestHasStatus(t *testing.T) {
	t.Parallel()

	name := "BR-foo-foo-7bb9ef5f8c_" + testRunID + "_success.yaml"

	assert.True(t, HasStatus(name, StatusSuccess))
	assert.False(t, HasStatus(name, StatusFailed))

	// Malformed names never match any status.
	assert.False(t, HasStatus("garbage.yaml", StatusSuccess))
}
