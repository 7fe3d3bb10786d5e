package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_Descriptor(t *testing.T) {
	t.Parallel()

	desc, err := KindBlame.Descriptor()
	require.NoError(t, err)

	assert.Equal(t, "BlameReport", desc.Name)
	assert.Equal(t, "BR", desc.Shorthand)
	assert.Equal(t, ".yaml", desc.FileExt)

	_, err = Kind(99).Descriptor()
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestKindByShorthand(t *testing.T) {
	t.Parallel()

	desc, err := KindByShorthand("CR")
	require.NoError(t, err)
	assert.Equal(t, KindCommit, desc.Kind)

	_, err = KindByShorthand("XX")
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestValidateDescriptors(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateDescriptors())
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "BlameReport", KindBlame.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}
