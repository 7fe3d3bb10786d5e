package gitmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommitRef(t *testing.T) {
	t.Parallel()

	plain := ParseCommitRef("48f8ed5347aeb9d54e7ea041b1f8d67ffe74db33")

	assert.Equal(t, "48f8ed5347aeb9d54e7ea041b1f8d67ffe74db33", plain.CommitHash)
	assert.Equal(t, UnknownRepo, plain.RepositoryName)

	suffixed := ParseCommitRef("48f8ed5347aeb9d54e7ea041b1f8d67ffe74db33-gravity")

	assert.Equal(t, "48f8ed5347aeb9d54e7ea041b1f8d67ffe74db33", suffixed.CommitHash)
	assert.Equal(t, "gravity", suffixed.RepositoryName)
}

func TestCommitRef_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", CommitRef{CommitHash: "abc", RepositoryName: UnknownRepo}.String())
	assert.Equal(t, "abc-lib", CommitRef{CommitHash: "abc", RepositoryName: "lib"}.String())
}
