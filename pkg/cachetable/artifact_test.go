package cachetable

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRunID = "fdb09c5a-4cee-42d8-bbdc-4afe7a7864be"

func resultName(commitHash string) string {
	return "BR-gravity-gravity-" + commitHash + "_" + testRunID + "_success.yaml"
}

// writeArtifact creates an empty result file and pins its mtime.
func writeArtifact(t *testing.T, dir, commitHash string, mtime time.Time) string {
	t.Helper()

	path := filepath.Join(dir, resultName(commitHash))
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	return path
}

func TestFileArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mtime := time.Now().Truncate(time.Second)
	path := writeArtifact(t, dir, "2f0bc9cd40", mtime)

	artifact, err := NewFileArtifact(path)
	require.NoError(t, err)

	assert.Equal(t, "2f0bc9cd40", artifact.Identity())
	assert.Equal(t, strconv.FormatInt(mtime.UnixNano(), 10), artifact.FreshnessToken())
}

func TestNewFileArtifact_MalformedName(t *testing.T) {
	t.Parallel()

	_, err := NewFileArtifact(filepath.Join(t.TempDir(), "notes.txt"))
	require.Error(t, err)
}

func TestFileArtifacts_SkipsMalformed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeArtifact(t, dir, "2f0bc9cd40", time.Now())

	artifacts := FileArtifacts([]string{good, filepath.Join(dir, "notes.txt")})

	require.Len(t, artifacts, 1)
	assert.Equal(t, "2f0bc9cd40", artifacts[0].Identity())
}

func TestPairArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mtime := time.Now().Truncate(time.Second)
	headPath := writeArtifact(t, dir, "c5c7ceb08a", mtime)
	predPath := writeArtifact(t, dir, "2f0bc9cd40", mtime.Add(-time.Hour))

	pair, err := NewPairArtifact(headPath, predPath)
	require.NoError(t, err)

	assert.Equal(t, "c5c7ceb08a_2f0bc9cd40", pair.Identity())

	wantToken := strconv.FormatInt(mtime.UnixNano(), 10) +
		"_" +
		strconv.FormatInt(mtime.Add(-time.Hour).UnixNano(), 10)
	assert.Equal(t, wantToken, pair.FreshnessToken())
}

func TestIntegerTokenNewer(t *testing.T) {
	t.Parallel()

	assert.True(t, IntegerTokenNewer("20", "10"))
	assert.False(t, IntegerTokenNewer("10", "20"))
	assert.False(t, IntegerTokenNewer("10", "10"))

	// Corrupt cached tokens force a recompute.
	assert.True(t, IntegerTokenNewer("10", "garbage"))

	// Corrupt current tokens never outdate anything.
	assert.False(t, IntegerTokenNewer("garbage", "10"))
}

func TestPairTokenNewer(t *testing.T) {
	t.Parallel()

	// Head component newer.
	assert.True(t, PairTokenNewer("20_10", "10_10"))

	// Predecessor component newer.
	assert.True(t, PairTokenNewer("10_20", "10_10"))

	// Neither moved.
	assert.False(t, PairTokenNewer("10_10", "10_10"))
	assert.False(t, PairTokenNewer("5_5", "10_10"))

	// Corrupt cached tokens force a recompute.
	assert.True(t, PairTokenNewer("10_10", "garbage"))
}
