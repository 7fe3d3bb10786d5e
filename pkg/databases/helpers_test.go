package databases

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/blamecore/pkg/config"
	"github.com/Sumatoshi-tech/blamecore/pkg/gitmeta"
)

const (
	testProject = "gravity"
	testRunID   = "fdb09c5a-4cee-42d8-bbdc-4afe7a7864be"

	hashInterOne = "48f8ed5347aeb9d54e7ea041b1f8d67ffe74db33"
	hashInterTwo = "a387695a1a2e52dcb1c5b21e73d2fd5a6aadbaf9"
)

// reportYAML renders a minimal blame report with the given interaction
// amounts for the two fixed keys.
func reportYAML(amountOne, amountTwo int) string {
	return `---
DocType: BlameReport
Version: 4
---
funcs-in-module: 1
insts-in-module: 10
---
result-map:
  bool_exec:
    demangled-name: bool_exec
    insts:
      - base-hash: e8999a84efbd9c3e739bff7af39500d14e61bfbc
        interacting-hashes:
          - ` + hashInterOne + `
        amount: ` + itoa(amountOne) + `
      - base-hash: e8999a84efbd9c3e739bff7af39500d14e61bfbc
        interacting-hashes:
          - ` + hashInterOne + `
          - ` + hashInterTwo + `
        amount: ` + itoa(amountTwo) + `
`
}

func itoa(v int) string {
	return strconv.Itoa(v)
}

// writeReport writes a result file with the given content and mtime into
// the project's result directory.
func writeReport(t *testing.T, resultDir, commitHash, content string, mtime time.Time) string {
	t.Helper()

	projectDir := filepath.Join(resultDir, testProject)
	require.NoError(t, os.MkdirAll(projectDir, 0o750))

	name := "BR-" + testProject + "-" + testProject + "-" + commitHash + "_" + testRunID + "_success.yaml"
	path := filepath.Join(projectDir, name)

	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	return path
}

// writeFailedReport records a failed rerun for the revision, its mtime
// deciding whether it outdates cached rows.
func writeFailedReport(t *testing.T, resultDir, commitHash string, mtime time.Time) string {
	t.Helper()

	projectDir := filepath.Join(resultDir, testProject)
	require.NoError(t, os.MkdirAll(projectDir, 0o750))

	name := "BR-" + testProject + "-" + testProject + "-" + commitHash +
		"_11111111-1111-1111-1111-111111111111_failed.yaml"
	path := filepath.Join(projectDir, name)

	require.NoError(t, os.WriteFile(path, nil, 0o600))
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	return path
}

func testConfig(resultDir, cacheDir string) *config.Config {
	return &config.Config{ResultDir: resultDir, CacheDir: cacheDir}
}

// fixedLookup serves every commit with the same author.
func fixedLookup(author string) gitmeta.LookupFunc {
	return func(gitmeta.CommitRef) (gitmeta.CommitMeta, error) {
		return gitmeta.CommitMeta{AuthorName: author}, nil
	}
}
