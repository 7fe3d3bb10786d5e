package databases

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTimeOrder() *TimeOrder {
	return NewTimeOrder([]string{"2f0bc9cd40", "c5c7ceb08a", "ef364d3abc"})
}

func TestDiffMetricsDatabase_Build(t *testing.T) {
	t.Parallel()

	resultDir := t.TempDir()
	cacheDir := t.TempDir()
	now := time.Now()

	writeReport(t, resultDir, "2f0bc9cd40", reportYAML(22, 5), now)
	writeReport(t, resultDir, "c5c7ceb08a", reportYAML(19, 5), now)

	cfg := testConfig(resultDir, cacheDir)

	db, err := NewDiffMetricsDatabase(cfg, testProject, testTimeOrder(), fixedLookup("alice"), nil, nil)
	require.NoError(t, err)

	rows, err := db.Build(nil)
	require.NoError(t, err)

	// Only the second revision has an analyzed predecessor.
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "c5c7ceb08a", row.Revision)
	assert.Equal(t, 3, row.DeltaInteractions)
	assert.Equal(t, 1, row.DeltaCommits)
	assert.Equal(t, 1, row.DeltaAuthors)
	assert.InDelta(t, 1.0, row.AvgDegree, 1e-9)
	assert.Equal(t, 1, row.MaxDegree)
}

func TestDiffMetricsDatabase_StaleOnEitherSide(t *testing.T) {
	t.Parallel()

	resultDir := t.TempDir()
	cacheDir := t.TempDir()
	now := time.Now()

	predPath := writeReport(t, resultDir, "2f0bc9cd40", reportYAML(22, 5), now)
	writeReport(t, resultDir, "c5c7ceb08a", reportYAML(19, 5), now)

	cfg := testConfig(resultDir, cacheDir)

	db, err := NewDiffMetricsDatabase(cfg, testProject, testTimeOrder(), fixedLookup("alice"), nil, nil)
	require.NoError(t, err)

	first, err := db.Build(nil)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Touching only the predecessor still invalidates the pair.
	later := now.Add(time.Hour)
	require.NoError(t, os.WriteFile(predPath, []byte(reportYAML(25, 5)), 0o600))
	require.NoError(t, os.Chtimes(predPath, later, later))

	reopened, err := NewDiffMetricsDatabase(cfg, testProject, testTimeOrder(), fixedLookup("alice"), nil, nil)
	require.NoError(t, err)

	second, err := reopened.Build(nil)
	require.NoError(t, err)
	require.Len(t, second, 1)

	// 25 -> 19 yields a delta of 6 instead of 3.
	assert.Equal(t, 6, second[0].DeltaInteractions)
}

func TestDiffMetricsDatabase_EvictsPairOnFailedPredecessor(t *testing.T) {
	t.Parallel()

	resultDir := t.TempDir()
	cacheDir := t.TempDir()
	now := time.Now()

	writeReport(t, resultDir, "2f0bc9cd40", reportYAML(22, 5), now)
	writeReport(t, resultDir, "c5c7ceb08a", reportYAML(19, 5), now)

	cfg := testConfig(resultDir, cacheDir)

	db, err := NewDiffMetricsDatabase(cfg, testProject, testTimeOrder(), fixedLookup("alice"), nil, nil)
	require.NoError(t, err)

	first, err := db.Build(nil)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// The predecessor now fails with a newer result file. The cached pair
	// row was computed from its stale success data and must go.
	writeFailedReport(t, resultDir, "2f0bc9cd40", now.Add(time.Hour))

	reopened, err := NewDiffMetricsDatabase(cfg, testProject, testTimeOrder(), fixedLookup("alice"), nil, nil)
	require.NoError(t, err)

	rows, err := reopened.Build(nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDiffMetricsDatabase_FailedMiddleRevisionRepairsChain(t *testing.T) {
	t.Parallel()

	resultDir := t.TempDir()
	cacheDir := t.TempDir()
	now := time.Now()

	writeReport(t, resultDir, "2f0bc9cd40", reportYAML(22, 5), now)
	writeReport(t, resultDir, "c5c7ceb08a", reportYAML(19, 5), now)
	writeReport(t, resultDir, "ef364d3abc", reportYAML(25, 5), now)

	cfg := testConfig(resultDir, cacheDir)

	db, err := NewDiffMetricsDatabase(cfg, testProject, testTimeOrder(), fixedLookup("alice"), nil, nil)
	require.NoError(t, err)

	first, err := db.Build(nil)
	require.NoError(t, err)
	require.Len(t, first, 2)

	// The middle revision fails: both cached pairs touching it are
	// evicted and the last revision pairs with the first instead.
	writeFailedReport(t, resultDir, "c5c7ceb08a", now.Add(time.Hour))

	reopened, err := NewDiffMetricsDatabase(cfg, testProject, testTimeOrder(), fixedLookup("alice"), nil, nil)
	require.NoError(t, err)

	rows, err := reopened.Build(nil)
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, "ef364d3abc", rows[0].Revision)

	// 25 against 22 over the changed key.
	assert.Equal(t, 3, rows[0].DeltaInteractions)
}

func TestDiffMetricsDatabase_NoPredecessor(t *testing.T) {
	t.Parallel()

	resultDir := t.TempDir()
	cacheDir := t.TempDir()

	writeReport(t, resultDir, "2f0bc9cd40", reportYAML(22, 5), time.Now())

	cfg := testConfig(resultDir, cacheDir)

	db, err := NewDiffMetricsDatabase(cfg, testProject, testTimeOrder(), fixedLookup("alice"), nil, nil)
	require.NoError(t, err)

	rows, err := db.Build(nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
