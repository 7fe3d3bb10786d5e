package databases

import (
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/blamecore/pkg/blame"
	"github.com/Sumatoshi-tech/blamecore/pkg/cachetable"
	"github.com/Sumatoshi-tech/blamecore/pkg/config"
	"github.com/Sumatoshi-tech/blamecore/pkg/observability"
	"github.com/Sumatoshi-tech/blamecore/pkg/report"
	"github.com/Sumatoshi-tech/blamecore/pkg/revisions"
)

// degreeCacheID names the degree table in the cache directory.
const degreeCacheID = "b_interaction_degrees"

// DegreeSchema lists the degree table's value columns.
var DegreeSchema = []string{"revision", "degrees", "amounts"}

// DegreeRow is one revision's interaction degree distribution.
type DegreeRow struct {
	Revision string
	Tuples   []blame.DegreeTuple
}

// DegreeDatabase caches per-revision degree distributions computed from
// single blame reports.
type DegreeDatabase struct {
	resolver *revisions.Resolver
	table    *cachetable.Table
}

// NewDegreeDatabase creates the degree database for one project. Metrics
// and logger may be nil.
func NewDegreeDatabase(
	cfg *config.Config,
	project string,
	metrics *observability.CacheMetrics,
	logger *slog.Logger,
) (*DegreeDatabase, error) {
	resolver, resolverErr := revisions.NewResolver(cfg, project, report.KindBlame)
	if resolverErr != nil {
		return nil, resolverErr
	}

	table, tableErr := cachetable.New(cachetable.Config{
		CacheID:  degreeCacheID,
		Project:  project,
		CacheDir: cfg.CacheDir,
		Schema:   DegreeSchema,
		Metrics:  metrics,
		Logger:   logger,
	})
	if tableErr != nil {
		return nil, tableErr
	}

	return &DegreeDatabase{resolver: resolver, table: table}, nil
}

// Build brings the cache up to date against the project's result files
// and returns one row per successfully analyzed revision.
func (db *DegreeDatabase) Build(filter revisions.Filter) ([]DegreeRow, error) {
	processed, processedErr := db.resolver.Processed(filter)
	if processedErr != nil {
		return nil, processedErr
	}

	failed, failedErr := db.resolver.Failed(filter)
	if failedErr != nil {
		return nil, failedErr
	}

	cells, rebuildErr := db.table.Rebuild(
		cachetable.FileArtifacts(processed),
		cachetable.FileArtifacts(failed),
		buildDegreeRow)
	if rebuildErr != nil {
		return nil, rebuildErr
	}

	return decodeDegreeRows(cells)
}

// buildDegreeRow loads one blame report and reduces it to its degree
// distribution.
func buildDegreeRow(artifact cachetable.Artifact) (map[string]string, error) {
	file, ok := artifact.(cachetable.FileArtifact)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected artifact %T", cachetable.ErrMissingKey, artifact)
	}

	rep, loadErr := blame.LoadFile(file.Path)
	if loadErr != nil {
		return nil, wrapLoadErr(file.Path, loadErr)
	}

	tuples := blame.DegreeTuples(rep)

	degrees := make([]int, len(tuples))
	amounts := make([]int, len(tuples))

	for i, tuple := range tuples {
		degrees[i] = tuple.Degree
		amounts[i] = tuple.Amount
	}

	return map[string]string{
		"revision": rep.HeadCommit(),
		"degrees":  encodeInts(degrees),
		"amounts":  encodeInts(amounts),
	}, nil
}

// decodeDegreeRows turns cached cells back into typed rows.
func decodeDegreeRows(cells [][]string) ([]DegreeRow, error) {
	rows := make([]DegreeRow, 0, len(cells))

	for _, cell := range cells {
		degrees, degreesErr := decodeInts(cell[1])
		if degreesErr != nil {
			return nil, degreesErr
		}

		amounts, amountsErr := decodeInts(cell[2])
		if amountsErr != nil {
			return nil, amountsErr
		}

		if len(degrees) != len(amounts) {
			return nil, fmt.Errorf("%w: %d degrees, %d amounts",
				cachetable.ErrSchemaMismatch, len(degrees), len(amounts))
		}

		tuples := make([]blame.DegreeTuple, len(degrees))
		for i := range degrees {
			tuples[i] = blame.DegreeTuple{Degree: degrees[i], Amount: amounts[i]}
		}

		rows = append(rows, DegreeRow{Revision: cell[0], Tuples: tuples})
	}

	return rows, nil
}
