package databases

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/blamecore/pkg/blame"
	"github.com/Sumatoshi-tech/blamecore/pkg/cachetable"
	"github.com/Sumatoshi-tech/blamecore/pkg/config"
	"github.com/Sumatoshi-tech/blamecore/pkg/gitmeta"
	"github.com/Sumatoshi-tech/blamecore/pkg/observability"
	"github.com/Sumatoshi-tech/blamecore/pkg/report"
	"github.com/Sumatoshi-tech/blamecore/pkg/revisions"
)

// diffMetricsCacheID names the diff metrics table in the cache directory.
const diffMetricsCacheID = "b_diff_metrics"

// DiffMetricsSchema lists the diff metrics table's value columns.
var DiffMetricsSchema = []string{
	"revision",
	"delta_interactions",
	"delta_commits",
	"delta_authors",
	"avg_degree",
	"max_degree",
}

// DiffMetricsRow summarizes how one revision's interactions changed
// against its analyzed predecessor.
type DiffMetricsRow struct {
	Revision          string
	DeltaInteractions int
	DeltaCommits      int
	DeltaAuthors      int
	AvgDegree         float64
	MaxDegree         int
}

// DiffMetricsDatabase caches per-revision diff metrics computed from
// report pairs. Rows stay fresh only while both files of a pair are
// untouched.
type DiffMetricsDatabase struct {
	resolver *revisions.Resolver
	table    *cachetable.Table
	order    *TimeOrder
	lookup   gitmeta.LookupFunc
	logger   *slog.Logger
}

// NewDiffMetricsDatabase creates the diff metrics database for one
// project. The time order decides predecessor pairing, typically derived
// via TimeOrderFromRepository; the lookup resolves interacting commits to
// authors.
func NewDiffMetricsDatabase(
	cfg *config.Config,
	project string,
	order *TimeOrder,
	lookup gitmeta.LookupFunc,
	metrics *observability.CacheMetrics,
	logger *slog.Logger,
) (*DiffMetricsDatabase, error) {
	resolver, resolverErr := revisions.NewResolver(cfg, project, report.KindBlame)
	if resolverErr != nil {
		return nil, resolverErr
	}

	table, tableErr := cachetable.New(cachetable.Config{
		CacheID:    diffMetricsCacheID,
		Project:    project,
		CacheDir:   cfg.CacheDir,
		Schema:     DiffMetricsSchema,
		Comparator: cachetable.PairTokenNewer,
		Metrics:    metrics,
		Logger:     logger,
	})
	if tableErr != nil {
		return nil, tableErr
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &DiffMetricsDatabase{
		resolver: resolver,
		table:    table,
		order:    order,
		lookup:   lookup,
		logger:   logger,
	}, nil
}

// Build brings the cache up to date and returns one row per revision that
// has an analyzed predecessor.
func (db *DiffMetricsDatabase) Build(filter revisions.Filter) ([]DiffMetricsRow, error) {
	processedBy, processedErr := db.resolver.ProcessedByCommit(filter)
	if processedErr != nil {
		return nil, processedErr
	}

	failedBy, failedErr := db.resolver.FailedByCommit(filter)
	if failedErr != nil {
		return nil, failedErr
	}

	processedPairs := db.pairArtifacts(processedBy, processedBy)
	failedPairs := db.failedPairs(processedBy, failedBy)

	cells, rebuildErr := db.table.Rebuild(processedPairs, failedPairs, db.buildRow)
	if rebuildErr != nil {
		return nil, rebuildErr
	}

	return decodeDiffMetricsRows(cells)
}

// pairArtifacts pairs each head revision with its closest predecessor
// among the available revisions. Heads without a predecessor are skipped.
func (db *DiffMetricsDatabase) pairArtifacts(heads, available map[string]string) []cachetable.Artifact {
	artifacts := make([]cachetable.Artifact, 0, len(heads))

	for _, hash := range sortedHashes(heads) {
		_, predPath, found := db.predecessorIn(hash, available)
		if !found {
			continue
		}

		artifacts = db.appendPair(artifacts, hash, heads[hash], predPath)
	}

	return artifacts
}

// failedPairs builds the eviction pairs around newly failed revisions: the
// failed head against its processed predecessor, and each processed
// successor against the failed revision. Both directions target a cached
// identity touching the failure; pairing against the processed map keeps
// those identities aligned with the rows built from success data.
func (db *DiffMetricsDatabase) failedPairs(processedBy, failedBy map[string]string) []cachetable.Artifact {
	pairs := db.pairArtifacts(failedBy, processedBy)

	reachable := make(map[string]string, len(processedBy)+len(failedBy))
	for hash, path := range processedBy {
		reachable[hash] = path
	}

	// Failed result files win for shared hashes: their newer mtime is
	// what outdates the cached pair.
	for hash, path := range failedBy {
		reachable[hash] = path
	}

	for _, hash := range sortedHashes(processedBy) {
		predHash, predPath, found := db.predecessorIn(hash, reachable)
		if !found {
			continue
		}

		if _, predFailed := failedBy[predHash]; !predFailed {
			continue
		}

		pairs = db.appendPair(pairs, hash, processedBy[hash], predPath)
	}

	return pairs
}

// appendPair wraps one head/predecessor file pair, logging and skipping
// files whose names do not follow the grammar.
func (db *DiffMetricsDatabase) appendPair(
	pairs []cachetable.Artifact,
	hash, headPath, predPath string,
) []cachetable.Artifact {
	pair, pairErr := cachetable.NewPairArtifact(headPath, predPath)
	if pairErr != nil {
		db.logger.Warn("skipping unpairable revision",
			slog.String("revision", hash), slog.Any("error", pairErr))

		return pairs
	}

	return append(pairs, pair)
}

// predecessorIn resolves the head's predecessor through the time order,
// returning the matched key of the available map and its path. Result
// files may carry abbreviated hashes, so matching is by prefix.
func (db *DiffMetricsDatabase) predecessorIn(hash string, available map[string]string) (string, string, bool) {
	match := func(orderHash string) (string, string, bool) {
		if path, ok := available[orderHash]; ok {
			return orderHash, path, true
		}

		for availHash, path := range available {
			if strings.HasPrefix(orderHash, availHash) || strings.HasPrefix(availHash, orderHash) {
				return availHash, path, true
			}
		}

		return "", "", false
	}

	pred, found := db.order.Predecessor(hash, func(orderHash string) bool {
		_, _, ok := match(orderHash)

		return ok
	})
	if !found {
		return "", "", false
	}

	return match(pred)
}

// sortedHashes returns the map keys in ascending order for deterministic
// pairing.
func sortedHashes(byCommit map[string]string) []string {
	hashes := make([]string, 0, len(byCommit))
	for hash := range byCommit {
		hashes = append(hashes, hash)
	}

	sort.Strings(hashes)

	return hashes
}

// buildRow diffs one report pair and reduces the diff to scalar metrics.
func (db *DiffMetricsDatabase) buildRow(artifact cachetable.Artifact) (map[string]string, error) {
	pair, ok := artifact.(cachetable.PairArtifact)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected artifact %T", cachetable.ErrMissingKey, artifact)
	}

	head, headErr := blame.LoadFile(pair.HeadPath)
	if headErr != nil {
		return nil, wrapLoadErr(pair.HeadPath, headErr)
	}

	pred, predErr := blame.LoadFile(pair.PredPath)
	if predErr != nil {
		return nil, wrapLoadErr(pair.PredPath, predErr)
	}

	diff := blame.NewDiff(head, pred)

	authors, authorsErr := blame.CountInteractingAuthors(diff, db.lookup)
	if authorsErr != nil {
		return nil, fmt.Errorf("%w: %w", cachetable.ErrMissingKey, authorsErr)
	}

	avgDegree, maxDegree := degreeStats(blame.DegreeTuples(diff))

	return map[string]string{
		"revision":           head.HeadCommit(),
		"delta_interactions": strconv.Itoa(blame.CountInteractions(diff)),
		"delta_commits":      strconv.Itoa(blame.CountInteractingCommits(diff)),
		"delta_authors":      strconv.Itoa(authors),
		"avg_degree":         strconv.FormatFloat(avgDegree, 'g', -1, 64),
		"max_degree":         strconv.Itoa(maxDegree),
	}, nil
}

// degreeStats reduces a degree distribution to its amount-weighted mean
// and maximum degree. Amounts keep their sign; a zero total weight yields
// a zero mean.
func degreeStats(tuples []blame.DegreeTuple) (avg float64, maxDegree int) {
	var weighted, total int

	for _, tuple := range tuples {
		weighted += tuple.Degree * tuple.Amount
		total += tuple.Amount

		if tuple.Degree > maxDegree {
			maxDegree = tuple.Degree
		}
	}

	if total != 0 {
		avg = float64(weighted) / float64(total)
	}

	return avg, maxDegree
}

// decodeDiffMetricsRows turns cached cells back into typed rows.
func decodeDiffMetricsRows(cells [][]string) ([]DiffMetricsRow, error) {
	rows := make([]DiffMetricsRow, 0, len(cells))

	for _, cell := range cells {
		row := DiffMetricsRow{Revision: cell[0]}

		var parseErr error

		if row.DeltaInteractions, parseErr = strconv.Atoi(cell[1]); parseErr != nil {
			return nil, fmt.Errorf("decode cache cell %q: %w", cell[1], parseErr)
		}

		if row.DeltaCommits, parseErr = strconv.Atoi(cell[2]); parseErr != nil {
			return nil, fmt.Errorf("decode cache cell %q: %w", cell[2], parseErr)
		}

		if row.DeltaAuthors, parseErr = strconv.Atoi(cell[3]); parseErr != nil {
			return nil, fmt.Errorf("decode cache cell %q: %w", cell[3], parseErr)
		}

		if row.AvgDegree, parseErr = strconv.ParseFloat(cell[4], 64); parseErr != nil {
			return nil, fmt.Errorf("decode cache cell %q: %w", cell[4], parseErr)
		}

		if row.MaxDegree, parseErr = strconv.Atoi(cell[5]); parseErr != nil {
			return nil, fmt.Errorf("decode cache cell %q: %w", cell[5], parseErr)
		}

		rows = append(rows, row)
	}

	return rows, nil
}
