package cachetable

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrIncompleteSource marks a source artifact that cannot yield a
	// complete row yet, typically a truncated result file. Builders wrap
	// their cause with it to have the artifact skipped instead of
	// aborting the rebuild.
	ErrIncompleteSource = errors.New("incomplete source artifact")

	// ErrMissingKey marks a lookup that failed while building a row,
	// e.g. a commit absent from the repository. Recoverable like
	// ErrIncompleteSource.
	ErrMissingKey = errors.New("missing key")
)

// RowBuilder computes the value columns for one artifact, keyed by column
// name. The returned map must cover exactly the table's declared schema.
type RowBuilder func(artifact Artifact) (map[string]string, error)

// recoverable reports whether a builder error only invalidates the one
// artifact.
func recoverable(err error) bool {
	return errors.Is(err, ErrIncompleteSource) || errors.Is(err, ErrMissingKey)
}

// Rebuild brings the table up to date against the given artifacts and
// persists it.
//
// Each processed artifact is classified by its cached row: absent rows are
// built and appended, stale rows are rebuilt in place, fresh rows are kept
// without invoking the builder. Failed artifacts whose failure is newer
// than the cached row evict that row. The updated table is written
// atomically and returned with bookkeeping columns stripped.
func (t *Table) Rebuild(processed, failed []Artifact, build RowBuilder) ([][]string, error) {
	if loadErr := t.load(); loadErr != nil {
		return nil, loadErr
	}

	missing, stale := t.classify(processed)

	for _, artifact := range missing {
		entry, buildErr := t.buildRow(artifact, build)
		if buildErr != nil {
			if recoverable(buildErr) {
				t.skipArtifact(artifact, buildErr)

				continue
			}

			return nil, buildErr
		}

		t.rows = append(t.rows, entry)
	}

	index := t.index()

	for _, artifact := range stale {
		pos, ok := index[artifact.Identity()]
		if !ok {
			continue
		}

		entry, buildErr := t.buildRow(artifact, build)
		if buildErr != nil {
			if recoverable(buildErr) {
				t.skipArtifact(artifact, buildErr)

				continue
			}

			return nil, buildErr
		}

		t.rows[pos] = entry

		if t.metrics != nil {
			t.metrics.StaleRecomputes.WithLabelValues(t.cacheID).Inc()
		}
	}

	t.evictFailed(failed)

	if persistErr := t.persist(); persistErr != nil {
		return nil, persistErr
	}

	return t.Rows()
}

// classify partitions processed artifacts into missing and stale ones.
// Fresh artifacts are dropped here and never reach the builder.
func (t *Table) classify(processed []Artifact) (missing, stale []Artifact) {
	index := t.index()

	for _, artifact := range processed {
		pos, ok := index[artifact.Identity()]
		if !ok {
			missing = append(missing, artifact)

			if t.metrics != nil {
				t.metrics.Misses.WithLabelValues(t.cacheID).Inc()
			}

			continue
		}

		if t.comparator(artifact.FreshnessToken(), t.rows[pos].token) {
			stale = append(stale, artifact)

			continue
		}

		if t.metrics != nil {
			t.metrics.Hits.WithLabelValues(t.cacheID).Inc()
		}
	}

	return missing, stale
}

// buildRow invokes the builder and validates its output against the
// declared schema.
func (t *Table) buildRow(artifact Artifact, build RowBuilder) (row, error) {
	values, buildErr := build(artifact)
	if buildErr != nil {
		return row{}, buildErr
	}

	if len(values) != len(t.schema) {
		return row{}, fmt.Errorf("%w: builder returned %d columns, schema has %d",
			ErrSchemaMismatch, len(values), len(t.schema))
	}

	ordered := make([]string, len(t.schema))

	for i, column := range t.schema {
		value, ok := values[column]
		if !ok {
			return row{}, fmt.Errorf("%w: builder omitted column %q", ErrSchemaMismatch, column)
		}

		ordered[i] = value
	}

	return row{
		values:   ordered,
		identity: artifact.Identity(),
		token:    artifact.FreshnessToken(),
	}, nil
}

// evictFailed drops rows whose revision failed more recently than the
// cached computation.
func (t *Table) evictFailed(failed []Artifact) {
	if len(failed) == 0 {
		return
	}

	newerFailures := make(map[string]struct{}, len(failed))
	index := t.index()

	for _, artifact := range failed {
		pos, ok := index[artifact.Identity()]
		if !ok {
			continue
		}

		if t.comparator(artifact.FreshnessToken(), t.rows[pos].token) {
			newerFailures[artifact.Identity()] = struct{}{}
		}
	}

	if len(newerFailures) == 0 {
		return
	}

	kept := t.rows[:0]

	for _, entry := range t.rows {
		if _, evict := newerFailures[entry.identity]; evict {
			if t.metrics != nil {
				t.metrics.Evictions.WithLabelValues(t.cacheID).Inc()
			}

			t.logger.Info("evicting row for failed revision", slog.String("revision", entry.identity))

			continue
		}

		kept = append(kept, entry)
	}

	t.rows = kept
}

// index maps row identities to positions.
func (t *Table) index() map[string]int {
	index := make(map[string]int, len(t.rows))
	for pos, entry := range t.rows {
		index[entry.identity] = pos
	}

	return index
}

// skipArtifact logs a recoverable builder failure and counts it.
func (t *Table) skipArtifact(artifact Artifact, err error) {
	t.logger.Warn("skipping artifact", slog.Any("artifact", artifact), slog.Any("error", err))

	if t.metrics != nil {
		t.metrics.BuilderFailures.WithLabelValues(t.cacheID).Inc()
	}
}
