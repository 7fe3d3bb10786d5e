// Package databases derives per-revision evaluation tables from result
// files, cached incrementally on disk. Each database declares a column
// schema, resolves the result files for its project, and rebuilds its
// cache table against them, recomputing only revisions whose artifacts
// changed since the last run.
package databases

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/blamecore/pkg/blame"
	"github.com/Sumatoshi-tech/blamecore/pkg/cachetable"
)

// listSeparator joins multi-value columns inside one cache cell.
const listSeparator = ";"

// wrapLoadErr classifies a report-load failure for the rebuild loop.
// Truncated or missing artifacts only invalidate the one revision; version
// and doc-type mismatches abort the rebuild.
func wrapLoadErr(path string, err error) error {
	if errors.Is(err, blame.ErrTruncatedReport) ||
		errors.Is(err, blame.ErrMalformedResultMap) ||
		errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s: %w", cachetable.ErrIncompleteSource, path, err)
	}

	return fmt.Errorf("load report %s: %w", path, err)
}

// encodeInts joins integers into one cache cell.
func encodeInts(values []int) string {
	parts := make([]string, len(values))
	for i, value := range values {
		parts[i] = strconv.Itoa(value)
	}

	return strings.Join(parts, listSeparator)
}

// decodeInts splits a cache cell back into integers.
func decodeInts(cell string) ([]int, error) {
	if cell == "" {
		return nil, nil
	}

	parts := strings.Split(cell, listSeparator)
	values := make([]int, len(parts))

	for i, part := range parts {
		value, parseErr := strconv.Atoi(part)
		if parseErr != nil {
			return nil, fmt.Errorf("decode cache cell %q: %w", cell, parseErr)
		}

		values[i] = value
	}

	return values, nil
}
