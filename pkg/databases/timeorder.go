package databases

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedTimeOrder marks an unreadable time-order table.
var ErrMalformedTimeOrder = errors.New("malformed time-order table")

// TimeOrder is a side table fixing the chronological order of a project's
// commits. It answers "which already-analyzed revision directly precedes
// this one", the pairing question behind diff-based caches.
type TimeOrder struct {
	hashes   []string
	position map[string]int
}

// NewTimeOrder builds a time order from commit hashes listed oldest first.
func NewTimeOrder(hashes []string) *TimeOrder {
	order := &TimeOrder{
		hashes:   hashes,
		position: make(map[string]int, len(hashes)),
	}

	for pos, hash := range hashes {
		order.position[hash] = pos
	}

	return order
}

// ParseTimeOrder reads a persisted time order, one "time_id, commit_hash"
// line per commit, ascending time ids. Blank lines and #-comments are
// skipped.
func ParseTimeOrder(r io.Reader) (*TimeOrder, error) {
	var hashes []string

	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		_, hash, found := strings.Cut(line, ",")
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrMalformedTimeOrder, line)
		}

		hashes = append(hashes, strings.TrimSpace(hash))
	}

	if scanErr := scanner.Err(); scanErr != nil {
		return nil, fmt.Errorf("read time-order table: %w", scanErr)
	}

	return NewTimeOrder(hashes), nil
}

// HistorySource yields a project's commit hashes oldest first; satisfied
// by gitmeta.Repository.
type HistorySource interface {
	TimeOrderedHashes() ([]string, error)
}

// TimeOrderFromRepository builds the time order from the project's
// repository history.
func TimeOrderFromRepository(src HistorySource) (*TimeOrder, error) {
	hashes, err := src.TimeOrderedHashes()
	if err != nil {
		return nil, fmt.Errorf("derive time order: %w", err)
	}

	return NewTimeOrder(hashes), nil
}

// TimeID returns the position of a commit in the order. Short hashes match
// by prefix.
func (o *TimeOrder) TimeID(hash string) (int, bool) {
	if pos, ok := o.position[hash]; ok {
		return pos, true
	}

	for pos, full := range o.hashes {
		if strings.HasPrefix(full, hash) || strings.HasPrefix(hash, full) {
			return pos, true
		}
	}

	return 0, false
}

// Predecessor returns the newest commit older than hash for which
// available returns true.
func (o *TimeOrder) Predecessor(hash string, available func(hash string) bool) (string, bool) {
	pos, ok := o.TimeID(hash)
	if !ok {
		return "", false
	}

	for candidate := pos - 1; candidate >= 0; candidate-- {
		if available(o.hashes[candidate]) {
			return o.hashes[candidate], true
		}
	}

	return "", false
}

// Len returns the number of ordered commits.
func (o *TimeOrder) Len() int {
	return len(o.hashes)
}
