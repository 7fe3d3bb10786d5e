// Package gitmeta provides the commit vocabulary shared by reports and a
// libgit2-backed lookup for commit metadata (author, commit time). Reading
// metadata is the only version-control interaction in this module.
package gitmeta

import (
	"strings"
	"time"
)

// UnknownRepo is the repository name assumed for commit hashes that carry
// no embedded repository suffix.
const UnknownRepo = "Unknown"

// refSuffixParts is the number of parts a suffixed hash splits into.
const refSuffixParts = 2

// CommitRef names a commit together with the repository it lives in.
// Reports encode refs as "<hash>" or "<hash>-<repo>".
type CommitRef struct {
	CommitHash     string
	RepositoryName string
}

// ParseCommitRef decodes a raw hash, splitting off an embedded repository
// suffix if present.
func ParseCommitRef(raw string) CommitRef {
	parts := strings.SplitN(raw, "-", refSuffixParts)
	if len(parts) == refSuffixParts {
		return CommitRef{CommitHash: parts[0], RepositoryName: parts[1]}
	}

	return CommitRef{CommitHash: raw, RepositoryName: UnknownRepo}
}

// String renders the ref back into its encoded form.
func (r CommitRef) String() string {
	if r.RepositoryName == UnknownRepo {
		return r.CommitHash
	}

	return r.CommitHash + "-" + r.RepositoryName
}

// CommitMeta is the metadata subset read for aggregation: who authored the
// commit and when it was committed.
type CommitMeta struct {
	AuthorName  string
	AuthorEmail string
	CommitTime  time.Time
}

// LookupFunc resolves a commit ref to its metadata. Aggregators take a
// LookupFunc so tests can substitute a fixed table for a real repository.
type LookupFunc func(CommitRef) (CommitMeta, error)
