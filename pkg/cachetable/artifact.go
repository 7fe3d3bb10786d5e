package cachetable

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/blamecore/pkg/report"
)

// Artifact is a source of one cache row. Identity is the opaque revision
// key the row is indexed by; the freshness token is an opaque, comparable
// value deciding whether the cached row is up to date.
type Artifact interface {
	Identity() string
	FreshnessToken() string
}

// TokenComparator reports whether the current artifact token is newer than
// the cached one.
type TokenComparator func(current, cached string) bool

// tokenSeparator joins the components of a paired token or identity.
const tokenSeparator = "_"

// pairComponents is the number of components in a paired token.
const pairComponents = 2

// FileArtifact is a single result file. Identity is the commit hash
// embedded in the file name; the token is the file's mtime in nanoseconds.
type FileArtifact struct {
	Path       string
	commitHash string
}

// NewFileArtifact wraps a result file whose name follows the naming
// grammar.
func NewFileArtifact(path string) (FileArtifact, error) {
	fn, err := report.ParseFilename(filepath.Base(path))
	if err != nil {
		return FileArtifact{}, err
	}

	return FileArtifact{Path: path, commitHash: fn.CommitHash}, nil
}

// FileArtifacts wraps a list of result files, skipping malformed names.
func FileArtifacts(paths []string) []Artifact {
	artifacts := make([]Artifact, 0, len(paths))

	for _, path := range paths {
		artifact, err := NewFileArtifact(path)
		if err != nil {
			continue
		}

		artifacts = append(artifacts, artifact)
	}

	return artifacts
}

// Identity implements Artifact.
func (a FileArtifact) Identity() string {
	return a.commitHash
}

// FreshnessToken implements Artifact.
func (a FileArtifact) FreshnessToken() string {
	return strconv.FormatInt(mtimeOf(a.Path), 10)
}

// String names the artifact in logs.
func (a FileArtifact) String() string {
	return a.Path
}

// PairArtifact is a result file paired with its predecessor's, used by
// diff-based caches. Identity and token concatenate the per-file values.
type PairArtifact struct {
	HeadPath string
	PredPath string
	headHash string
	predHash string
}

// NewPairArtifact wraps a head/predecessor result file pair.
func NewPairArtifact(headPath, predPath string) (PairArtifact, error) {
	headFn, headErr := report.ParseFilename(filepath.Base(headPath))
	if headErr != nil {
		return PairArtifact{}, headErr
	}

	predFn, predErr := report.ParseFilename(filepath.Base(predPath))
	if predErr != nil {
		return PairArtifact{}, predErr
	}

	return PairArtifact{
		HeadPath: headPath,
		PredPath: predPath,
		headHash: headFn.CommitHash,
		predHash: predFn.CommitHash,
	}, nil
}

// Identity implements Artifact.
func (a PairArtifact) Identity() string {
	return a.headHash + tokenSeparator + a.predHash
}

// FreshnessToken implements Artifact.
func (a PairArtifact) FreshnessToken() string {
	return strconv.FormatInt(mtimeOf(a.HeadPath), 10) +
		tokenSeparator +
		strconv.FormatInt(mtimeOf(a.PredPath), 10)
}

// String names the artifact pair in logs.
func (a PairArtifact) String() string {
	return fmt.Sprintf("%s <- %s", a.HeadPath, a.PredPath)
}

// IntegerTokenNewer compares single mtime tokens numerically. An
// unparseable cached token counts as outdated so the row gets recomputed.
func IntegerTokenNewer(current, cached string) bool {
	currentVal, currentErr := strconv.ParseInt(current, 10, 64)
	if currentErr != nil {
		return false
	}

	cachedVal, cachedErr := strconv.ParseInt(cached, 10, 64)
	if cachedErr != nil {
		return true
	}

	return currentVal > cachedVal
}

// PairTokenNewer compares concatenated pair tokens component-wise: a pair
// is newer if either underlying file moved forward in time, the head
// component deciding first.
func PairTokenNewer(current, cached string) bool {
	currentParts := strings.SplitN(current, tokenSeparator, pairComponents)
	cachedParts := strings.SplitN(cached, tokenSeparator, pairComponents)

	if len(currentParts) != pairComponents || len(cachedParts) != pairComponents {
		return len(cachedParts) != pairComponents
	}

	if IntegerTokenNewer(currentParts[0], cachedParts[0]) {
		return true
	}

	return IntegerTokenNewer(currentParts[1], cachedParts[1])
}

// mtimeOf returns the file's modification time in nanoseconds, or zero for
// files that cannot be statted.
func mtimeOf(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}

	return info.ModTime().UnixNano()
}
