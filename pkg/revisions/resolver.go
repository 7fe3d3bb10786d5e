// Package revisions locates per-revision result files. Result files are
// grouped by the commit hash embedded in their name; when a revision was
// rerun, the newest file decides its status.
package revisions

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/Sumatoshi-tech/blamecore/pkg/config"
	"github.com/Sumatoshi-tech/blamecore/pkg/report"
)

// Filter excludes files from a listing: it returns true for file names
// that must not be considered. Used to scope results to a case study.
type Filter func(fileName string) bool

// TaggedRevision pairs a commit hash with the status derived for it.
type TaggedRevision struct {
	CommitHash string
	Status     report.Status
}

// Resolver scans one project's result directory for files of one report
// kind. Construct once per (project, kind) pair; immutable afterwards.
type Resolver struct {
	cfg     *config.Config
	project string
	desc    report.Descriptor
}

// NewResolver creates a resolver for the given project and report kind.
func NewResolver(cfg *config.Config, projectName string, kind report.Kind) (*Resolver, error) {
	desc, err := kind.Descriptor()
	if err != nil {
		return nil, err
	}

	return &Resolver{cfg: cfg, project: projectName, desc: desc}, nil
}

// resultDir is the project's result directory.
func (r *Resolver) resultDir() string {
	return filepath.Join(r.cfg.ResultDir, r.project)
}

// GroupByCommit returns all result files of the resolver's report kind,
// grouped by embedded commit hash, regardless of status. A non-existent
// result directory yields an empty map, not an error.
func (r *Resolver) GroupByCommit() (map[string][]string, error) {
	groups := make(map[string][]string)

	root := r.resultDir()

	info, statErr := os.Stat(root)
	if statErr != nil || !info.IsDir() {
		return groups, nil
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		fn, parseErr := report.ParseFilename(d.Name())
		if parseErr != nil || fn.Shorthand != r.desc.Shorthand {
			return nil
		}

		groups[fn.CommitHash] = append(groups[fn.CommitHash], path)

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scan result dir %s: %w", root, walkErr)
	}

	return groups, nil
}

// Processed returns, for each revision, the newest result file whose status
// is Success. The optional filter excludes file names it returns true for.
func (r *Resolver) Processed(filter Filter) ([]string, error) {
	return r.newestWithStatus(filter, report.StatusSuccess)
}

// Failed returns, for each revision, the newest result file whose status is
// Failed or CompileError.
func (r *Resolver) Failed(filter Filter) ([]string, error) {
	return r.newestWithStatus(filter, report.StatusFailed, report.StatusCompileError)
}

// ProcessedByCommit maps each successfully processed revision to its
// newest result file.
func (r *Resolver) ProcessedByCommit(filter Filter) (map[string]string, error) {
	paths, err := r.Processed(filter)
	if err != nil {
		return nil, err
	}

	return byCommit(paths), nil
}

// FailedByCommit maps each failed revision to its newest result file.
func (r *Resolver) FailedByCommit(filter Filter) (map[string]string, error) {
	paths, err := r.Failed(filter)
	if err != nil {
		return nil, err
	}

	return byCommit(paths), nil
}

// byCommit indexes result files by their embedded commit hash.
func byCommit(paths []string) map[string]string {
	indexed := make(map[string]string, len(paths))

	for _, path := range paths {
		fn, parseErr := report.ParseFilename(filepath.Base(path))
		if parseErr != nil {
			continue
		}

		indexed[fn.CommitHash] = path
	}

	return indexed
}

// ProcessedRevisions returns the commit hashes of successfully processed
// revisions.
func (r *Resolver) ProcessedRevisions() ([]string, error) {
	paths, err := r.Processed(nil)
	if err != nil {
		return nil, err
	}

	hashes := make([]string, 0, len(paths))

	for _, path := range paths {
		fn, parseErr := report.ParseFilename(filepath.Base(path))
		if parseErr != nil {
			continue
		}

		hashes = append(hashes, fn.CommitHash)
	}

	return hashes, nil
}

// FailedRevisions returns the commit hashes whose newest result file has
// status Failed.
func (r *Resolver) FailedRevisions() ([]string, error) {
	groups, err := r.GroupByCommit()
	if err != nil {
		return nil, err
	}

	var hashes []string

	for commitHash, paths := range groups {
		newest := newestPath(paths)
		if report.HasStatus(filepath.Base(newest), report.StatusFailed) {
			hashes = append(hashes, commitHash)
		}
	}

	sort.Strings(hashes)

	return hashes, nil
}

// Tagged derives one status per revision. A revision blocked by project
// configuration is tagged Blocked when tagBlocked is set, overriding any
// file-derived status; otherwise the newest file's status decides, or
// Missing if that file does not follow the naming grammar.
func (r *Resolver) Tagged(tagBlocked bool) ([]TaggedRevision, error) {
	groups, err := r.GroupByCommit()
	if err != nil {
		return nil, err
	}

	tagged := make([]TaggedRevision, 0, len(groups))

	for commitHash, paths := range groups {
		tagged = append(tagged, TaggedRevision{
			CommitHash: commitHash,
			Status:     r.tagFor(commitHash, paths, tagBlocked),
		})
	}

	sort.Slice(tagged, func(i, j int) bool { return tagged[i].CommitHash < tagged[j].CommitHash })

	return tagged, nil
}

// tagFor derives the status of one revision from its file group.
func (r *Resolver) tagFor(commitHash string, paths []string, tagBlocked bool) report.Status {
	if tagBlocked && r.cfg.IsBlocked(r.project, commitHash) {
		return report.StatusBlocked
	}

	newest := newestPath(paths)

	fn, parseErr := report.ParseFilename(filepath.Base(newest))
	if parseErr != nil || fn.Shorthand != r.desc.Shorthand {
		return report.StatusMissing
	}

	return fn.Status
}

// SupplementaryByCommit returns supplementary files of the resolver's
// report kind carrying the given info type, grouped by commit hash.
func (r *Resolver) SupplementaryByCommit(infoType string) (map[string][]string, error) {
	groups := make(map[string][]string)

	root := r.resultDir()

	info, statErr := os.Stat(root)
	if statErr != nil || !info.IsDir() {
		return groups, nil
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		fn, parseErr := report.ParseSupplementaryFilename(d.Name())
		if parseErr != nil || fn.Shorthand != r.desc.Shorthand {
			return nil
		}

		if infoType != "" && fn.InfoType != infoType {
			return nil
		}

		groups[fn.CommitHash] = append(groups[fn.CommitHash], path)

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scan result dir %s: %w", root, walkErr)
	}

	return groups, nil
}

// newestWithStatus returns the newest file per revision, restricted to the
// given statuses, sorted by commit hash for determinism.
func (r *Resolver) newestWithStatus(filter Filter, statuses ...report.Status) ([]string, error) {
	groups, err := r.GroupByCommit()
	if err != nil {
		return nil, err
	}

	commitHashes := make([]string, 0, len(groups))
	for commitHash := range groups {
		commitHashes = append(commitHashes, commitHash)
	}

	sort.Strings(commitHashes)

	var result []string

	for _, commitHash := range commitHashes {
		newest := newestPath(groups[commitHash])

		if filter != nil && filter(filepath.Base(newest)) {
			continue
		}

		for _, status := range statuses {
			if report.HasStatus(filepath.Base(newest), status) {
				result = append(result, newest)

				break
			}
		}
	}

	return result, nil
}

// newestPath picks the file with the largest mtime. Ties break on path so
// repeated calls against an unchanged filesystem pick the same file.
func newestPath(paths []string) string {
	newest := paths[0]
	newestMtime := mtimeOf(newest)

	for _, path := range paths[1:] {
		mtime := mtimeOf(path)
		if mtime > newestMtime || (mtime == newestMtime && path > newest) {
			newest = path
			newestMtime = mtime
		}
	}

	return newest
}

// mtimeOf returns the file's modification time in nanoseconds, or zero when
// the file vanished between scan and stat.
func mtimeOf(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}

	return info.ModTime().UnixNano()
}
