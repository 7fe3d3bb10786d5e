package gitmeta

import (
	"errors"
	"fmt"
	"sync"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrCommitNotFound is returned when a ref cannot be resolved in the
// repository.
var ErrCommitNotFound = errors.New("commit not found")

// Repository wraps a libgit2 repository opened read-only for metadata
// lookups. Lookups are memoised; the zero value is not usable, construct
// with OpenRepository.
type Repository struct {
	repo *git2go.Repository

	mu    sync.RWMutex
	cache map[string]CommitMeta
}

// OpenRepository opens the repository at path for metadata lookups.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}

	return &Repository{
		repo:  repo,
		cache: make(map[string]CommitMeta),
	}, nil
}

// Path returns the repository path.
func (r *Repository) Path() string {
	return r.repo.Path()
}

// Free releases the underlying libgit2 handle.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// Lookup resolves a commit ref to its metadata. Results are cached for the
// lifetime of the Repository; concurrent readers are safe.
func (r *Repository) Lookup(ref CommitRef) (CommitMeta, error) {
	r.mu.RLock()
	meta, found := r.cache[ref.CommitHash]
	r.mu.RUnlock()

	if found {
		return meta, nil
	}

	meta, err := r.lookupUncached(ref)
	if err != nil {
		return CommitMeta{}, err
	}

	r.mu.Lock()
	r.cache[ref.CommitHash] = meta
	r.mu.Unlock()

	return meta, nil
}

// lookupUncached reads commit metadata straight from libgit2.
func (r *Repository) lookupUncached(ref CommitRef) (CommitMeta, error) {
	oid, oidErr := git2go.NewOid(ref.CommitHash)
	if oidErr != nil {
		return CommitMeta{}, fmt.Errorf("%w: %s: %w", ErrCommitNotFound, ref.CommitHash, oidErr)
	}

	commit, lookupErr := r.repo.LookupCommit(oid)
	if lookupErr != nil {
		return CommitMeta{}, fmt.Errorf("%w: %s: %w", ErrCommitNotFound, ref.CommitHash, lookupErr)
	}
	defer commit.Free()

	author := commit.Author()

	return CommitMeta{
		AuthorName:  author.Name,
		AuthorEmail: author.Email,
		CommitTime:  commit.Committer().When,
	}, nil
}

// LookupFunc adapts the repository into the aggregator lookup contract.
func (r *Repository) LookupFunc() LookupFunc {
	return r.Lookup
}

// TimeOrderedHashes walks history from HEAD and returns full commit hashes
// oldest first. The ordering backs predecessor pairing for diff caches.
func (r *Repository) TimeOrderedHashes() ([]string, error) {
	walk, walkErr := r.repo.Walk()
	if walkErr != nil {
		return nil, fmt.Errorf("walk repository: %w", walkErr)
	}
	defer walk.Free()

	if pushErr := walk.PushHead(); pushErr != nil {
		return nil, fmt.Errorf("walk repository: %w", pushErr)
	}

	walk.Sorting(git2go.SortTopological | git2go.SortTime | git2go.SortReverse)

	var hashes []string

	iterErr := walk.Iterate(func(commit *git2go.Commit) bool {
		hashes = append(hashes, commit.Id().String())
		commit.Free()

		return true
	})
	if iterErr != nil {
		return nil, fmt.Errorf("walk repository: %w", iterErr)
	}

	return hashes, nil
}
