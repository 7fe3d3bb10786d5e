// Package config holds the run configuration: where result files live,
// where cache tables are persisted, and per-project revision blocks.
// A Config is constructed once per run and treated as immutable afterwards.
package config

import "errors"

// Config is the top-level configuration struct for blamecore.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	ResultDir string                   `mapstructure:"result_dir"`
	CacheDir  string                   `mapstructure:"data_cache"`
	Projects  map[string]ProjectConfig `mapstructure:"projects"`
}

// ProjectConfig holds per-project settings.
type ProjectConfig struct {
	// BlockedRevisions lists commit hashes excluded from analysis; tagged
	// revision listings report them as Blocked regardless of result files.
	BlockedRevisions []string `mapstructure:"blocked_revisions"`
}

// ErrMissingResultDir is returned when no result directory is configured.
var ErrMissingResultDir = errors.New("config: result_dir must not be empty")

// ErrMissingCacheDir is returned when no cache directory is configured.
var ErrMissingCacheDir = errors.New("config: data_cache must not be empty")

// Validate checks the configuration for structural errors.
func (c *Config) Validate() error {
	if c.ResultDir == "" {
		return ErrMissingResultDir
	}

	if c.CacheDir == "" {
		return ErrMissingCacheDir
	}

	return nil
}

// IsBlocked reports whether the revision is blocked for the project.
// Prefix matching allows short hashes in the block list.
func (c *Config) IsBlocked(projectName, commitHash string) bool {
	project, found := c.Projects[projectName]
	if !found {
		return false
	}

	for _, blocked := range project.BlockedRevisions {
		if matchesRevision(blocked, commitHash) {
			return true
		}
	}

	return false
}

// matchesRevision compares two hashes, treating the shorter one as a
// prefix of the longer.
func matchesRevision(a, b string) bool {
	if len(a) <= len(b) {
		return b[:len(a)] == a
	}

	return a[:len(b)] == b
}
