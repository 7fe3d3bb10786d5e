// Package report defines the result-file vocabulary shared by the whole
// toolchain: file statuses, the result-file naming grammar, and the static
// registry of report kinds.
package report

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
)

// Status describes the outcome recorded in a result file's name.
type Status int

// File statuses, in severity order.
const (
	StatusSuccess Status = iota
	StatusFailed
	StatusCompileError
	StatusMissing
	StatusBlocked
)

// Filename extensions encoding each status.
const (
	extSuccess      = "success"
	extFailed       = "failed"
	extCompileError = "cerror"
	extMissing      = "###"
	extBlocked      = "blocked"
)

// ErrUnknownStatus is returned when a status extension cannot be decoded.
var ErrUnknownStatus = errors.New("unknown file status extension")

// statusExtensions maps each status to its filename extension.
var statusExtensions = map[Status]string{
	StatusSuccess:      extSuccess,
	StatusFailed:       extFailed,
	StatusCompileError: extCompileError,
	StatusMissing:      extMissing,
	StatusBlocked:      extBlocked,
}

// statusColors maps each status to its terminal color, mirroring the
// coloring used when tagged revisions are listed.
var statusColors = map[Status]*color.Color{
	StatusSuccess:      color.New(color.FgGreen),
	StatusFailed:       color.New(color.FgHiRed),
	StatusCompileError: color.New(color.FgRed),
	StatusMissing:      color.New(color.FgYellow),
	StatusBlocked:      color.New(color.FgBlue),
}

// Extension returns the filename extension encoding this status.
func (s Status) Extension() string {
	return statusExtensions[s]
}

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusFailed:
		return "Failed"
	case StatusCompileError:
		return "CompileError"
	case StatusMissing:
		return "Missing"
	case StatusBlocked:
		return "Blocked"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Colored returns the status name wrapped in its terminal color.
func (s Status) Colored() string {
	c, ok := statusColors[s]
	if !ok {
		return s.String()
	}

	return c.Sprint(s.String())
}

// IsPhysical reports whether the status is backed by a real result file.
// Missing and Blocked are virtual: they describe absent or excluded work.
func (s Status) IsPhysical() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCompileError:
		return true
	case StatusMissing, StatusBlocked:
		return false
	default:
		return false
	}
}

// ParseStatus decodes a status from its filename extension or its
// human-readable name.
func ParseStatus(text string) (Status, error) {
	for status, ext := range statusExtensions {
		if text == ext || text == status.String() {
			return status, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, text)
}

// HasStatus reports whether the given result-file name encodes the given
// status. Malformed names never match.
func HasStatus(fileName string, status Status) bool {
	fn, err := ParseFilename(fileName)
	if err != nil {
		return false
	}

	return fn.Status == status
}
