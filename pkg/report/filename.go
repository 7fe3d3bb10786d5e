package report

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// Result files are named after the grammar
//
//	{shorthand}-{project}-{binary}-{commit}_{uuid}_{status}{ext}
//
// where status is one of the extensions from status.go. Supplementary files
// insert a literal SUPPL- segment and carry a free-form info type instead of
// a status:
//
//	{shorthand}-SUPPL-{project}-{binary}-{commit}_{uuid}_{info_type}{ext}
var (
	resultFileRegex = regexp.MustCompile(
		`^(?P<shorthand>.*)-(?P<project>.*)-(?P<binary>.*)-(?P<commit>.*)_` +
			`(?P<uuid>[0-9a-fA-F-]*)_` +
			`(?P<status>success|failed|cerror|###|blocked)` +
			`(?P<ext>\..*)?$`,
	)

	supplementaryFileRegex = regexp.MustCompile(
		`^(?P<shorthand>.*)-SUPPL-(?P<project>.*)-(?P<binary>.*)-(?P<commit>.*)_` +
			`(?P<uuid>[0-9a-fA-F-]*)_` +
			`(?P<info_type>[^._]+)` +
			`(?P<ext>\..*)?$`,
	)
)

// ErrMalformedFilename is returned when a file name does not follow the
// result-file grammar.
var ErrMalformedFilename = errors.New("malformed result file name")

// Filename is a decoded result-file name.
type Filename struct {
	Shorthand  string
	Project    string
	Binary     string
	CommitHash string
	UUID       string
	Status     Status
	FileExt    string
}

// ParseFilename decodes a result-file name against the naming grammar.
func ParseFilename(fileName string) (Filename, error) {
	match := resultFileRegex.FindStringSubmatch(fileName)
	if match == nil {
		return Filename{}, fmt.Errorf("%w: %q", ErrMalformedFilename, fileName)
	}

	group := submatchMap(resultFileRegex, match)

	status, err := ParseStatus(group["status"])
	if err != nil {
		return Filename{}, fmt.Errorf("decode %q: %w", fileName, err)
	}

	return Filename{
		Shorthand:  group["shorthand"],
		Project:    group["project"],
		Binary:     group["binary"],
		CommitHash: group["commit"],
		UUID:       group["uuid"],
		Status:     status,
		FileExt:    group["ext"],
	}, nil
}

// IsResultFile reports whether the file name follows the result-file grammar.
func IsResultFile(fileName string) bool {
	return resultFileRegex.MatchString(fileName)
}

// String renders the filename back into its grammar form.
func (f Filename) String() string {
	return fmt.Sprintf(
		"%s-%s-%s-%s_%s_%s%s",
		f.Shorthand, f.Project, f.Binary, f.CommitHash,
		f.UUID, f.Status.Extension(), f.FileExt,
	)
}

// RunID decodes the UUID segment assigned to the producing run.
func (f Filename) RunID() (uuid.UUID, error) {
	id, err := uuid.Parse(f.UUID)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("decode run id of %q: %w", f.String(), err)
	}

	return id, nil
}

// WithStatus returns a copy of the filename carrying the new status.
func (f Filename) WithStatus(status Status) Filename {
	f.Status = status

	return f
}

// NewFilename builds a result-file name for a fresh run of the given report
// kind. The run id distinguishes reruns for the same revision.
func NewFilename(
	desc Descriptor,
	project, binary, commitHash string,
	runID uuid.UUID,
	status Status,
) Filename {
	return Filename{
		Shorthand:  desc.Shorthand,
		Project:    project,
		Binary:     binary,
		CommitHash: commitHash,
		UUID:       runID.String(),
		Status:     status,
		FileExt:    desc.FileExt,
	}
}

// SupplementaryFilename is a decoded supplementary result-file name.
type SupplementaryFilename struct {
	Shorthand  string
	Project    string
	Binary     string
	CommitHash string
	UUID       string
	InfoType   string
	FileExt    string
}

// ParseSupplementaryFilename decodes a supplementary result-file name.
func ParseSupplementaryFilename(fileName string) (SupplementaryFilename, error) {
	match := supplementaryFileRegex.FindStringSubmatch(fileName)
	if match == nil {
		return SupplementaryFilename{}, fmt.Errorf("%w: %q", ErrMalformedFilename, fileName)
	}

	group := submatchMap(supplementaryFileRegex, match)

	return SupplementaryFilename{
		Shorthand:  group["shorthand"],
		Project:    group["project"],
		Binary:     group["binary"],
		CommitHash: group["commit"],
		UUID:       group["uuid"],
		InfoType:   group["info_type"],
		FileExt:    group["ext"],
	}, nil
}

// String renders the supplementary filename back into its grammar form.
func (f SupplementaryFilename) String() string {
	return fmt.Sprintf(
		"%s-SUPPL-%s-%s-%s_%s_%s%s",
		f.Shorthand, f.Project, f.Binary, f.CommitHash,
		f.UUID, f.InfoType, f.FileExt,
	)
}

// submatchMap maps named capture groups to their submatch values.
func submatchMap(re *regexp.Regexp, match []string) map[string]string {
	group := make(map[string]string, len(match))

	for i, name := range re.SubexpNames() {
		if name != "" && i < len(match) {
			group[name] = match[i]
		}
	}

	return group
}
