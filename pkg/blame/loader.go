package blame

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/blamecore/pkg/gitmeta"
	"github.com/Sumatoshi-tech/blamecore/pkg/report"
)

// MinSupportedVersion is the oldest blame report format this loader
// understands.
const MinSupportedVersion = 4

// docType is the expected DocType of the version header.
const docType = "BlameReport"

// Parse failures are fatal for the affected file and propagated to the
// caller of the loader; nothing here retries.
var (
	ErrWrongDocType       = errors.New("wrong report document type")
	ErrUnsupportedVersion = errors.New("unsupported report version")
	ErrTruncatedReport    = errors.New("truncated report: missing document")
	ErrMalformedResultMap = errors.New("malformed result map")
)

// versionHeader is the first YAML document of every report file.
type versionHeader struct {
	DocType string `yaml:"DocType"`
	Version int    `yaml:"Version"`
}

// requireType fails unless the header announces the expected document type.
func (h versionHeader) requireType(expected string) error {
	if h.DocType != expected {
		return fmt.Errorf("%w: got %q, want %q", ErrWrongDocType, h.DocType, expected)
	}

	return nil
}

// requireVersionAtLeast fails for reports older than the supported format.
func (h versionHeader) requireVersionAtLeast(minVersion int) error {
	if h.Version < minVersion {
		return fmt.Errorf("%w: got %d, want >= %d", ErrUnsupportedVersion, h.Version, minVersion)
	}

	return nil
}

// rawMetadata is the optional metadata document between header and result
// map.
type rawMetadata struct {
	FuncsInModule    int  `yaml:"funcs-in-module"`
	InstsInModule    int  `yaml:"insts-in-module"`
	EmptyTrackedVars *int `yaml:"phasar-empty-tracked-vars"`
	TotalTrackedVars *int `yaml:"phasar-total-tracked-vars"`
}

// toMetadata converts the raw document into the model representation.
func (m rawMetadata) toMetadata() Metadata {
	meta := Metadata{
		NumFunctions:    m.FuncsInModule,
		NumInstructions: m.InstsInModule,
	}

	if m.EmptyTrackedVars != nil && m.TotalTrackedVars != nil {
		meta.EmptyTrackedVars = *m.EmptyTrackedVars
		meta.TotalTrackedVars = *m.TotalTrackedVars
		meta.HasTrackedVarStats = true
	}

	return meta
}

// rawFunctionEntry is one function's section in the result map.
type rawFunctionEntry struct {
	DemangledName string        `yaml:"demangled-name"`
	Insts         []rawInstSect `yaml:"insts"`
}

// rawInstSect is one interaction section.
type rawInstSect struct {
	BaseHash          string   `yaml:"base-hash"`
	InteractingHashes []string `yaml:"interacting-hashes"`
	Amount            int      `yaml:"amount"`
}

// LoadFile parses the result file at path into a Report. The head commit is
// taken from the file name, which must follow the result-file grammar.
func LoadFile(path string) (*Report, error) {
	fn, nameErr := report.ParseFilename(filepath.Base(path))
	if nameErr != nil {
		return nil, nameErr
	}

	f, openErr := os.Open(path)
	if openErr != nil {
		return nil, fmt.Errorf("open report: %w", openErr)
	}
	defer f.Close()

	return Load(f, fn.CommitHash, path)
}

// Load parses report bytes into a Report with the given head commit and
// originating path. The stream holds a version header document, an optional
// module metadata document, and the result-map document.
func Load(r io.Reader, headCommit, path string) (*Report, error) {
	dec := yaml.NewDecoder(r)

	var header versionHeader

	headerErr := decodeDocument(dec, &header, "version header")
	if headerErr != nil {
		return nil, headerErr
	}

	typeErr := header.requireType(docType)
	if typeErr != nil {
		return nil, typeErr
	}

	versionErr := header.requireVersionAtLeast(MinSupportedVersion)
	if versionErr != nil {
		return nil, versionErr
	}

	meta, resultNode, bodyErr := decodeBody(dec)
	if bodyErr != nil {
		return nil, bodyErr
	}

	entries, entriesErr := decodeResultMap(resultNode)
	if entriesErr != nil {
		return nil, entriesErr
	}

	return NewReport(headCommit, path, meta, entries), nil
}

// decodeDocument reads one YAML document, mapping EOF to a truncation error.
func decodeDocument(dec *yaml.Decoder, out any, what string) error {
	err := dec.Decode(out)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %s", ErrTruncatedReport, what)
		}

		return fmt.Errorf("decode %s: %w", what, err)
	}

	return nil
}

// decodeBody reads the metadata and result-map documents. The metadata
// document is optional: producers may emit the result map directly after
// the version header.
func decodeBody(dec *yaml.Decoder) (Metadata, *yaml.Node, error) {
	var doc yaml.Node

	docErr := decodeDocument(dec, &doc, "result map")
	if docErr != nil {
		return Metadata{}, nil, docErr
	}

	if node := mappingValue(&doc, "result-map"); node != nil {
		return Metadata{}, node, nil
	}

	var rawMeta rawMetadata

	metaErr := doc.Decode(&rawMeta)
	if metaErr != nil {
		return Metadata{}, nil, fmt.Errorf("decode module metadata: %w", metaErr)
	}

	docErr = decodeDocument(dec, &doc, "result map")
	if docErr != nil {
		return Metadata{}, nil, docErr
	}

	node := mappingValue(&doc, "result-map")
	if node == nil {
		return Metadata{}, nil, fmt.Errorf("%w: no result-map key", ErrMalformedResultMap)
	}

	return rawMeta.toMetadata(), node, nil
}

// decodeResultMap walks the result-map mapping in document order so the
// report preserves function declaration order.
func decodeResultMap(node *yaml.Node) ([]FunctionEntry, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: result-map is not a mapping", ErrMalformedResultMap)
	}

	entries := make([]FunctionEntry, 0, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value

		var raw rawFunctionEntry

		decodeErr := node.Content[i+1].Decode(&raw)
		if decodeErr != nil {
			return nil, fmt.Errorf("decode function %q: %w", name, decodeErr)
		}

		entries = append(entries, newFunctionEntry(name, raw))
	}

	return entries, nil
}

// newFunctionEntry converts a raw function section into the model
// representation, splitting embedded repository suffixes off every hash.
func newFunctionEntry(name string, raw rawFunctionEntry) FunctionEntry {
	entry := FunctionEntry{
		Name:          name,
		DemangledName: raw.DemangledName,
		Interactions:  make([]Interaction, 0, len(raw.Insts)),
	}

	for _, inst := range raw.Insts {
		inter := Interaction{
			Base:        gitmeta.ParseCommitRef(inst.BaseHash),
			Interacting: make([]gitmeta.CommitRef, 0, len(inst.InteractingHashes)),
			Amount:      inst.Amount,
		}

		for _, hash := range inst.InteractingHashes {
			inter.Interacting = append(inter.Interacting, gitmeta.ParseCommitRef(hash))
		}

		entry.Interactions = append(entry.Interactions, inter)
	}

	return entry
}

// mappingValue returns the value node for a top-level mapping key, or nil.
func mappingValue(doc *yaml.Node, key string) *yaml.Node {
	node := doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}

	if node.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}

	return nil
}
