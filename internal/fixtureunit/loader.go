package fixtureunit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/document"
	"github.com/Lumos-Labs-HQ/flash-fixtures/internal/meta"
)

// RecordsFile is the conventional base name of a fixture file inside a
// doctype directory.
const RecordsFile = "test_records"

var recordExtensions = []string{".yaml", ".yml", ".json", ".toml"}

// fileUnit is the structured form of a fixture file. The bare-list form
// holds records only.
type fileUnit struct {
	Records            []document.Record `yaml:"records" toml:"records"`
	ExtraDependencies  []string          `yaml:"extra_test_record_dependencies" toml:"extra_test_record_dependencies"`
	IgnoreDependencies []string          `yaml:"ignore_test_record_dependencies" toml:"ignore_test_record_dependencies"`

	// Deprecated spellings, still honoured.
	TestDependencies []string `yaml:"test_dependencies" toml:"test_dependencies"`
	TestIgnore       []string `yaml:"test_ignore" toml:"test_ignore"`
}

// Loader reads fixture files from <root>/<module>/<doctype>/test_records.*.
// Every call goes to disk so edits show up without a restart.
type Loader struct {
	root   string
	logger *slog.Logger
}

func NewLoader(root string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{root: root, logger: logger}
}

// Lookup returns the unit declared by a structured fixture file. A bare list
// of records is not a unit; TestRecords serves it.
func (l *Loader) Lookup(_ context.Context, module, doctype string) (Unit, error) {
	def, _, err := l.read(module, doctype)
	if err != nil || def == nil {
		return nil, err
	}
	return def, nil
}

// TestRecords returns the records of a doctype's fixture file in either form.
func (l *Loader) TestRecords(_ context.Context, module, doctype string) ([]document.Record, error) {
	def, records, err := l.read(module, doctype)
	if err != nil {
		return nil, err
	}
	if def != nil {
		return def.TestRecords, nil
	}
	return records, nil
}

// Path returns the fixture file of a doctype, or "" when there is none.
func (l *Loader) Path(module, doctype string) (string, error) {
	dir := filepath.Join(l.root, meta.Scrub(module), meta.Scrub(doctype))
	for _, ext := range recordExtensions {
		path := filepath.Join(dir, RecordsFile+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", nil
}

func (l *Loader) read(module, doctype string) (*Definition, []document.Record, error) {
	path, err := l.Path(module, doctype)
	if err != nil || path == "" {
		return nil, nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read fixture file: %w", err)
	}

	if filepath.Ext(path) == ".toml" {
		var fu fileUnit
		if err := toml.Unmarshal(data, &fu); err != nil {
			return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return l.definition(path, &fu), nil, nil
	}

	// yaml.v3 reads the JSON form too.
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(root.Content) == 0 {
		return nil, nil, nil
	}

	doc := root.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		var records []document.Record
		if err := doc.Decode(&records); err != nil {
			return nil, nil, fmt.Errorf("failed to decode records in %s: %w", path, err)
		}
		return nil, records, nil
	case yaml.MappingNode:
		var fu fileUnit
		if err := doc.Decode(&fu); err != nil {
			return nil, nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		return l.definition(path, &fu), nil, nil
	default:
		return nil, nil, fmt.Errorf("%s: expected a list of records or a mapping", path)
	}
}

func (l *Loader) definition(path string, fu *fileUnit) *Definition {
	def := &Definition{
		TestRecords:        fu.Records,
		ExtraDependencies:  fu.ExtraDependencies,
		IgnoreDependencies: fu.IgnoreDependencies,
	}

	if len(fu.TestDependencies) > 0 {
		l.logger.Warn("test_dependencies is deprecated, rename it to extra_test_record_dependencies",
			"file", path)
		def.ExtraDependencies = append(def.ExtraDependencies, fu.TestDependencies...)
	}
	if len(fu.TestIgnore) > 0 {
		l.logger.Warn("test_ignore is deprecated, rename it to ignore_test_record_dependencies",
			"file", path)
		def.IgnoreDependencies = append(def.IgnoreDependencies, fu.TestIgnore...)
	}
	return def
}
