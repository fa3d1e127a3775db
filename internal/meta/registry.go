package meta

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Registry is an in-memory Store.
type Registry struct {
	mu       sync.RWMutex
	doctypes map[string]*DocType
}

func NewRegistry(doctypes ...*DocType) *Registry {
	r := &Registry{doctypes: make(map[string]*DocType)}
	for _, dt := range doctypes {
		r.Add(dt)
	}
	return r
}

// Add registers dt, replacing any previous definition with the same name.
func (r *Registry) Add(dt *DocType) {
	for i := range dt.Fields {
		dt.Fields[i].Parent = dt.Name
	}
	r.mu.Lock()
	r.doctypes[dt.Name] = dt
	r.mu.Unlock()
}

func (r *Registry) Get(_ context.Context, doctype string) (*DocType, error) {
	r.mu.RLock()
	dt, ok := r.doctypes[doctype]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocTypeNotFound, doctype)
	}
	return dt, nil
}

// Names lists the registered doctypes in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.doctypes))
	for name := range r.doctypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var metaExtensions = []string{".yaml", ".yml", ".json"}

// LoadDir reads every doctype definition under root. The layout is
// <root>/<module>/<doctype>/<doctype>.{yaml,yml,json}; the module directory
// fills in Module when the definition leaves it empty.
func LoadDir(root string) (*Registry, error) {
	reg := NewRegistry()

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if !isMetaExtension(ext) {
			return nil
		}
		dir := filepath.Dir(path)
		if strings.TrimSuffix(d.Name(), ext) != filepath.Base(dir) {
			return nil
		}

		dt, err := readDocType(path)
		if err != nil {
			return err
		}
		if dt.Module == "" {
			dt.Module = moduleFromPath(root, dir)
		}
		reg.Add(dt)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load doctypes from %s: %w", root, err)
	}

	return reg, nil
}

func readDocType(path string) (*DocType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var dt DocType
	if err := yaml.Unmarshal(data, &dt); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if dt.Name == "" {
		return nil, fmt.Errorf("doctype definition %s has no name", path)
	}
	return &dt, nil
}

func isMetaExtension(ext string) bool {
	for _, e := range metaExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// moduleFromPath maps <root>/selling/sales_order to "Selling".
func moduleFromPath(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return ""
	}
	first := strings.Split(filepath.ToSlash(rel), "/")[0]
	words := strings.Split(first, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
