package meta

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Field types the fixture generator cares about. Everything else is carried
// through as an opaque string.
const (
	FieldLink             = "Link"
	FieldDynamicLink      = "Dynamic Link"
	FieldTable            = "Table"
	FieldTableMultiSelect = "Table MultiSelect"
	FieldSelect           = "Select"
	FieldData             = "Data"
	FieldInt              = "Int"
	FieldCheck            = "Check"
)

// SelectPlaceholder is the options value of a link field that lets the user
// pick the target doctype at runtime. It names no real doctype.
const SelectPlaceholder = "[Select]"

// NamingSeriesField is the conventional fieldname holding a naming series.
const NamingSeriesField = "naming_series"

var ErrDocTypeNotFound = errors.New("doctype not found")

// Flag decodes the 0/1 integers used by exported doctype JSON as well as
// plain YAML booleans.
type Flag bool

func (f *Flag) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*f = false
	case bool:
		*f = Flag(v)
	case int:
		*f = v != 0
	case string:
		*f = Flag(v == "1" || strings.EqualFold(v, "true"))
	default:
		return fmt.Errorf("invalid flag value %v", raw)
	}
	return nil
}

type Field struct {
	Fieldname string `yaml:"fieldname" json:"fieldname"`
	Fieldtype string `yaml:"fieldtype" json:"fieldtype"`
	Label     string `yaml:"label,omitempty" json:"label,omitempty"`
	Options   string `yaml:"options,omitempty" json:"options,omitempty"`
	Reqd      Flag   `yaml:"reqd,omitempty" json:"reqd,omitempty"`
	Parent    string `yaml:"-" json:"-"`
}

// Choices splits Options into its lines, dropping blanks.
func (f Field) Choices() []string {
	var out []string
	for _, line := range strings.Split(f.Options, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

type DocType struct {
	Name          string  `yaml:"name" json:"name"`
	Module        string  `yaml:"module" json:"module"`
	Autoname      string  `yaml:"autoname,omitempty" json:"autoname,omitempty"`
	IsSubmittable Flag    `yaml:"is_submittable,omitempty" json:"is_submittable,omitempty"`
	IsTable       Flag    `yaml:"istable,omitempty" json:"istable,omitempty"`
	Fields        []Field `yaml:"fields" json:"fields"`
}

// Field returns the field named fieldname or nil.
func (d *DocType) Field(fieldname string) *Field {
	for i := range d.Fields {
		if d.Fields[i].Fieldname == fieldname {
			return &d.Fields[i]
		}
	}
	return nil
}

func (d *DocType) HasField(fieldname string) bool {
	return d.Field(fieldname) != nil
}

// LinkFields returns the fields of type Link, in declaration order.
func (d *DocType) LinkFields() []Field {
	return d.fieldsOfType(FieldLink)
}

// TableFields returns child-table fields. Their Options name the child doctype.
func (d *DocType) TableFields() []Field {
	return d.fieldsOfType(FieldTable, FieldTableMultiSelect)
}

func (d *DocType) MandatoryFields() []Field {
	var out []Field
	for _, f := range d.Fields {
		if f.Reqd {
			out = append(out, f)
		}
	}
	return out
}

func (d *DocType) fieldsOfType(types ...string) []Field {
	var out []Field
	for _, f := range d.Fields {
		for _, t := range types {
			if f.Fieldtype == t {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// Store resolves doctype metadata by name.
type Store interface {
	Get(ctx context.Context, doctype string) (*DocType, error)
}

// Scrub turns a display name into the snake_case form used for directories.
func Scrub(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	return strings.ToLower(name)
}
