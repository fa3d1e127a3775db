package testrecords

import "slices"

// Visited tracks, for one run, the doctypes already walked and the names
// created for each. A key present with no names means "walked or in
// progress", which is what stops the walker on cycles. It only grows.
type Visited struct {
	order []string
	names map[string][]string
}

func NewVisited() *Visited {
	return &Visited{names: make(map[string][]string)}
}

func (v *Visited) Has(doctype string) bool {
	_, ok := v.names[doctype]
	return ok
}

// Register marks doctype as visited. It reports false if it already was.
func (v *Visited) Register(doctype string) bool {
	if v.Has(doctype) {
		return false
	}
	v.order = append(v.order, doctype)
	v.names[doctype] = []string{}
	return true
}

// Append records a created name, registering doctype first when needed.
func (v *Visited) Append(doctype, name string) {
	v.Register(doctype)
	v.names[doctype] = append(v.names[doctype], name)
}

func (v *Visited) Names(doctype string) []string {
	names, ok := v.names[doctype]
	if !ok {
		return nil
	}
	return slices.Clone(names)
}

// DocTypes lists visited doctypes in registration order.
func (v *Visited) DocTypes() []string {
	return slices.Clone(v.order)
}
