// Package schema validates decoded JSON documents against a tree of required
// fields. A document is the generic value produced by encoding/json when
// decoding into an any: map[string]any for objects, string, json.Number or
// float64 for numbers.
//
// Validation runs in two passes. The first collects the path of every
// required key that is absent. Only when nothing is missing does the second
// pass check each leaf against its declared kind and collect every invalid
// path. Paths are dot-joined, e.g. "encryption.iv", and reported in schema
// declaration order.
package schema

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"
)

type kind int

const (
	kindObject kind = iota
	kindInteger
	kindString
	kindEnum
)

// Node describes the expected shape of one value.
type Node struct {
	kind   kind
	fields []Field
	values []string
}

// Field is a named child of an object node.
type Field struct {
	Name string
	Node Node
}

// Key declares a required field.
func Key(name string, n Node) Field {
	return Field{Name: name, Node: n}
}

// Object declares a nested object with the given required fields.
func Object(fields ...Field) Node {
	return Node{kind: kindObject, fields: fields}
}

// Integer declares a whole number leaf.
func Integer() Node {
	return Node{kind: kindInteger}
}

// String declares a string leaf.
func String() Node {
	return Node{kind: kindString}
}

// OneOf declares a string leaf that must equal one of values exactly.
func OneOf(values ...string) Node {
	return Node{kind: kindEnum, values: values}
}

// Status tells which pass, if any, rejected a document.
type Status int

const (
	StatusOK Status = iota
	StatusMissing
	StatusInvalid
)

// Result is the outcome of Validate. Fields holds the missing paths for
// StatusMissing and the invalid paths for StatusInvalid.
type Result struct {
	Status Status
	Fields []string
}

// OK reports whether the document satisfied the schema.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Validate checks doc against root. It has no side effects.
func Validate(root Node, doc any) Result {
	if missing := collectMissing(root, doc, "", nil); len(missing) > 0 {
		return Result{Status: StatusMissing, Fields: missing}
	}
	if invalid := collectInvalid(root, doc, "", nil); len(invalid) > 0 {
		return Result{Status: StatusInvalid, Fields: invalid}
	}
	return Result{Status: StatusOK}
}

func collectMissing(n Node, v any, prefix string, out []string) []string {
	if n.kind != kindObject {
		return out
	}
	obj, _ := v.(map[string]any)
	for _, f := range n.fields {
		path := join(prefix, f.Name)
		child, ok := obj[f.Name]
		if !ok || child == nil {
			if f.Node.kind == kindObject {
				out = collectMissing(f.Node, nil, path, out)
				continue
			}
			out = append(out, path)
			continue
		}
		out = collectMissing(f.Node, child, path, out)
	}
	return out
}

func collectInvalid(n Node, v any, prefix string, out []string) []string {
	switch n.kind {
	case kindObject:
		obj, ok := v.(map[string]any)
		if !ok {
			if prefix == "" {
				return append(out, ".")
			}
			return append(out, prefix)
		}
		for _, f := range n.fields {
			out = collectInvalid(f.Node, obj[f.Name], join(prefix, f.Name), out)
		}
	case kindInteger:
		if _, ok := Int64(v); !ok {
			out = append(out, prefix)
		}
	case kindString:
		if _, ok := v.(string); !ok {
			out = append(out, prefix)
		}
	case kindEnum:
		s, ok := v.(string)
		if !ok || !slices.Contains(n.values, s) {
			out = append(out, prefix)
		}
	}
	return out
}

// Int64 converts a decoded JSON number to an int64. Fractional values and
// values outside the int64 range are rejected.
func Int64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		return i, err == nil
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
