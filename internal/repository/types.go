// RepoGate - Facet-Based Authorization for Hierarchical Content Repositories
// Copyright 2026 Carteret Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/carteret/repogate

package repository

import (
	"strings"
	"time"
)

// ItemID identifies a node, or a property when it carries a "#" separator
// ("<nodeID>#<propertyName>").
type ItemID string

// propertySeparator splits a node id from a property name inside an ItemID.
const propertySeparator = "#"

// PropertyID builds the identifier of a property of the given node.
func PropertyID(node ItemID, property string) ItemID {
	return node + ItemID(propertySeparator+property)
}

// SplitProperty decomposes an ItemID. For node identifiers ok is false.
func (id ItemID) SplitProperty() (node ItemID, property string, ok bool) {
	i := strings.Index(string(id), propertySeparator)
	if i < 0 {
		return id, "", false
	}
	return id[:i], string(id[i+1:]), true
}

// ValueType tags a property value.
type ValueType string

const (
	ValueString ValueType = "string"
	ValueBool   ValueType = "bool"
	ValueLong   ValueType = "long"
	ValueDate   ValueType = "date"
)

// Value is one typed property value. Exactly the field matching Type is
// meaningful.
type Value struct {
	Type ValueType `json:"type"`
	Text string    `json:"text,omitempty"`
	Bool bool      `json:"bool,omitempty"`
	Long int64     `json:"long,omitempty"`
	Time time.Time `json:"time,omitempty"`
}

// StringValue wraps a string.
func StringValue(s string) Value { return Value{Type: ValueString, Text: s} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{Type: ValueBool, Bool: b} }

// LongValue wraps an int64.
func LongValue(n int64) Value { return Value{Type: ValueLong, Long: n} }

// DateValue wraps a timestamp.
func DateValue(t time.Time) Value { return Value{Type: ValueDate, Time: t} }

// StringValues wraps each string in a Value slice.
func StringValues(ss ...string) []Value {
	out := make([]Value, 0, len(ss))
	for _, s := range ss {
		out = append(out, StringValue(s))
	}
	return out
}

// NodeState is the read-side view of one content node. The engine reads it
// but never mutates it for authorization purposes.
type NodeState struct {
	ID         ItemID             `json:"id"`
	Path       string             `json:"path"`
	Type       string             `json:"type"`
	Mixins     []string           `json:"mixins,omitempty"`
	Parent     ItemID             `json:"parent,omitempty"`
	Properties map[string][]Value `json:"properties,omitempty"`
}

// Name returns the node's path segment.
func (n *NodeState) Name() string {
	if n.Path == "/" {
		return ""
	}
	i := strings.LastIndex(n.Path, "/")
	return n.Path[i+1:]
}

// Namespace returns the prefix of the node's type name, or "" for an
// unprefixed type.
func (n *NodeState) Namespace() string {
	i := strings.Index(n.Type, ":")
	if i < 0 {
		return ""
	}
	return n.Type[:i]
}

// IsRoot reports whether the node is the repository root.
func (n *NodeState) IsRoot() bool {
	return n.Parent == ""
}

// HasProperty reports whether the node carries the named property.
func (n *NodeState) HasProperty(name string) bool {
	_, ok := n.Properties[name]
	return ok
}

// StringValues returns the string-typed values of the named property.
// Non-string values are skipped, not coerced.
func (n *NodeState) StringValues(name string) []string {
	values := n.Properties[name]
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v.Type == ValueString {
			out = append(out, v.Text)
		}
	}
	return out
}

// FirstString returns the first string value of the named property.
func (n *NodeState) FirstString(name string) (string, bool) {
	for _, v := range n.Properties[name] {
		if v.Type == ValueString {
			return v.Text, true
		}
	}
	return "", false
}

// FirstBool returns the first bool value of the named property.
func (n *NodeState) FirstBool(name string) (bool, bool) {
	for _, v := range n.Properties[name] {
		if v.Type == ValueBool {
			return v.Bool, true
		}
	}
	return false, false
}

// FirstTime returns the first date value of the named property.
func (n *NodeState) FirstTime(name string) (time.Time, bool) {
	for _, v := range n.Properties[name] {
		if v.Type == ValueDate {
			return v.Time, true
		}
	}
	return time.Time{}, false
}

// PropertyState is the read-side view of one property. Parent is the id of
// the owning node; it is reported without asserting that the node exists.
type PropertyState struct {
	ID     ItemID `json:"id"`
	Name   string `json:"name"`
	Parent ItemID `json:"parent"`
}

// Item is the result of resolving an identifier. Exactly one of Node or
// Property is set.
type Item struct {
	Node     *NodeState
	Property *PropertyState
}
