// Package schema implements the JSON-Schema-shaped node library (C2): a
// small sum type of Object/Array/Leaf nodes with path-addressed insertion,
// provenance tracking, and structural merging.
package schema

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/soochol/notegen/internal/pathkey"
)

// Kind discriminates the three SchemaNode variants.
type Kind string

const (
	KindObject Kind = "object"
	KindArray  Kind = "array"
	KindLeaf   Kind = "leaf"
)

// Node is the schema-node sum type: exactly one of Object/Array/Leaf is
// populated according to Kind.
type Node struct {
	Kind Kind

	// KindObject
	Properties map[string]*Node
	Required   []string // deduplicated, insertion order not significant

	// KindArray
	Items *Node

	// KindLeaf
	Type     string // "string", "number", "boolean", "object" (for {text,ref})
	Keywords map[string]any

	// Owners names the content-item id(s) that produced this node. A
	// non-leaf node's Owners is the union of its descendants' owners.
	Owners map[string]bool
}

// NewObject returns an empty object node.
func NewObject() *Node {
	return &Node{Kind: KindObject, Properties: map[string]*Node{}, Owners: map[string]bool{}}
}

// NewArray returns an array node wrapping items.
func NewArray(items *Node) *Node {
	return &Node{Kind: KindArray, Items: items, Owners: cloneOwners(items.Owners)}
}

// NewLeaf returns a leaf node of the given JSON type carrying keywords
// (pattern, enum, minLength, etc. — see Constraints in notetmpl).
func NewLeaf(jsonType string, keywords map[string]any, ownerID string) *Node {
	if keywords == nil {
		keywords = map[string]any{}
	}
	return &Node{Kind: KindLeaf, Type: jsonType, Keywords: keywords, Owners: map[string]bool{ownerID: true}}
}

// VerbatimLeaf returns the fixed {text:string, ref:string} object node a
// verbatim Content Item's target produces.
func VerbatimLeaf(ownerID string) *Node {
	obj := NewObject()
	obj.Properties["text"] = NewLeaf("string", nil, ownerID)
	obj.Properties["ref"] = NewLeaf("string", nil, ownerID)
	obj.Required = []string{"text", "ref"}
	obj.Owners[ownerID] = true
	return obj
}

func cloneOwners(src map[string]bool) map[string]bool {
	dst := make(map[string]bool, len(src))
	for k := range src {
		dst[k] = true
	}
	return dst
}

// DuplicatePathError reports that two content items target the same
// canonical path with structurally incompatible subtrees.
type DuplicatePathError struct {
	Path       string
	FirstOwner string
	SecondOwner string
}

func (e *DuplicatePathError) Error() string {
	return fmt.Sprintf("duplicate path %q: content items %q and %q both target it with incompatible shapes",
		e.Path, e.FirstOwner, e.SecondOwner)
}

// AddOptions configures AddProperty.
type AddOptions struct {
	// Required marks the terminal property required on its parent object.
	Required bool
}

// AddProperty inserts leaf at path under root, creating intermediate
// object/array nodes as needed, and records ownerID as a contributor at
// every node it creates or touches along the way. It fails with
// DuplicatePathError if the canonical path is already claimed by a
// different owner with an incompatible subtree.
func AddProperty(root *Node, path pathkey.Path, leaf *Node, ownerID string, opts AddOptions) error {
	if root.Kind != KindObject {
		return fmt.Errorf("AddProperty: root must be an object node")
	}
	if len(path.Segments) == 0 {
		return fmt.Errorf("AddProperty: empty path")
	}
	return addAt(root, path.Segments, leaf, ownerID, opts)
}

func addAt(parent *Node, segs []pathkey.Segment, leaf *Node, ownerID string, opts AddOptions) error {
	seg := segs[0]
	last := len(segs) == 1

	switch parent.Kind {
	case KindObject:
		existing := parent.Properties[seg.Key]
		if last {
			value := leaf
			if seg.Wildcard || seg.Indexed {
				// The property itself is array-shaped; the leaf sits at Items.
				value = NewArray(leaf)
			}
			merged, err := mergeOrClaim(existing, value, ownerID, pathForError(seg))
			if err != nil {
				return err
			}
			parent.Properties[seg.Key] = merged
			if opts.Required && !contains(parent.Required, seg.Key) {
				parent.Required = append(parent.Required, seg.Key)
				sort.Strings(parent.Required)
			}
			parent.Owners[ownerID] = true
			return nil
		}

		var next *Node
		if seg.Wildcard || seg.Indexed {
			if existing == nil {
				next = NewArray(NewObject())
			} else if existing.Kind != KindArray {
				return &DuplicatePathError{Path: seg.String(), FirstOwner: anyOwner(existing.Owners), SecondOwner: ownerID}
			} else {
				next = existing
			}
			parent.Properties[seg.Key] = next
			parent.Owners[ownerID] = true
			if next.Items == nil {
				next.Items = NewObject()
			}
			if err := addAt(next.Items, segs[1:], leaf, ownerID, opts); err != nil {
				return err
			}
			next.Owners[ownerID] = true
			return nil
		}

		if existing == nil {
			next = NewObject()
			parent.Properties[seg.Key] = next
		} else if existing.Kind != KindObject {
			return &DuplicatePathError{Path: seg.String(), FirstOwner: anyOwner(existing.Owners), SecondOwner: ownerID}
		} else {
			next = existing
		}
		parent.Owners[ownerID] = true
		if err := addAt(next, segs[1:], leaf, ownerID, opts); err != nil {
			return err
		}
		next.Owners[ownerID] = true
		return nil

	case KindArray:
		if parent.Items == nil {
			parent.Items = NewObject()
		}
		if err := addAt(parent.Items, segs, leaf, ownerID, opts); err != nil {
			return err
		}
		parent.Owners[ownerID] = true
		return nil

	default:
		return fmt.Errorf("addAt: cannot descend into a leaf node at %q", seg.String())
	}
}

func pathForError(seg pathkey.Segment) string { return seg.String() }

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func anyOwner(owners map[string]bool) string {
	for o := range owners {
		return o
	}
	return ""
}

// mergeOrClaim decides what happens when a second write lands on an
// already-populated slot: identical owner merges silently (e.g. repeated
// listItems rows), a different owner merges only if the subtrees are
// structurally compatible (same Kind/Type/Keywords), otherwise it is a
// DuplicatePathError.
func mergeOrClaim(existing, incoming *Node, ownerID, pathDesc string) (*Node, error) {
	if existing == nil {
		return incoming, nil
	}
	if structurallyCompatible(existing, incoming, ownerID) {
		merged, err := MergeNodes(existing, incoming)
		if err != nil {
			return nil, err
		}
		merged.Owners[ownerID] = true
		return merged, nil
	}
	return nil, &DuplicatePathError{Path: pathDesc, FirstOwner: anyOwner(existing.Owners), SecondOwner: ownerID}
}

// structurallyCompatible reports whether two nodes describe the same JSON
// shape closely enough to coexist at one canonical path. A leaf only
// coexists with another leaf when they carry the same Type and Keywords
// *and* the existing leaf is owned solely by ownerID (i.e. this is the
// same content item writing the same constraint again, as repeated
// listItems rows do) — two different owners claiming the same flat leaf
// path is exactly the disallowed case (spec.md §8 Scenario 5), even when
// both happen to infer the same JSON type.
func structurallyCompatible(a, b *Node, ownerID string) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindLeaf:
		if a.Type != b.Type {
			return false
		}
		if !reflect.DeepEqual(a.Keywords, b.Keywords) {
			return false
		}
		return len(a.Owners) == 1 && a.Owners[ownerID]
	case KindArray:
		if a.Items == nil || b.Items == nil {
			return true
		}
		return structurallyCompatible(a.Items, b.Items, ownerID)
	case KindObject:
		for k, av := range a.Properties {
			if bv, ok := b.Properties[k]; ok {
				if !structurallyCompatible(av, bv, ownerID) {
					return false
				}
			}
		}
		return true
	}
	return false
}

// MergeNodes structurally unions two nodes of the same Kind: object nodes
// merge their Properties maps and concatenate+dedupe Required; array nodes
// require compatible Items and merge them; leaf-vs-leaf merges keywords
// (last writer wins per keyword) and unions Owners. Leaf-vs-non-leaf or
// incompatible leaf types is a hard error — callers (the RPS merger) treat
// that as the "disallowed same path assigned to both LLM and resolver"
// case.
func MergeNodes(a, b *Node) (*Node, error) {
	if a == nil {
		return cloneNode(b), nil
	}
	if b == nil {
		return cloneNode(a), nil
	}
	if a.Kind != b.Kind {
		return nil, fmt.Errorf("cannot merge incompatible schema nodes: %s vs %s", a.Kind, b.Kind)
	}

	switch a.Kind {
	case KindLeaf:
		if a.Type != b.Type {
			return nil, fmt.Errorf("cannot merge leaf nodes of different type: %s vs %s", a.Type, b.Type)
		}
		kw := make(map[string]any, len(a.Keywords)+len(b.Keywords))
		for k, v := range a.Keywords {
			kw[k] = v
		}
		for k, v := range b.Keywords {
			kw[k] = v
		}
		owners := cloneOwners(a.Owners)
		for o := range b.Owners {
			owners[o] = true
		}
		return &Node{Kind: KindLeaf, Type: a.Type, Keywords: kw, Owners: owners}, nil

	case KindArray:
		items, err := MergeNodes(a.Items, b.Items)
		if err != nil {
			return nil, fmt.Errorf("array items: %w", err)
		}
		owners := cloneOwners(a.Owners)
		for o := range b.Owners {
			owners[o] = true
		}
		return &Node{Kind: KindArray, Items: items, Owners: owners}, nil

	case KindObject:
		props := make(map[string]*Node, len(a.Properties)+len(b.Properties))
		for k, v := range a.Properties {
			props[k] = cloneNode(v)
		}
		for k, v := range b.Properties {
			if ex, ok := props[k]; ok {
				merged, err := MergeNodes(ex, v)
				if err != nil {
					return nil, fmt.Errorf("property %q: %w", k, err)
				}
				props[k] = merged
			} else {
				props[k] = cloneNode(v)
			}
		}
		required := dedupeStrings(append(append([]string{}, a.Required...), b.Required...))
		owners := cloneOwners(a.Owners)
		for o := range b.Owners {
			owners[o] = true
		}
		return &Node{Kind: KindObject, Properties: props, Required: required, Owners: owners}, nil
	}
	return nil, fmt.Errorf("unknown node kind %q", a.Kind)
}

func dedupeStrings(ss []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func cloneNode(n *Node) *Node {
	if n == nil {
		return nil
	}
	cp := &Node{Kind: n.Kind, Type: n.Type, Owners: cloneOwners(n.Owners)}
	if n.Keywords != nil {
		cp.Keywords = make(map[string]any, len(n.Keywords))
		for k, v := range n.Keywords {
			cp.Keywords[k] = v
		}
	}
	if n.Properties != nil {
		cp.Properties = make(map[string]*Node, len(n.Properties))
		for k, v := range n.Properties {
			cp.Properties[k] = cloneNode(v)
		}
	}
	if n.Required != nil {
		cp.Required = append([]string{}, n.Required...)
	}
	if n.Items != nil {
		cp.Items = cloneNode(n.Items)
	}
	return cp
}

// Lookup walks a parsed path against a node tree and returns the node it
// resolves to, or nil if no such node exists.
func Lookup(root *Node, path pathkey.Path) *Node {
	cur := root
	for _, seg := range path.Segments {
		if cur == nil {
			return nil
		}
		switch cur.Kind {
		case KindObject:
			prop, ok := cur.Properties[seg.Key]
			if !ok {
				return nil
			}
			if seg.Wildcard || seg.Indexed {
				if prop.Kind != KindArray {
					return nil
				}
				cur = prop.Items
			} else {
				cur = prop
			}
		case KindArray:
			cur = cur.Items
		default:
			return nil
		}
	}
	return cur
}

// ToJSONSchema renders the node tree as a plain JSON-Schema-shaped value
// suitable for json.Marshal (draft-07-ish subset: type/properties/
// required/items plus pass-through keywords).
func (n *Node) ToJSONSchema() map[string]any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindLeaf:
		out := map[string]any{"type": n.Type}
		for k, v := range n.Keywords {
			out[k] = v
		}
		return out
	case KindArray:
		return map[string]any{
			"type":  "array",
			"items": n.Items.ToJSONSchema(),
		}
	case KindObject:
		props := make(map[string]any, len(n.Properties))
		for k, v := range n.Properties {
			props[k] = v.ToJSONSchema()
		}
		out := map[string]any{
			"type":       "object",
			"properties": props,
		}
		if len(n.Required) > 0 {
			req := append([]string{}, n.Required...)
			sort.Strings(req)
			out["required"] = req
		}
		return out
	}
	return nil
}
