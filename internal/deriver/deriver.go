// Package deriver implements the two schema derivers and the RPS merger
// (C3, C4, C5): walking a template's layout to build the AI Input Schema,
// the Non-AI Snapshot schema, and their structural union.
package deriver

import (
	"fmt"

	"github.com/soochol/notegen/internal/notetmpl"
	"github.com/soochol/notegen/internal/pathkey"
	"github.com/soochol/notegen/internal/schema"
)

// DeriveAIS walks layout and emits a schema covering only `ai` slots,
// keyed by outputPath. Fails with *schema.DuplicatePathError when two ai
// items target the same canonical path with incompatible subtrees.
func DeriveAIS(layout []notetmpl.Component) (*schema.Node, error) {
	root := schema.NewObject()
	var walkErr error
	var claims []claim

	notetmpl.Walk(layout, func(_ string, item notetmpl.ContentItem) {
		if walkErr != nil || item.Slot != notetmpl.SlotAI {
			return
		}
		if item.OutputPath == "" {
			walkErr = fmt.Errorf("ai content item %q has no outputPath", item.ID)
			return
		}
		path, err := pathkey.Parse(item.OutputPath)
		if err != nil {
			walkErr = fmt.Errorf("ai content item %q: %w", item.ID, err)
			return
		}
		if walkErr = checkCollision(claims, path, item.ID); walkErr != nil {
			return
		}
		claims = append(claims, claim{path: path, owner: item.ID})

		leaf := leafForConstraints(item.Constraints, item.ID)
		if err := schema.AddProperty(root, path, leaf, item.ID, schema.AddOptions{
			Required: item.Constraints != nil && item.Constraints.Required,
		}); err != nil {
			walkErr = err
		}
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return root, nil
}

// DeriveNAS walks layout and emits a schema covering the four non-AI
// slot kinds (lookup, static, computed, verbatim), keyed by targetPath.
func DeriveNAS(layout []notetmpl.Component) (*schema.Node, error) {
	root := schema.NewObject()
	var walkErr error
	var claims []claim

	notetmpl.Walk(layout, func(_ string, item notetmpl.ContentItem) {
		if walkErr != nil || item.Slot == notetmpl.SlotAI {
			return
		}
		if item.TargetPath == "" {
			walkErr = fmt.Errorf("%s content item %q has no targetPath", item.Slot, item.ID)
			return
		}
		path, err := pathkey.Parse(item.TargetPath)
		if err != nil {
			walkErr = fmt.Errorf("%s content item %q: %w", item.Slot, item.ID, err)
			return
		}
		if walkErr = checkCollision(claims, path, item.ID); walkErr != nil {
			return
		}
		claims = append(claims, claim{path: path, owner: item.ID})

		var leaf *schema.Node
		if item.Slot == notetmpl.SlotVerbatim {
			leaf = schema.VerbatimLeaf(item.ID)
		} else {
			leaf = leafForConstraints(item.Constraints, item.ID)
		}

		if err := schema.AddProperty(root, path, leaf, item.ID, schema.AddOptions{
			Required: item.Constraints != nil && item.Constraints.Required,
		}); err != nil {
			walkErr = err
		}
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return root, nil
}

// claim records one content item's canonical path, for checkCollision's
// use of pathkey's C1 collision predicate (Segment.Collides via
// pathkey.SamePosition) as an explicit pre-check ahead of schema tree
// construction. schema.AddProperty's own mergeOrClaim independently
// enforces path ownership once the tree is built (it must: two items can
// converge on the same node through different route segments); this
// pre-check exists so the wildcard/indexed collision rule C1 defines is
// actually evaluated against every pair of same-slot items, with an error
// that names both content items directly rather than surfacing only from
// deep inside the tree walk.
type claim struct {
	path  pathkey.Path
	owner string
}

func checkCollision(claims []claim, path pathkey.Path, ownerID string) error {
	for _, c := range claims {
		if c.owner != ownerID && pathkey.SamePosition(c.path, path) {
			return &schema.DuplicatePathError{Path: path.String(), FirstOwner: c.owner, SecondOwner: ownerID}
		}
	}
	return nil
}

// leafForConstraints infers a leaf's JSON type (default "string") and
// copies the constraint set into JSON-Schema keywords.
func leafForConstraints(c *notetmpl.Constraints, ownerID string) *schema.Node {
	kw := map[string]any{}
	if c != nil {
		if c.Pattern != "" {
			kw["pattern"] = c.Pattern
		}
		if len(c.Enum) > 0 {
			kw["enum"] = c.Enum
		}
		if c.MinLength != nil {
			kw["minLength"] = *c.MinLength
		}
		if c.MaxLength != nil {
			kw["maxLength"] = *c.MaxLength
		}
		if c.MinWords != nil {
			kw["x-minWords"] = *c.MinWords
		}
		if c.MaxWords != nil {
			kw["x-maxWords"] = *c.MaxWords
		}
		if c.MinSentences != nil {
			kw["x-minSentences"] = *c.MinSentences
		}
		if c.MaxSentences != nil {
			kw["x-maxSentences"] = *c.MaxSentences
		}
	}
	return schema.NewLeaf("string", kw, ownerID)
}

// DeriveRPS structurally unions AIS and NAS. Leaf-vs-leaf overlaps at the
// same canonical path are errors: that shape means the template assigns
// one path to both the LLM and a deterministic resolver, which is
// disallowed.
func DeriveRPS(ais, nas *schema.Node) (*schema.Node, error) {
	merged, err := schema.MergeNodes(ais, nas)
	if err != nil {
		return nil, fmt.Errorf("RPS merge: AIS and NAS assign an incompatible or overlapping leaf path: %w", err)
	}
	if leaf, ok := findSharedLeaf(ais, nas, nil); ok {
		return nil, fmt.Errorf("RPS merge: path %q is assigned to both an ai slot and a non-ai slot, which is disallowed", leaf)
	}
	return merged, nil
}

// findSharedLeaf reports the first dotted path where both a and b reach a
// leaf node (a structurally compatible object/array container overlap is
// fine; a literal leaf-vs-leaf overlap is the disallowed case RPS must
// reject even though MergeNodes alone cannot distinguish "same resolver
// republishing a compatible shape" from "AI and resolver both claim this
// leaf", since AIS and NAS are disjoint owner universes by construction).
func findSharedLeaf(a, b *schema.Node, pathPrefix []string) (string, bool) {
	if a == nil || b == nil {
		return "", false
	}
	if a.Kind == schema.KindLeaf && b.Kind == schema.KindLeaf {
		return joinPath(pathPrefix), true
	}
	if a.Kind == schema.KindArray && b.Kind == schema.KindArray {
		return findSharedLeaf(a.Items, b.Items, append(pathPrefix, "[]"))
	}
	if a.Kind == schema.KindObject && b.Kind == schema.KindObject {
		for k, av := range a.Properties {
			if bv, ok := b.Properties[k]; ok {
				if p, found := findSharedLeaf(av, bv, append(append([]string{}, pathPrefix...), k)); found {
					return p, true
				}
			}
		}
	}
	return "", false
}

func joinPath(segs []string) string {
	out := ""
	for i, s := range segs {
		if i > 0 && s != "[]" {
			out += "."
		}
		out += s
	}
	return out
}
