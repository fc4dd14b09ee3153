// Package pathset implements the one canonical path setter and deep-merge
// policy shared by the NAS builder (C8) and the payload merger (C13), so
// neither duplicates the other's merge rules; the context slicer (C10)
// reads through Get.
package pathset

import (
	"fmt"

	"github.com/soochol/notegen/internal/pathkey"
)

// Conflict records a terminal merge where the incoming value's shape did
// not match the existing value's shape. Callers translate this into a
// diag.Warning with the severity their stage's taxonomy assigns.
type Conflict struct {
	Path         string
	ExpectedType string
	ActualType   string
	// Kind classifies the conflict for severity mapping: "type_mismatch"
	// (default, a leaf-level shape clash) or "array_overwrite" (an array
	// containing non-object elements was replaced wholesale rather than
	// merged element-wise).
	Kind string
}

// kindOf names a JSON-ish Go value's shape for conflict reporting.
func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Set walks parsed path segments from root, creating intermediate
// object/array containers as needed, growing arrays sparsely (gaps filled
// with nil "holes"), and merges value into whatever already occupies the
// terminal slot using the shared merge policy. root must be a
// map[string]any (or nil, in which case a new one is created) and is
// returned, since array growth may require replacing a slice in place.
func Set(root map[string]any, path pathkey.Path, value any) (map[string]any, []Conflict) {
	if root == nil {
		root = map[string]any{}
	}
	if len(path.Segments) == 0 {
		return root, nil
	}
	var conflicts []Conflict
	setInObject(root, path.Segments, value, path.String(), &conflicts)
	return root, conflicts
}

func setInObject(obj map[string]any, segs []pathkey.Segment, value any, fullPath string, conflicts *[]Conflict) {
	seg := segs[0]
	last := len(segs) == 1

	if seg.Indexed || seg.Wildcard {
		arr, _ := obj[seg.Key].([]any)
		idx := seg.Index
		if seg.Wildcard {
			idx = len(arr) // wildcard appends past the current end
		}
		arr = growTo(arr, idx+1)
		if last {
			arr[idx] = mergeValue(arr[idx], value, fullPath, conflicts)
		} else {
			child, _ := arr[idx].(map[string]any)
			if child == nil {
				child = map[string]any{}
			}
			setInObject(child, segs[1:], value, fullPath, conflicts)
			arr[idx] = child
		}
		obj[seg.Key] = arr
		return
	}

	if last {
		obj[seg.Key] = mergeValue(obj[seg.Key], value, fullPath, conflicts)
		return
	}
	child, _ := obj[seg.Key].(map[string]any)
	if child == nil {
		child = map[string]any{}
	}
	setInObject(child, segs[1:], value, fullPath, conflicts)
	obj[seg.Key] = child
}

func growTo(arr []any, n int) []any {
	for len(arr) < n {
		arr = append(arr, nil)
	}
	return arr
}

// mergeValue applies the shared terminal merge policy: object-over-object
// recurses key-by-key; array-over-array merges elementwise when every
// element of both arrays is an object or nil, and otherwise the incoming
// array overwrites with an "array_overwrite" Conflict; any other pair is
// overwritten by the incoming value, recording a Conflict when the
// existing value was non-nil and of a different kind.
func mergeValue(existing, incoming any, path string, conflicts *[]Conflict) any {
	if existing == nil {
		return incoming
	}
	if incoming == nil {
		return existing
	}

	existingObj, existingIsObj := existing.(map[string]any)
	incomingObj, incomingIsObj := incoming.(map[string]any)
	if existingIsObj && incomingIsObj {
		for k, v := range incomingObj {
			existingObj[k] = mergeValue(existingObj[k], v, childPath(path, k), conflicts)
		}
		return existingObj
	}

	existingArr, existingIsArr := existing.([]any)
	incomingArr, incomingIsArr := incoming.([]any)
	if existingIsArr && incomingIsArr {
		if allObjectsOrNil(existingArr) && allObjectsOrNil(incomingArr) {
			out := make([]any, len(incomingArr))
			for i := range incomingArr {
				var prior any
				if i < len(existingArr) {
					prior = existingArr[i]
				}
				out[i] = mergeValue(prior, incomingArr[i], fmt.Sprintf("%s[%d]", path, i), conflicts)
			}
			return out
		}
		// Heterogeneous or non-object arrays are treated as a leaf: the
		// incoming array wins wholesale and the overwrite is recorded for
		// the caller to classify (the NAS builder reports it as a type
		// mismatch whose severity follows the item's required flag; the
		// payload merger reports it as a warning).
		if conflicts != nil {
			*conflicts = append(*conflicts, Conflict{Path: path, ExpectedType: "array", ActualType: "array", Kind: "array_overwrite"})
		}
		return incoming
	}

	if kindOf(existing) != kindOf(incoming) {
		if conflicts != nil {
			*conflicts = append(*conflicts, Conflict{Path: path, ExpectedType: kindOf(existing), ActualType: kindOf(incoming), Kind: "type_mismatch"})
		}
	}
	return incoming
}

// childPath appends key to path using the same non-dotted form at the root
// that pathkey.Path.String() produces elsewhere (no leading dot).
func childPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// allObjectsOrNil reports whether every element of arr is either a
// map[string]any or nil (an unfilled sparse hole), the shape
// element-wise array merging requires.
func allObjectsOrNil(arr []any) bool {
	for _, v := range arr {
		if v == nil {
			continue
		}
		if _, ok := v.(map[string]any); !ok {
			return false
		}
	}
	return true
}

// Merge deep-merges incoming over base with incoming taking precedence at
// every leaf (used by the payload merger, C13, where incoming is the AI
// payload and base is the NAS snapshot). It does not mutate base; callers
// that want mutation should pass base's own map and use the returned
// value only for the top-level replacement (maps are mutated in place by
// mergeValue, matching Set's behaviour).
func Merge(base, incoming any) (any, []Conflict) {
	var conflicts []Conflict
	merged := mergeValue(cloneShallowDeep(base), incoming, "", &conflicts)
	return merged, conflicts
}

// cloneShallowDeep deep-clones maps/slices so Merge never mutates the
// caller's base value (unlike Set, which is explicitly in-place on root).
func cloneShallowDeep(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = cloneShallowDeep(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = cloneShallowDeep(vv)
		}
		return out
	default:
		return v
	}
}

// Get reads the value at path from root, returning (nil, false) if any
// segment along the way is absent.
func Get(root map[string]any, path pathkey.Path) (any, bool) {
	var cur any = root
	for _, seg := range path.Segments {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := obj[seg.Key]
		if !ok {
			return nil, false
		}
		if seg.Indexed || seg.Wildcard {
			arr, ok := v.([]any)
			if !ok {
				return nil, false
			}
			if seg.Wildcard {
				cur = arr // wildcard reads return the whole array
				continue
			}
			if seg.Index >= len(arr) {
				return nil, false
			}
			cur = arr[seg.Index]
			continue
		}
		cur = v
	}
	return cur, true
}
