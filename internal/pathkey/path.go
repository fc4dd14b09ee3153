// Package pathkey parses and canonicalises the dotted/indexed path grammar
// used throughout the compiler: "foo.bar[0].baz[]".
package pathkey

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one element of a parsed Path: a plain key, an indexed key
// ("key[n]"), or a wildcard key ("key[]").
type Segment struct {
	Key      string
	Index    int // valid only when Indexed is true
	Indexed  bool
	Wildcard bool
}

func (s Segment) String() string {
	switch {
	case s.Wildcard:
		return s.Key + "[]"
	case s.Indexed:
		return fmt.Sprintf("%s[%d]", s.Key, s.Index)
	default:
		return s.Key
	}
}

// Path is a parsed, normal-form dotted path.
type Path struct {
	Segments []Segment
}

// String renders the canonical dotted form.
func (p Path) String() string {
	parts := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// Parse validates and parses a raw path string into normal form.
//
// Rules: no empty segments; "[n]" carries a non-negative integer; leading
// or trailing dots are errors; a segment is either "key", "key[n]", or
// "key[]" — never more than one bracket group.
func Parse(raw string) (Path, error) {
	if raw == "" {
		return Path{}, fmt.Errorf("empty path")
	}
	if strings.HasPrefix(raw, ".") || strings.HasSuffix(raw, ".") {
		return Path{}, fmt.Errorf("path %q has leading or trailing dot", raw)
	}

	rawSegs := strings.Split(raw, ".")
	segs := make([]Segment, 0, len(rawSegs))
	for _, rs := range rawSegs {
		if rs == "" {
			return Path{}, fmt.Errorf("path %q contains an empty segment", raw)
		}
		seg, err := parseSegment(rs)
		if err != nil {
			return Path{}, fmt.Errorf("path %q: %w", raw, err)
		}
		segs = append(segs, seg)
	}
	return Path{Segments: segs}, nil
}

// MustParse parses raw and panics on error. Intended for literal paths
// known at compile time (tests, constants), never for untrusted input.
func MustParse(raw string) Path {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func parseSegment(rs string) (Segment, error) {
	open := strings.IndexByte(rs, '[')
	if open < 0 {
		if strings.ContainsAny(rs, "]") {
			return Segment{}, fmt.Errorf("unmatched ']' in segment %q", rs)
		}
		return Segment{Key: rs}, nil
	}
	if !strings.HasSuffix(rs, "]") {
		return Segment{}, fmt.Errorf("malformed bracket in segment %q", rs)
	}
	key := rs[:open]
	if key == "" {
		return Segment{}, fmt.Errorf("segment %q has empty key before '['", rs)
	}
	inner := rs[open+1 : len(rs)-1]
	if strings.ContainsAny(inner, "[]") {
		return Segment{}, fmt.Errorf("segment %q has more than one bracket group", rs)
	}
	if inner == "" {
		return Segment{Key: key, Wildcard: true}, nil
	}
	n, err := strconv.Atoi(inner)
	if err != nil || n < 0 {
		return Segment{}, fmt.Errorf("segment %q has a non-integer or negative index %q", rs, inner)
	}
	return Segment{Key: key, Index: n, Indexed: true}, nil
}

// Collides reports whether two segments at the same tree position would
// write to overlapping storage: identical keys are required, and among
// identical keys, a wildcard collides with a plain (object) segment and
// with another wildcard (both claim the whole array slot), but never with
// an indexed segment — wildcards accept any index, so `key[i]` and `key[]`
// target the same array without contending for a single element. Two
// differently-valued indexed segments never collide, and two
// identically-indexed segments always collide.
func (a Segment) Collides(b Segment) bool {
	if a.Key != b.Key {
		return false
	}
	switch {
	case a.Wildcard && b.Wildcard:
		return true
	case a.Wildcard || b.Wildcard:
		// wildcard paired with an indexed segment: never collides (wildcards
		// accept any index). wildcard paired with a plain object key: the
		// bare key and the wildcard both name the same slot, so they do.
		return !a.Indexed && !b.Indexed
	case a.Indexed && b.Indexed:
		return a.Index == b.Index
	case !a.Indexed && !b.Indexed:
		return true
	default:
		// one indexed, one plain object key at the same position: these
		// are incompatible shapes (array element vs. object), callers
		// decide whether that is an error; report as colliding so the
		// caller can reject the shape mismatch.
		return true
	}
}

// SamePosition reports whether two paths of the same length collide at
// every segment in turn (used to decide whether two content items target
// the same canonical tree position).
func SamePosition(a, b Path) bool {
	if len(a.Segments) != len(b.Segments) {
		return false
	}
	for i := range a.Segments {
		if !a.Segments[i].Collides(b.Segments[i]) {
			return false
		}
	}
	return true
}
