package pathkey

import "testing"

func TestParse_PlainKey(t *testing.T) {
	p, err := Parse("foo")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Segments) != 1 || p.Segments[0].Key != "foo" {
		t.Fatalf("got %v", p.Segments)
	}
}

func TestParse_NestedIndexedAndWildcard(t *testing.T) {
	p, err := Parse("foo.bar[0].baz[]")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(p.Segments) != 3 {
		t.Fatalf("segment count: got %d, want 3", len(p.Segments))
	}
	if p.Segments[0].Key != "foo" {
		t.Errorf("segment 0: got %q", p.Segments[0].Key)
	}
	if p.Segments[1].Key != "bar" || !p.Segments[1].Indexed || p.Segments[1].Index != 0 {
		t.Errorf("segment 1: got %+v", p.Segments[1])
	}
	if p.Segments[2].Key != "baz" || !p.Segments[2].Wildcard {
		t.Errorf("segment 2: got %+v", p.Segments[2])
	}
	if p.String() != "foo.bar[0].baz[]" {
		t.Errorf("String: got %q", p.String())
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []string{
		"",
		".foo",
		"foo.",
		"foo..bar",
		"foo[n]",
		"foo[-1]",
		"foo[0][1]",
		"foo]",
		"[0]",
	}
	for _, raw := range cases {
		if _, err := Parse(raw); err == nil {
			t.Errorf("Parse(%q): expected error, got nil", raw)
		}
	}
}

func TestSegment_Collides(t *testing.T) {
	plainA := Segment{Key: "tasks"}
	plainB := Segment{Key: "tasks"}
	idx0 := Segment{Key: "tasks", Indexed: true, Index: 0}
	idx1 := Segment{Key: "tasks", Indexed: true, Index: 1}
	wild := Segment{Key: "tasks", Wildcard: true}
	other := Segment{Key: "other"}

	if !plainA.Collides(plainB) {
		t.Error("two plain segments with the same key should collide")
	}
	if plainA.Collides(other) {
		t.Error("segments with different keys should never collide")
	}
	if idx0.Collides(idx1) {
		t.Error("differently-indexed segments should not collide")
	}
	if !idx0.Collides(idx0) {
		t.Error("identically-indexed segments should collide")
	}
	if wild.Collides(idx0) {
		t.Error("wildcard should never collide with an indexed sibling (wildcards accept any index)")
	}
	if !wild.Collides(plainA) {
		t.Error("wildcard should collide with a plain object key at the same position")
	}
	if !wild.Collides(wild) {
		t.Error("two wildcards at the same position should collide")
	}
}

func TestSamePosition(t *testing.T) {
	a := MustParse("plan.tasks[0].description")
	b := MustParse("plan.tasks[0].description")
	c := MustParse("plan.tasks[1].description")
	wild := MustParse("plan.tasks[].description")

	if !SamePosition(a, b) {
		t.Error("identical paths should be the same position")
	}
	if SamePosition(a, c) {
		t.Error("differently-indexed paths should not be the same position")
	}
	if SamePosition(a, wild) {
		t.Error("an indexed path should never collide with a wildcard sibling (wildcards accept any index)")
	}
}
