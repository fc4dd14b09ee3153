// Package fieldguide builds the per-ai-item field guide (C9) and slices
// the NAS snapshot down to only the paths the field guide actually
// depends on (C10).
package fieldguide

import (
	"strings"

	"github.com/soochol/notegen/internal/notetmpl"
	"github.com/soochol/notegen/internal/pathkey"
	"github.com/soochol/notegen/internal/pathset"
)

// DependencySource names where a dependency path resolves: the NAS
// snapshot, or the side factPack.
type DependencySource string

const (
	DependencyNAS      DependencySource = "nas"
	DependencyFactPack DependencySource = "factPack"
)

const factPackPrefix = "factPack."

// Dependency is one entry of a field guide item's resolved aiDeps.
type Dependency struct {
	Path   string // with the factPack. prefix stripped, if present
	Source DependencySource
}

// Entry is one field guide item: everything the prompt composer needs to
// describe one `ai` content item to the model.
type Entry struct {
	ItemID       string
	Path         string // outputPath
	Guidance     []string
	Constraints  *notetmpl.Constraints
	Dependencies []Dependency
}

// Build walks layout and emits one Entry per `ai` content item, in
// template order. Coverage (len(entries) == CountAIItems(layout)) holds
// by construction since every ai item produces exactly one entry.
func Build(layout []notetmpl.Component) []Entry {
	var entries []Entry
	notetmpl.Walk(layout, func(_ string, item notetmpl.ContentItem) {
		if item.Slot != notetmpl.SlotAI {
			return
		}
		entries = append(entries, Entry{
			ItemID:       item.ID,
			Path:         item.OutputPath,
			Guidance:     item.Guidance,
			Constraints:  item.Constraints,
			Dependencies: classifyDeps(item.AIDeps),
		})
	})
	return entries
}

func classifyDeps(aiDeps []string) []Dependency {
	deps := make([]Dependency, 0, len(aiDeps))
	for _, raw := range aiDeps {
		if strings.HasPrefix(raw, factPackPrefix) {
			deps = append(deps, Dependency{Path: strings.TrimPrefix(raw, factPackPrefix), Source: DependencyFactPack})
		} else {
			deps = append(deps, Dependency{Path: raw, Source: DependencyNAS})
		}
	}
	return deps
}

// Slices is the projected context a prompt actually carries: the subset
// of NAS and of factPack the field guide's dependencies reference.
type Slices struct {
	NAS      map[string]any
	FactPack map[string]any
}

// Slice projects nas and factPack down to the union of dependency paths
// across entries. A dependency path that fails to parse or that misses
// in its source is simply omitted from the projection — the prompt
// linter (C11) is responsible for flagging that as a warning, not the
// slicer.
func Slice(entries []Entry, nas map[string]any, factPack map[string]any) Slices {
	out := Slices{NAS: map[string]any{}, FactPack: map[string]any{}}
	seen := map[string]bool{}

	for _, e := range entries {
		for _, dep := range e.Dependencies {
			if seen[string(dep.Source)+":"+dep.Path] {
				continue
			}
			seen[string(dep.Source)+":"+dep.Path] = true

			path, err := pathkey.Parse(dep.Path)
			if err != nil {
				continue
			}

			switch dep.Source {
			case DependencyNAS:
				if value, ok := pathset.Get(nas, path); ok {
					projectValue(out.NAS, path, value)
				}
			case DependencyFactPack:
				if value, ok := pathset.Get(factPack, path); ok {
					projectValue(out.FactPack, path, value)
				}
			}
		}
	}
	return out
}

// projectValue copies value (as already fully read by pathset.Get, which
// for a wildcard segment returns the whole array) into dst along path,
// creating intermediate objects. Unlike pathset.Set, a wildcard or
// indexed terminal segment assigns the whole value directly rather than
// growing/merging an array element, since value here already is the
// complete sub-structure the dependency path named.
func projectValue(dst map[string]any, path pathkey.Path, value any) {
	cur := dst
	for i, seg := range path.Segments {
		last := i == len(path.Segments)-1
		if last {
			cur[seg.Key] = value
			return
		}
		child, _ := cur[seg.Key].(map[string]any)
		if child == nil {
			child = map[string]any{}
			cur[seg.Key] = child
		}
		cur = child
	}
}
