package notetmpl

import (
	"fmt"
	"strconv"
	"strings"
)

// LocatorKind discriminates the two VerbatimRef locator forms.
type LocatorKind string

const (
	LocatorNone LocatorKind = ""
	LocatorTime LocatorKind = "t"
	LocatorPage LocatorKind = "p"
)

// VerbatimRef identifies a quoted span in a source document:
// "source:id" or "source:id#t=a-b" or "source:id#p=n".
type VerbatimRef struct {
	Source string
	ID     string

	Locator   LocatorKind
	TimeStart int // inclusive, seconds
	TimeEnd   int // inclusive, seconds
	Page      int // 1-based
}

// String renders the VerbatimRef back to its canonical grammar form.
func (r VerbatimRef) String() string {
	base := r.Source + ":" + r.ID
	switch r.Locator {
	case LocatorTime:
		return fmt.Sprintf("%s#t=%d-%d", base, r.TimeStart, r.TimeEnd)
	case LocatorPage:
		return fmt.Sprintf("%s#p=%d", base, r.Page)
	default:
		return base
	}
}

// ParseVerbatimRef parses the grammar:
//
//	source ":" id ( "#" locator )?
//	locator = "t=" int "-" int | "p=" int
func ParseVerbatimRef(raw string) (VerbatimRef, error) {
	var ref VerbatimRef

	sourceAndID, locatorPart, hasLocator := strings.Cut(raw, "#")

	colon := strings.IndexByte(sourceAndID, ':')
	if colon < 0 {
		return ref, fmt.Errorf("invalid_ref: missing ':' in %q", raw)
	}
	ref.Source = sourceAndID[:colon]
	ref.ID = sourceAndID[colon+1:]
	if ref.Source == "" || ref.ID == "" {
		return ref, fmt.Errorf("invalid_ref: empty source or id in %q", raw)
	}

	if !hasLocator || locatorPart == "" {
		return ref, nil
	}

	switch {
	case strings.HasPrefix(locatorPart, "t="):
		rangePart := strings.TrimPrefix(locatorPart, "t=")
		a, b, ok := strings.Cut(rangePart, "-")
		if !ok {
			return ref, fmt.Errorf("invalid_ref: malformed time locator %q", locatorPart)
		}
		start, err := strconv.Atoi(a)
		if err != nil {
			return ref, fmt.Errorf("invalid_ref: malformed time start %q: %w", a, err)
		}
		end, err := strconv.Atoi(b)
		if err != nil {
			return ref, fmt.Errorf("invalid_ref: malformed time end %q: %w", b, err)
		}
		ref.Locator = LocatorTime
		ref.TimeStart = start
		ref.TimeEnd = end
		return ref, nil
	case strings.HasPrefix(locatorPart, "p="):
		n, err := strconv.Atoi(strings.TrimPrefix(locatorPart, "p="))
		if err != nil {
			return ref, fmt.Errorf("invalid_ref: malformed page locator %q: %w", locatorPart, err)
		}
		ref.Locator = LocatorPage
		ref.Page = n
		return ref, nil
	default:
		return ref, fmt.Errorf("invalid_ref: unknown locator kind %q", locatorPart)
	}
}
