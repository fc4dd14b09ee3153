package resolve

import (
	"fmt"

	"github.com/soochol/notegen/internal/diag"
	"github.com/soochol/notegen/internal/notetmpl"
)

// charsPerSecondFallback is the heuristic used to estimate a character
// offset range from a time-range locator when no per-segment timestamp
// metadata is available — only a flat transcript string.
const charsPerSecondFallback = 15

// Segment is one timestamped span of a transcript-like verbatim source.
type Segment struct {
	TimestampSec int
	Text         string
}

// Document is the normalized shape a verbatim source resolves to,
// whether it came from an inline source-record field or from
// internal/extractdoc's extraction of an attached PDF/DOCX/HTML/XLSX
// file. Exactly the subset a VerbatimRef locator needs is populated.
type Document struct {
	Text     string
	Pages    []string
	Segments []Segment
}

// VerbatimResolver produces `{text, ref}` leaves from a VerbatimRef. It
// looks up `source.<ref.Source>.<ref.ID>` in the source record first; if
// that entry is a raw attachment descriptor (`{contentType, data}`)
// rather than an already-normalized Document shape, DocExtractor (when
// set) is asked to extract it.
type VerbatimResolver struct {
	DocExtractor func(contentType string, data []byte) (Document, error)
}

func (VerbatimResolver) CanResolve(item notetmpl.ContentItem) bool {
	return item.Slot == notetmpl.SlotVerbatim
}

func (r VerbatimResolver) Resolve(item notetmpl.ContentItem, source map[string]any) Result {
	ref, err := notetmpl.ParseVerbatimRef(item.VerbatimRef)
	if err != nil {
		return Result{Warning: &diag.Warning{
			Code: diag.CodeInvalidRef, ItemID: item.ID, Path: item.TargetPath,
			Message:  err.Error(),
			Severity: severityFor(isRequired(item)),
		}}
	}

	doc, found, err := r.locateDocument(source, ref)
	if err != nil {
		return Result{Warning: &diag.Warning{
			Code: diag.CodeMissingSource, ItemID: item.ID, Path: item.TargetPath,
			Message:  fmt.Sprintf("verbatim source %s:%s could not be extracted: %v", ref.Source, ref.ID, err),
			Severity: severityFor(isRequired(item)),
		}}
	}
	if !found {
		return Result{Warning: &diag.Warning{
			Code: diag.CodeMissingSource, ItemID: item.ID, Path: item.TargetPath,
			Message:  fmt.Sprintf("no verbatim source found at %s:%s", ref.Source, ref.ID),
			Severity: severityFor(isRequired(item)),
		}}
	}

	text, ok := extractText(doc, ref)
	if !ok {
		return Result{Warning: &diag.Warning{
			Code: diag.CodeMissingSource, ItemID: item.ID, Path: item.TargetPath,
			Message:  fmt.Sprintf("verbatim locator %s did not resolve within %s:%s", ref.String(), ref.Source, ref.ID),
			Severity: severityFor(isRequired(item)),
		}}
	}

	return Result{Value: map[string]any{
		"text": text,
		"ref":  ref.String(),
	}}
}

// locateDocument finds the raw entry for ref under source and normalizes
// it to a Document, delegating to DocExtractor for attachment blobs.
func (r VerbatimResolver) locateDocument(source map[string]any, ref notetmpl.VerbatimRef) (Document, bool, error) {
	sourceGroup, ok := source[ref.Source].(map[string]any)
	if !ok {
		return Document{}, false, nil
	}
	entry, ok := sourceGroup[ref.ID]
	if !ok {
		return Document{}, false, nil
	}

	switch v := entry.(type) {
	case map[string]any:
		if contentType, ok := v["contentType"].(string); ok {
			if r.DocExtractor == nil {
				return Document{}, false, fmt.Errorf("no document extractor configured for contentType %q", contentType)
			}
			data, _ := v["data"].([]byte)
			doc, err := r.DocExtractor(contentType, data)
			return doc, true, err
		}
		return documentFromMap(v), true, nil
	default:
		return Document{}, false, nil
	}
}

func documentFromMap(v map[string]any) Document {
	doc := Document{}
	if text, ok := v["text"].(string); ok {
		doc.Text = text
	}
	if rawPages, ok := v["pages"].([]any); ok {
		for _, p := range rawPages {
			if s, ok := p.(string); ok {
				doc.Pages = append(doc.Pages, s)
			}
		}
	}
	if rawSegments, ok := v["segments"].([]any); ok {
		for _, s := range rawSegments {
			seg, ok := s.(map[string]any)
			if !ok {
				continue
			}
			ts := 0
			switch t := seg["timestamp"].(type) {
			case float64:
				ts = int(t)
			case int:
				ts = t
			}
			text, _ := seg["text"].(string)
			doc.Segments = append(doc.Segments, Segment{TimestampSec: ts, Text: text})
		}
	}
	return doc
}

// extractText applies the ref's locator to doc: a time range selects and
// joins overlapping segments (or, absent segment metadata, estimates a
// character offset window in doc.Text at charsPerSecondFallback chars/sec);
// a page locator indexes doc.Pages; no locator returns doc.Text (or all
// segments/pages joined, if Text itself is empty).
func extractText(doc Document, ref notetmpl.VerbatimRef) (string, bool) {
	switch ref.Locator {
	case notetmpl.LocatorTime:
		if len(doc.Segments) > 0 {
			joined := ""
			matched := false
			for _, seg := range doc.Segments {
				if seg.TimestampSec >= ref.TimeStart && seg.TimestampSec <= ref.TimeEnd {
					if matched {
						joined += " "
					}
					joined += seg.Text
					matched = true
				}
			}
			if matched {
				return joined, true
			}
			return "", false
		}
		if doc.Text != "" {
			start := ref.TimeStart * charsPerSecondFallback
			end := ref.TimeEnd * charsPerSecondFallback
			if start > len(doc.Text) {
				return "", false
			}
			if end > len(doc.Text) {
				end = len(doc.Text)
			}
			return doc.Text[start:end], true
		}
		return "", false

	case notetmpl.LocatorPage:
		if ref.Page < 1 || ref.Page > len(doc.Pages) {
			return "", false
		}
		return doc.Pages[ref.Page-1], true

	default:
		if doc.Text != "" {
			return doc.Text, true
		}
		if len(doc.Segments) > 0 {
			joined := ""
			for i, seg := range doc.Segments {
				if i > 0 {
					joined += " "
				}
				joined += seg.Text
			}
			return joined, true
		}
		if len(doc.Pages) > 0 {
			joined := ""
			for i, p := range doc.Pages {
				if i > 0 {
					joined += "\n"
				}
				joined += p
			}
			return joined, true
		}
		return "", false
	}
}
