// Package extractdoc extracts text (and, where the format supports it,
// page or paragraph structure) from documents attached as verbatim
// sources: PDF, DOCX, XLSX, and HTML. It normalizes every format into a
// resolve.Document so the verbatim resolver (C7) never has to know which
// format backed a given VerbatimRef.
package extractdoc

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/soochol/notegen/internal/resolve"
)

// Extract reads data and dispatches on contentType, mirroring the MIME
// switch a single shared extractor uses for every attachment kind rather
// than one extractor per resolver.
func Extract(contentType string, data []byte) (resolve.Document, error) {
	mime := strings.TrimSpace(strings.ToLower(strings.SplitN(contentType, ";", 2)[0]))

	switch {
	case strings.HasPrefix(mime, "text/html"):
		return extractHTML(data)
	case strings.HasPrefix(mime, "text/"):
		return resolve.Document{Text: strings.TrimSpace(string(data))}, nil
	case mime == "application/pdf":
		return extractPDF(data)
	case mime == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return extractDOCX(data)
	case mime == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return extractXLSX(data)
	default:
		return resolve.Document{}, fmt.Errorf("unsupported verbatim attachment content type %q", contentType)
	}
}

func extractPDF(data []byte) (resolve.Document, error) {
	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return resolve.Document{}, fmt.Errorf("parse pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= pdfReader.NumPage(); i++ {
		p := pdfReader.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, strings.TrimSpace(content))
	}
	return resolve.Document{Text: strings.TrimSpace(strings.Join(pages, "\n")), Pages: pages}, nil
}

func extractDOCX(data []byte) (resolve.Document, error) {
	text, err := docxText(data)
	if err != nil {
		return resolve.Document{}, err
	}
	return resolve.Document{Text: text}, nil
}

func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx zip: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return parseDOCXParagraphs(rc)
	}
	return "", fmt.Errorf("word/document.xml not found in docx")
}

// parseDOCXParagraphs walks the OOXML document.xml token stream,
// collecting <w:t> run text and inserting a newline at each <w:p>
// paragraph boundary.
func parseDOCXParagraphs(r io.Reader) (string, error) {
	var sb strings.Builder
	decoder := xml.NewDecoder(r)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return strings.TrimSpace(sb.String()), nil
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "t":
			var content struct {
				Text string `xml:",chardata"`
			}
			if err := decoder.DecodeElement(&content, &se); err == nil {
				sb.WriteString(content.Text)
			}
		case "p":
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func extractXLSX(data []byte) (resolve.Document, error) {
	xf, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return resolve.Document{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer xf.Close()

	var sb strings.Builder
	for _, sheet := range xf.GetSheetList() {
		rows, err := xf.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
	}
	return resolve.Document{Text: strings.TrimSpace(sb.String())}, nil
}

func extractHTML(data []byte) (resolve.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return resolve.Document{}, fmt.Errorf("parse html: %w", err)
	}
	var paragraphs []string
	doc.Find("body").Find("p, li, h1, h2, h3, h4, td").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		paragraphs = append(paragraphs, strings.TrimSpace(doc.Find("body").Text()))
	}
	return resolve.Document{Text: strings.Join(paragraphs, "\n")}, nil
}
