package extract

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	docxBodyPart = "word/document.xml"
	wordMLNS     = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
)

// DOCX extracts paragraph text from word/document.xml in document order, each
// paragraph followed by a newline. The XML is streamed so paragraphs decoded
// before a syntax error are kept.
func DOCX(path string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != docxBodyPart {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", docxBodyPart, err)
		}
		defer rc.Close()
		return paragraphs(rc)
	}
	return "", fmt.Errorf("docx: %s missing", docxBodyPart)
}

// paragraphs walks WordprocessingML tokens. Text runs (w:t) inside a
// paragraph (w:p) are concatenated; w:tab becomes a tab and w:br/w:cr a
// line break. Elements from other namespaces (DrawingML a:t, math m:t) are
// skipped.
func paragraphs(r io.Reader) (string, error) {
	var (
		out     strings.Builder
		inText  bool
		decoder = xml.NewDecoder(r)
	)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return out.String(), nil
		}
		if err != nil {
			return out.String(), fmt.Errorf("parse %s: %w", docxBodyPart, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordMLNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				out.WriteString("\t")
			case "br", "cr":
				out.WriteString("\n")
			}
		case xml.EndElement:
			if t.Name.Space != wordMLNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
}
