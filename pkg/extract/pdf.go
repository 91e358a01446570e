package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDF extracts the plain text of every page in order, each page followed by a
// newline. The parser panics on some malformed inputs; those panics, and a
// page that fails to decode, are reported as errors alongside the pages read
// before the failure.
func PDF(path string) (text string, err error) {
	var buf strings.Builder
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
		text = buf.String()
	}()

	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	totalPages := reader.NumPage()
	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			buf.WriteString("\n")
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		buf.WriteString(pageText)
		buf.WriteString("\n")
	}
	return "", nil
}
