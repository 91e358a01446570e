// Package extract turns uploaded PDF, DOCX and plain text files into text.
//
// Extraction follows a partial-failure policy: when parsing breaks part way
// through, the text gathered so far is returned together with the error.
package extract

import (
	"path/filepath"
	"strings"
)

const (
	ExtPDF  = ".pdf"
	ExtDOCX = ".docx"
	ExtTXT  = ".txt"
)

// Extract reads the file at path and returns its text, choosing the parser by
// the lower-cased extension. Unsupported extensions yield an empty string and
// no error.
func Extract(path string) (string, error) {
	switch Ext(path) {
	case ExtPDF:
		return PDF(path)
	case ExtDOCX:
		return DOCX(path)
	case ExtTXT:
		return Text(path)
	default:
		return "", nil
	}
}

// Ext returns the lower-cased extension of name.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// Supported reports whether name has an extension Extract understands.
func Supported(name string) bool {
	switch Ext(name) {
	case ExtPDF, ExtDOCX, ExtTXT:
		return true
	}
	return false
}

// ContentType returns the MIME type used when storing name.
func ContentType(name string) string {
	switch Ext(name) {
	case ExtPDF:
		return "application/pdf"
	case ExtDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ExtTXT:
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
