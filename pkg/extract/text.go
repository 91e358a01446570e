package extract

import (
	"errors"
	"fmt"
	"os"
	"unicode/utf8"
)

var ErrInvalidUTF8 = errors.New("file is not valid UTF-8")

// Text returns the file content unchanged. Read failures and invalid UTF-8
// yield an empty string.
func Text(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	if !utf8.Valid(data) {
		return "", ErrInvalidUTF8
	}
	return string(data), nil
}
