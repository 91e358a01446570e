package knowledge

import "errors"

var (
	ErrEmptyQuestion = errors.New("question required")
	ErrEmptyFilename = errors.New("filename required")
)
