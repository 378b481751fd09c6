package rag

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxQuestionLength is the longest accepted question, in characters.
const MaxQuestionLength = 1000

// ValidateUpload checks an uploaded file's name and size against max bytes.
func ValidateUpload(filename string, size, max int64) error {
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("%w: missing filename", ErrValidation)
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return fmt.Errorf("%w: only PDF files are supported", ErrValidation)
	}
	if size <= 0 {
		return fmt.Errorf("%w: file is empty", ErrValidation)
	}
	if max > 0 && size > max {
		return fmt.Errorf("%w: file size %d exceeds limit of %d bytes", ErrValidation, size, max)
	}
	return nil
}

// ValidateQuestion checks that q is non-blank and not longer than MaxQuestionLength.
func ValidateQuestion(q string) error {
	q = strings.TrimSpace(q)
	if q == "" {
		return fmt.Errorf("%w: question must not be empty", ErrValidation)
	}
	if n := utf8.RuneCountInString(q); n > MaxQuestionLength {
		return fmt.Errorf("%w: question is %d characters, limit is %d", ErrValidation, n, MaxQuestionLength)
	}
	return nil
}

// cleanFilename strips any client-side directory components.
func cleanFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSpace(name)
}
