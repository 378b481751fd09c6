package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUpload(t *testing.T) {
	const max = 10 << 20

	tests := []struct {
		name     string
		filename string
		size     int64
		wantErr  bool
	}{
		{"valid", "report.pdf", 1024, false},
		{"uppercase extension", "REPORT.PDF", 1024, false},
		{"wrong type", "notes.txt", 1024, true},
		{"no extension", "report", 1024, true},
		{"blank name", "  ", 1024, true},
		{"empty file", "report.pdf", 0, true},
		{"too large", "report.pdf", max + 1, true},
		{"at limit", "report.pdf", max, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.filename, tt.size, max)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateQuestion(t *testing.T) {
	assert.NoError(t, ValidateQuestion("What is the capital of France?"))
	assert.NoError(t, ValidateQuestion(strings.Repeat("é", MaxQuestionLength)))
	assert.NoError(t, ValidateQuestion("  padded  "+strings.Repeat(" ", 2000)))

	assert.ErrorIs(t, ValidateQuestion(""), ErrValidation)
	assert.ErrorIs(t, ValidateQuestion("\n\t "), ErrValidation)
	assert.ErrorIs(t, ValidateQuestion(strings.Repeat("a", MaxQuestionLength+1)), ErrValidation)
}

func TestCleanFilename(t *testing.T) {
	assert.Equal(t, "report.pdf", cleanFilename("report.pdf"))
	assert.Equal(t, "report.pdf", cleanFilename("../../report.pdf"))
	assert.Equal(t, "report.pdf", cleanFilename(`C:\Users\me\report.pdf`))
}
