// Package pdf extracts page-structured text from PDF files using poppler's pdftotext.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/bull/pdf-rag-server/internal/chunker"
)

// DefaultTool is the pdftotext binary looked up on PATH.
const DefaultTool = "pdftotext"

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner runs an external command and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

// Extractor turns a PDF file into one chunker.Page per PDF page.
type Extractor struct {
	runner CommandRunner
	tool   string
}

// New creates an extractor that runs the given pdftotext binary (DefaultTool if empty).
func New(tool string) *Extractor {
	return NewWithRunner(execRunner{}, tool)
}

// NewWithRunner creates an extractor with a custom command runner.
func NewWithRunner(runner CommandRunner, tool string) *Extractor {
	if tool == "" {
		tool = DefaultTool
	}
	return &Extractor{runner: runner, tool: tool}
}

// CheckAvailable reports whether the pdftotext binary can be found.
func (e *Extractor) CheckAvailable() error {
	if _, err := exec.LookPath(e.tool); err != nil {
		return fmt.Errorf("%w: %v", ErrPDFToolNotFound, err)
	}
	return nil
}

// InstallInstructions explains how to install pdftotext.
func InstallInstructions() string {
	return `pdftotext is required for PDF text extraction.
  macOS:         brew install poppler
  Debian/Ubuntu: apt install poppler-utils
  Fedora:        dnf install poppler-utils`
}

// Extract returns the text of every page, in order. pdftotext terminates each
// page with a form feed, so a PDF without extractable text still yields its pages.
func (e *Extractor) Extract(ctx context.Context, path string) ([]chunker.Page, error) {
	out, err := e.runner.Run(ctx, e.tool, "-enc", "UTF-8", "-q", path, "-")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrPDFToolNotFound, err)
		}
		return nil, fmt.Errorf("pdftotext %s: %w", path, err)
	}

	return splitPages(string(out)), nil
}

// splitPages splits pdftotext output on form feeds.
func splitPages(out string) []chunker.Page {
	if out == "" {
		return nil
	}

	parts := strings.Split(out, "\f")
	// Text after the final form feed is not a page
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}

	pages := make([]chunker.Page, len(parts))
	for i, text := range parts {
		pages[i] = chunker.Page{
			Number: chunker.PageNumber(i),
			Text:   text,
		}
	}
	return pages
}
