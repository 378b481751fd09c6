// Package chunker splits extracted page text into overlapping chunks sized for embedding.
package chunker

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the maximum chunk length in characters (runes).
	DefaultChunkSize = 2000

	// DefaultChunkOverlap is the number of characters shared by consecutive chunks.
	DefaultChunkOverlap = 400
)

// separators are tried in order: paragraph break, line break, space, raw character cut.
var separators = []string{"\n\n", "\n", " ", ""}

// Page is the extracted text of one page.
type Page struct {
	Number *int // 0-based page index, nil when the source has no pagination
	Text   string
}

// PageNumber returns a page number suitable for Page.Number.
func PageNumber(n int) *int {
	return &n
}

// Chunk is a bounded span of text from one page of a document.
type Chunk struct {
	Index      int    // Position in document (0, 1, 2...)
	Text       string // Chunk text, whitespace-trimmed
	Page       *int   // Originating page (0-based), nil when unknown
	DocID      string // Owning document, attached after splitting
	SourceFile string // Original upload filename, attached after splitting
}

// PageLabel returns the human-readable page label: the 1-based page number, or "unknown".
func PageLabel(page *int) string {
	if page == nil {
		return "unknown"
	}
	return strconv.Itoa(*page + 1)
}

// Chunker splits text recursively, preferring the highest-priority separator that keeps
// every chunk within the size bound.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave room for new text in every chunk
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// ChunkSize returns the configured maximum chunk size.
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int {
	return c.overlap
}

// SplitPages chunks every page in order. Chunks keep their page number;
// document metadata is left for the caller to attach.
func (c *Chunker) SplitPages(pages []Page) []Chunk {
	var chunks []Chunk
	for _, page := range pages {
		for _, text := range c.Split(page.Text) {
			chunks = append(chunks, Chunk{
				Index: len(chunks),
				Text:  text,
				Page:  copyNumber(page.Number),
			})
		}
	}
	return chunks
}

// Split splits a single text. Blank input yields no chunks.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return c.split(text, separators)
}

func (c *Chunker) split(text string, seps []string) []string {
	// Use the first separator present in the text; "" always matches
	separator := ""
	var finer []string
	for i, sep := range seps {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			finer = seps[i+1:]
			break
		}
	}

	var chunks []string
	var pending []string
	for _, piece := range splitOn(text, separator) {
		if runeLen(piece) <= c.chunkSize {
			pending = append(pending, piece)
			continue
		}

		if len(pending) > 0 {
			chunks = append(chunks, c.merge(pending, separator)...)
			pending = nil
		}
		if len(finer) == 0 {
			chunks = append(chunks, c.split(piece, []string{""})...)
			continue
		}
		chunks = append(chunks, c.split(piece, finer)...)
	}
	if len(pending) > 0 {
		chunks = append(chunks, c.merge(pending, separator)...)
	}

	return chunks
}

// merge packs pieces into chunks of at most chunkSize, carrying up to overlap
// characters of trailing pieces into the next chunk.
func (c *Chunker) merge(pieces []string, separator string) []string {
	sepLen := runeLen(separator)

	var chunks []string
	var window []string
	total := 0

	for _, piece := range pieces {
		n := runeLen(piece)

		if len(window) > 0 && total+n+joinCost(len(window), sepLen) > c.chunkSize {
			if chunk := strings.TrimSpace(strings.Join(window, separator)); chunk != "" {
				chunks = append(chunks, chunk)
			}

			// Drop leading pieces until the window fits the overlap and the next piece
			for len(window) > 0 && (total > c.overlap || total+n+joinCost(len(window), sepLen) > c.chunkSize) {
				total -= runeLen(window[0]) + joinCost(len(window)-1, sepLen)
				window = window[1:]
			}
		}

		window = append(window, piece)
		total += n + joinCost(len(window)-1, sepLen)
	}

	if chunk := strings.TrimSpace(strings.Join(window, separator)); chunk != "" {
		chunks = append(chunks, chunk)
	}

	return chunks
}

// splitOn splits text on separator, dropping empty pieces. The empty separator
// splits into single characters.
func splitOn(text, separator string) []string {
	if separator == "" {
		pieces := make([]string, 0, runeLen(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	raw := strings.Split(text, separator)
	pieces := raw[:0]
	for _, piece := range raw {
		if piece != "" {
			pieces = append(pieces, piece)
		}
	}
	return pieces
}

// joinCost is the separator length added when joining one more piece to count pieces.
func joinCost(count, sepLen int) int {
	if count > 0 {
		return sepLen
	}
	return 0
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func copyNumber(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}
