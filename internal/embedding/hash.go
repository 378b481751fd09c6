package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// DefaultHashDimension is the vector size of the hashing embedder.
const DefaultHashDimension = 512

// HashEmbedder is a local, dependency-free embedder based on feature hashing of
// lowercased word tokens. It needs no corpus preparation and no network, which
// makes it suitable for offline use and tests; similarity is lexical, not semantic.
type HashEmbedder struct {
	dimension    int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewHashEmbedder creates a hashing embedder. dimension <= 0 selects DefaultHashDimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	return &HashEmbedder{
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Dimension returns the length of every vector this embedder produces.
func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

// GenerateEmbeddings embeds each text. It never fails unless ctx is done.
func (e *HashEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		embeddings[i] = e.embed(text)
	}
	return embeddings, nil
}

// Embed generates the embedding of a single text.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.embed(text), nil
}

// stopwordWeight scales stopword features so they only matter when a text
// has little else, as in "what is it?".
const stopwordWeight = 0.1

func (e *HashEmbedder) embed(text string) []float32 {
	counts := make(map[string]int)
	for _, tok := range e.tokenPattern.FindAllString(strings.ToLower(text), -1) {
		counts[tok]++
	}

	vec := make([]float32, e.dimension)
	for tok, n := range counts {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()

		// Sublinear term frequency; the top bit picks the sign to spread collisions
		weight := float32(1 + math.Log(float64(n)))
		if _, isStop := e.stopwords[tok]; isStop {
			weight *= stopwordWeight
		}
		if sum>>63 == 1 {
			weight = -weight
		}
		vec[sum%uint64(e.dimension)] += weight
	}

	return Normalize(vec)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "but", "by", "do", "does", "for",
		"from", "has", "have", "how", "i", "in", "is", "it", "its", "of", "on", "or",
		"that", "the", "this", "to", "was", "were", "what", "when", "where", "which",
		"who", "why", "with", "you",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
