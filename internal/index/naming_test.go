package index

import (
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_]{1,63}$`)

func TestCollectionName(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"uuid", "0f8fad5b-d9cb-469f-a165-70867728950e", "doc_0f8fad5b_d9cb_469f_a165_70867728950e"},
		{"plain", "report42", "doc_report42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CollectionName(tt.id))
		})
	}
}

func TestCollectionName_HashedForms(t *testing.T) {
	ids := []string{
		"",
		"has space",
		"under_score",
		"-leading-dash",
		"ünïcode",
		strings.Repeat("a", 60),
	}

	for _, id := range ids {
		name := CollectionName(id)
		assert.True(t, strings.HasPrefix(name, CollectionPrefix+"_"), "id %q should hash, got %s", id, name)
		assert.Regexp(t, validName, name)
		assert.Equal(t, name, CollectionName(id), "naming must be deterministic")
	}
}

func TestCollectionName_Distinct(t *testing.T) {
	seen := make(map[string]string)
	ids := []string{"a-b", "a_b", "ab", "-ab", "AB"}
	for i := 0; i < 200; i++ {
		ids = append(ids, uuid.New().String())
	}

	for _, id := range ids {
		name := CollectionName(id)
		assert.Regexp(t, validName, name)
		if prev, ok := seen[name]; ok {
			t.Fatalf("ids %q and %q both map to %s", prev, id, name)
		}
		seen[name] = id
	}
}
