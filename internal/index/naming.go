package index

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// CollectionPrefix marks every per-document collection owned by this service.
const CollectionPrefix = "doc_"

// maxCollectionName keeps names within the limits of common vector stores.
const maxCollectionName = 63

// CollectionName derives the collection name for a document id.
//
// Ids that start with an ASCII letter or digit and contain only letters,
// digits and '-' map to "doc_" plus the id with '-' replaced by '_'. Anything
// else, or anything too long, maps to "doc__" plus the first 40 hex chars of
// the id's SHA-256. The character after the prefix tells the two forms apart.
func CollectionName(docID string) string {
	if isPlainID(docID) && len(CollectionPrefix)+len(docID) <= maxCollectionName {
		return CollectionPrefix + strings.ReplaceAll(docID, "-", "_")
	}
	sum := sha256.Sum256([]byte(docID))
	return CollectionPrefix + "_" + hex.EncodeToString(sum[:])[:40]
}

func isPlainID(id string) bool {
	if id == "" || id[0] == '-' {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
		default:
			return false
		}
	}
	return true
}
