package processor

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// hashSeparator keeps stem and options from colliding across field
// boundaries in the hash input.
const hashSeparator = "\x1f"

// CollapseWhitespace trims the string and folds internal whitespace
// runs into single spaces. Casing is preserved.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// normalizeForHash lowercases on top of whitespace collapsing, so the
// hash ignores cosmetic differences while stored text keeps its casing.
func normalizeForHash(s string) string {
	return strings.ToLower(CollapseWhitespace(s))
}

// ContentHash computes the content address of a question: sha256 over
// the normalized stem and the sorted normalized options. Option order
// does not affect the hash; any semantic change to stem or options does.
func ContentHash(stem string, options []string) string {
	norm := make([]string, len(options))
	for i, opt := range options {
		norm[i] = normalizeForHash(opt)
	}
	sort.Strings(norm)

	h := sha256.New()
	h.Write([]byte(normalizeForHash(stem)))
	h.Write([]byte(hashSeparator))
	h.Write([]byte(strings.Join(norm, hashSeparator)))
	return hex.EncodeToString(h.Sum(nil))
}
