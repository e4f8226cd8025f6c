package cardid

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Normalize concatenates a card's content after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each
// field before joining them.
func Normalize(question, answer, context string) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	q := normalizePart(question)
	a := normalizePart(answer)
	c := normalizePart(context)

	// Joined with newlines so field boundaries survive, preventing
	// "question" and "answer" collapsing into "questionanswer".
	return strings.Join([]string{q, a, c}, "\n")
}

// Derive returns the card's opaque identifier: the SHA-256 hash of its
// normalized content as a hex string. The same knowledge always maps to
// the same id, so re-importing a source never duplicates cards.
func Derive(question, answer, context string) string {
	normalized := Normalize(question, answer, context)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}
