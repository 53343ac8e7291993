package textutil

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxSlugLen bounds slug length; longer titles are truncated with a short
// content hash suffix so distinct titles cannot collide after truncation.
const maxSlugLen = 100

var foldTransformer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug converts a title into a filesystem-safe name: accents folded to ASCII,
// unsafe characters stripped, whitespace collapsed. Returns "untitled" for
// input that sanitizes to nothing.
func Slug(title string) string {
	s := strings.TrimSpace(title)
	if folded, _, err := transform.String(foldTransformer, s); err == nil {
		s = folded
	}
	s = strings.ReplaceAll(s, "/", "-")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '_' || r == '-':
			b.WriteRune(r)
		}
	}
	s = strings.Join(strings.Fields(b.String()), " ")
	s = strings.Trim(s, " -_")
	if s == "" {
		return "untitled"
	}
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen-8], " ") + "-" + ShortHash(s)
	}
	return s
}

// ShortHash returns the first six hex characters of the SHA-1 of s.
func ShortHash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:6]
}
