package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// suffixes stripped by NormalizeWithSuffixStrip, longest first.
var suffixes = []string{"timestamp", "ids", "utc", "id", "at"}

// Normalize prepares a column or field name for fuzzy comparison:
// Unicode NFKC, camelCase and separator tokenization, case folding and
// separator removal. "Sample_ID", "sample-id" and "sampleID" all become
// "sampleid".
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	return folder.String(strings.Join(Tokenize(s), ""))
}

// NormalizeWithSuffixStrip is Normalize followed by removal of one common
// identifier suffix (id, ids, at, utc, timestamp), so "sampleID" compares
// equal to "sample".
func NormalizeWithSuffixStrip(s string) string {
	n := Normalize(s)
	for _, suffix := range suffixes {
		if strings.HasSuffix(n, suffix) && len(n) > len(suffix) {
			return strings.TrimSuffix(n, suffix)
		}
	}
	return n
}

// Tokenize splits an identifier on separators and camelCase boundaries.
//
//	"sampleID"       -> ["sample", "ID"]
//	"read_count"     -> ["read", "count"]
//	"HTTPReadsTotal" -> ["HTTP", "Reads", "Total"]
func Tokenize(s string) []string {
	if s == "" {
		return nil
	}

	var tokens []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if isSeparator(r) {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
			continue
		}
		if i > 0 && startsToken(runes, i) && current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == '.' || unicode.IsSpace(r)
}

// startsToken reports a lower-to-upper transition ("sampleID" before I) or
// the end of an acronym ("HTTPReads" before R).
func startsToken(runes []rune, i int) bool {
	r, prev := runes[i], runes[i-1]
	if !unicode.IsUpper(r) {
		return false
	}
	if !unicode.IsUpper(prev) && !isSeparator(prev) {
		return true
	}
	return unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
}
