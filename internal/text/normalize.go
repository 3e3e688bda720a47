// Package text provides input normalization for synthesis requests.
//
// The cloud voice API is sensitive to stray formatting in its input: smart
// quotes, typographic dashes, and collapsed-newline artifacts all degrade
// prosody. The normalizer cleans these up before the text leaves the gateway.
package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Regex patterns for text normalization.
const (
	whitespaceRegexPattern = `\s+`
)

// Punctuation and formatting constants.
const (
	emDash       = "—"
	enDash       = "–"
	figureDash   = "‒"
	ellipsis     = "..."
	ellipsisChar = "…"
)

// Normalizer provides text normalization for synthesis input.
type Normalizer struct {
	// Precompiled regex patterns for performance.
	whitespacePattern *regexp.Regexp

	// Efficient replacer for typographic punctuation.
	punctuationReplacer *strings.Replacer
}

// NewNormalizer creates a normalizer with compiled patterns and replacers.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		whitespacePattern: regexp.MustCompile(whitespaceRegexPattern),
		punctuationReplacer: strings.NewReplacer(
			emDash, "-",
			enDash, "-",
			figureDash, "-",
			ellipsisChar, ellipsis,
			"“", `"`, "”", `"`, // Smart quotes to standard quotes
			"‘", "'", "’", "'", // Smart single quotes to standard
		),
	}
}

// Normalize collapses whitespace, standardizes typographic punctuation, and
// ensures the text ends with sentence punctuation. Empty input is returned
// unchanged.
func (n *Normalizer) Normalize(input string) string {
	if input == "" {
		return input
	}

	normalized := n.normalizeWhitespace(input)
	normalized = n.punctuationReplacer.Replace(normalized)

	return ensureSentenceEnding(normalized)
}

// normalizeWhitespace replaces runs of whitespace, including newlines and
// tabs, with single spaces.
func (n *Normalizer) normalizeWhitespace(input string) string {
	return strings.TrimSpace(n.whitespacePattern.ReplaceAllString(input, " "))
}

// ensureSentenceEnding appends a period when the text does not already end
// with sentence-ending punctuation.
func ensureSentenceEnding(input string) string {
	if input == "" {
		return input
	}

	lastChar, _ := utf8.DecodeLastRuneInString(input)
	if !unicode.IsPunct(lastChar) {
		return input + "."
	}

	switch lastChar {
	case '.', '!', '?':
		return input
	default:
		return input + "."
	}
}
