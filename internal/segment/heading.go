package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/sectionrank/internal/doctree"
)

// Heading thresholds.
const (
	DefaultMaxWords      = 15
	DefaultSizeRatio     = 1.20
	DefaultTerminalPunct = ".!?"

	// Lines shorter than this skip the casing check.
	caseCheckMinWords = 3
)

// Config controls heading classification.
type Config struct {
	MaxWords      int     // A heading has fewer words than this.
	SizeRatio     float64 // Font size contrast against the page median.
	TerminalPunct string  // A heading does not end with any of these.
}

// DefaultConfig returns the standard heading thresholds.
func DefaultConfig() Config {
	return Config{
		MaxWords:      DefaultMaxWords,
		SizeRatio:     DefaultSizeRatio,
		TerminalPunct: DefaultTerminalPunct,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxWords <= 0 {
		c.MaxWords = DefaultMaxWords
	}
	if c.SizeRatio <= 0 {
		c.SizeRatio = DefaultSizeRatio
	}
	if c.TerminalPunct == "" {
		c.TerminalPunct = DefaultTerminalPunct
	}
	return c
}

// IsHeading reports whether a line reads as a heading relative to its page.
// The structural and casing gates must both pass; then either a font size
// of at least SizeRatio times the page median or a bold face on a non-bold
// page is enough.
func IsHeading(line doctree.Line, stats PageStats, cfg Config) bool {
	cfg = cfg.withDefaults()

	text := strings.TrimSpace(line.Text)
	if text == "" {
		return false
	}
	words := strings.Fields(text)
	if len(words) >= cfg.MaxWords {
		return false
	}
	if last, _ := utf8.DecodeLastRuneInString(text); strings.ContainsRune(cfg.TerminalPunct, last) {
		return false
	}

	if len(words) >= caseCheckMinWords {
		lower := 0
		for _, w := range words {
			if isLowerWord(w) {
				lower++
			}
		}
		if lower*2 > len(words) {
			return false
		}
	}

	larger := stats.MedianFontSize > 0 && line.FontSize >= stats.MedianFontSize*cfg.SizeRatio
	bold := line.Bold && !stats.BodyBold
	return larger || bold
}

// isLowerWord reports whether w has at least one cased letter and no
// upper-case letters. Numbers and symbols alone are not lower case.
func isLowerWord(w string) bool {
	cased := false
	for _, r := range w {
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsLower(r) {
			cased = true
		}
	}
	return cased
}
