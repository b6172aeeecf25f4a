package rank

import (
	"strings"
	"unicode"
)

var abbreviations = map[string]bool{
	"mr.": true, "mrs.": true, "ms.": true, "dr.": true, "prof.": true,
	"sr.": true, "jr.": true, "vs.": true, "e.g.": true, "i.e.": true,
	"inc.": true, "ltd.": true, "co.": true, "corp.": true,
	"jan.": true, "feb.": true, "mar.": true, "apr.": true, "jun.": true, "jul.": true,
	"aug.": true, "sep.": true, "sept.": true, "oct.": true, "nov.": true, "dec.": true,
	"st.": true, "rd.": true, "ave.": true, "blvd.": true,
	"no.": true, "vol.": true, "pp.": true, "pg.": true, "approx.": true,
	"tbsp.": true, "tsp.": true, "oz.": true, "lb.": true, "lbs.": true,
}

// SplitSentences breaks text into sentences at '.', '!' or '?' followed by
// whitespace. Closing quotes and brackets stay with their sentence. A period
// ending a known abbreviation or a single-letter initial is not a boundary.
// This is a heuristic; it does not handle every abbreviation.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		end := i + 1
		for end < len(runes) && isCloser(runes[end]) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			continue
		}
		if r == '.' && endsWithAbbreviation(runes[start:i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
		i = end - 1
	}

	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '»':
		return true
	}
	return false
}

// endsWithAbbreviation reports whether the last word of s, which ends in a
// period, is an abbreviation or an initial such as "J.".
func endsWithAbbreviation(s []rune) bool {
	j := len(s) - 1
	for j > 0 && !unicode.IsSpace(s[j-1]) {
		j--
	}
	word := strings.TrimLeft(string(s[j:]), "(\"'“‘[")
	if abbreviations[strings.ToLower(word)] {
		return true
	}
	w := []rune(word)
	return len(w) == 2 && unicode.IsUpper(w[0])
}
