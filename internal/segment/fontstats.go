package segment

import (
	"math"
	"sort"

	"github.com/dgallion1/sectionrank/internal/doctree"
)

// bodySizeTolerance is how close (in points) a line's size must be to the
// median to count as body text when picking the dominant font.
const bodySizeTolerance = 0.1

// PageStats is the typographic baseline of one page.
type PageStats struct {
	MedianFontSize float64 // Median of line font sizes; 0 for an empty page
	DominantFont   string  // Most frequent font among body-sized lines
	BodyBold       bool    // Whether most body-sized lines are bold
}

// EstimateStats computes the baseline for a page's lines. The median of an
// even count is the mean of the two middle sizes. The dominant font is the
// plurality by line count among lines at the median size, falling back to
// all lines, with ties going to the font seen first.
func EstimateStats(lines []doctree.Line) PageStats {
	if len(lines) == 0 {
		return PageStats{}
	}

	sizes := make([]float64, len(lines))
	for i, l := range lines {
		sizes[i] = l.FontSize
	}
	sort.Float64s(sizes)
	var median float64
	mid := len(sizes) / 2
	if len(sizes)%2 == 1 {
		median = sizes[mid]
	} else {
		median = (sizes[mid-1] + sizes[mid]) / 2
	}

	var body []doctree.Line
	for _, l := range lines {
		if math.Abs(l.FontSize-median) < bodySizeTolerance {
			body = append(body, l)
		}
	}
	if len(body) == 0 {
		body = lines
	}

	bold := 0
	for _, l := range body {
		if l.Bold {
			bold++
		}
	}

	return PageStats{
		MedianFontSize: median,
		DominantFont:   pluralityFont(body),
		BodyBold:       bold*2 > len(body),
	}
}

func pluralityFont(lines []doctree.Line) string {
	counts := make(map[string]int)
	var order []string
	for _, l := range lines {
		if _, seen := counts[l.Font]; !seen {
			order = append(order, l.Font)
		}
		counts[l.Font]++
	}
	best := ""
	bestCount := 0
	for _, f := range order {
		if counts[f] > bestCount {
			best, bestCount = f, counts[f]
		}
	}
	return best
}
