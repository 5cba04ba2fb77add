package extract

import (
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// WordCount pairs a word with the number of times it appears.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// PageText returns the visible text of an HTML page.
func PageText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, template").Remove()

	var sb strings.Builder
	doc.Find("body").Each(func(_ int, s *goquery.Selection) {
		sb.WriteString(s.Text())
		sb.WriteByte('\n')
	})
	if sb.Len() == 0 {
		return doc.Text(), nil
	}
	return sb.String(), nil
}

// WordHistogram counts the lower-cased words of text. Hyphens split words and
// surrounding punctuation is dropped. The result is ordered by descending
// count, then alphabetically.
func WordHistogram(text string) []WordCount {
	counts := make(map[string]int)
	for _, tok := range strings.Fields(strings.ReplaceAll(text, "-", " ")) {
		w := strings.TrimFunc(tok, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if w == "" {
			continue
		}
		counts[strings.ToLower(w)]++
	}

	out := make([]WordCount, 0, len(counts))
	for w, n := range counts {
		out = append(out, WordCount{Word: w, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	return out
}
