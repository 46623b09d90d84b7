package scoring

import (
	"regexp"
	"strings"
	"unicode"
)

// 13a-style tokenization, as used by mteval-v13a and most BLEU toolkits.
var (
	// Applied one after another, so "&amp;lt;" ends up as "<".
	bleuEntities = [][2]string{
		{"<skipped>", ""},
		{"-\n", ""},
		{"\n", " "},
		{"&quot;", `"`},
		{"&amp;", "&"},
		{"&lt;", "<"},
		{"&gt;", ">"},
	}
	bleuPunct       = regexp.MustCompile("([{-~\\[-` -&(-+:-@/])")
	bleuPeriodComma = regexp.MustCompile(`([^0-9])([.,])`)
	bleuCommaPeriod = regexp.MustCompile(`([.,])([^0-9])`)
	bleuDash        = regexp.MustCompile(`([0-9])(-)`)
)

// TokenizeBLEU splits text into tokens the way the 13a tokenizer does:
// punctuation is separated from words, periods and commas are split off
// unless they sit inside a number. Case is preserved.
func TokenizeBLEU(text string) []string {
	s := text
	for _, e := range bleuEntities {
		s = strings.ReplaceAll(s, e[0], e[1])
	}
	// Padding lets a period or comma at either end split off a number.
	s = " " + s + " "
	s = bleuPunct.ReplaceAllString(s, " $1 ")
	s = bleuPeriodComma.ReplaceAllString(s, "$1 $2 ")
	s = bleuCommaPeriod.ReplaceAllString(s, " $1 $2")
	s = bleuDash.ReplaceAllString(s, "$1 $2 ")
	return strings.Fields(s)
}

// TokenizeROUGE lowercases text and splits it on every rune that is not a
// letter or digit.
func TokenizeROUGE(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ngramCounts counts the n-grams of the given order in tokens.
func ngramCounts(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], "\x00")]++
	}
	return counts
}

// overlap returns the clipped number of shared n-grams between two count maps.
func overlap(candidate, reference map[string]int) int {
	total := 0
	for gram, c := range candidate {
		if r, ok := reference[gram]; ok {
			total += min(c, r)
		}
	}
	return total
}

func countTotal(counts map[string]int) int {
	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}
