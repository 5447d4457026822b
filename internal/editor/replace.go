package editor

import (
	"strings"
	"unicode"
)

// tokenMatch records one performed replacement: the span as it read in the
// text and the span that replaced it.
type tokenMatch struct {
	before string
	after  string
}

// replaceTokenBounded replaces every token-bounded, case-insensitive
// occurrence of target in text with replacement and returns the new text plus
// one match per performed replacement.
//
// A token boundary means the match may not sit inside a longer word: the rune
// before the match (when the target starts with a word rune) and the rune
// after it (when the target ends with one) must not be letters or digits.
// When the matched occurrence starts with an upper-case letter and the
// replacement starts with a lower-case one, the replacement's first letter is
// upper-cased so sentence-initial casing survives. Occurrences that already
// equal the replacement are left alone and not reported.
func replaceTokenBounded(text, target, replacement string) (string, []tokenMatch) {
	tg := []rune(strings.ToLower(target))
	if len(tg) == 0 {
		return text, nil
	}
	tr := []rune(text)

	var out []rune
	var matches []tokenMatch
	for i := 0; i < len(tr); {
		if !matchesAt(tr, tg, i) {
			out = append(out, tr[i])
			i++
			continue
		}
		end := i + len(tg)
		startOK := i == 0 || !isWordRune(tr[i-1]) || !isWordRune(tg[0])
		endOK := end == len(tr) || !isWordRune(tr[end]) || !isWordRune(tg[len(tg)-1])
		if !startOK || !endOK {
			out = append(out, tr[i])
			i++
			continue
		}

		matched := string(tr[i:end])
		repl := matchLeadingCase(matched, replacement)
		out = append(out, []rune(repl)...)
		if repl != matched {
			matches = append(matches, tokenMatch{before: matched, after: repl})
		}
		i = end
	}

	if len(matches) == 0 {
		return text, nil
	}
	return string(out), matches
}

// matchesAt reports whether the lower-cased target tg occurs in tr at i.
func matchesAt(tr, tg []rune, i int) bool {
	if i+len(tg) > len(tr) {
		return false
	}
	for k, r := range tg {
		if unicode.ToLower(tr[i+k]) != r {
			return false
		}
	}
	return true
}

// matchLeadingCase upper-cases the replacement's first letter when the
// matched occurrence was capitalized.
func matchLeadingCase(matched, replacement string) string {
	mr := []rune(matched)
	rr := []rune(replacement)
	if len(mr) == 0 || len(rr) == 0 {
		return replacement
	}
	if unicode.IsUpper(mr[0]) && unicode.IsLower(rr[0]) {
		rr[0] = unicode.ToUpper(rr[0])
		return string(rr)
	}
	return replacement
}

// isWordRune reports whether r is part of a word for boundary purposes.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
