// Package suggest produces report-only alias suggestions: transcript tokens
// that sound like a known glossary term without matching it verbatim.
//
// Candidate selection runs in two stages. Double Metaphone codes are computed
// for the token and for each word of each glossary term; a code overlap makes
// the term a phonetic candidate. Candidates are then ranked by Jaro-Winkler
// similarity on the original strings (case-insensitive) and accepted above a
// configurable threshold. When no phonetic candidate exists, a pure
// Jaro-Winkler pass with a stricter threshold acts as a fallback.
//
// Suggestions never cause edits. They exist so a human reviewer can promote a
// recurring near-miss into a proper glossary alias for the next run.
package suggest

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"

	"github.com/veracall/veracall/pkg/types"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
	defaultMinTokenLen       = 4
)

// Option is a functional option for configuring a [Suggester].
type Option func(*Suggester)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched term to be suggested. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(s *Suggester) {
		s.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic candidate is found. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(s *Suggester) {
		s.fuzzyThreshold = threshold
	}
}

// WithMinTokenLength sets the minimum token length (in runes) considered for
// suggestion. Short function words produce too many false positives.
// Default: 4.
func WithMinTokenLength(n int) Option {
	return func(s *Suggester) {
		s.minTokenLen = n
	}
}

// Suggester scans transcripts for phonetic near-misses of glossary terms.
// Read-only after construction and safe for concurrent use.
type Suggester struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
	minTokenLen       int
}

// New returns a Suggester configured with the supplied options.
func New(opts ...Option) *Suggester {
	s := &Suggester{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
		minTokenLen:       defaultMinTokenLen,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Suggest scans the original content of every segment against the glossary
// terms of bundle and returns ranked alias suggestions. Tokens that already
// equal a term or a known alias (case-insensitive) are skipped: those are the
// editor's business, not a near-miss. A nil bundle or an empty glossary
// yields no suggestions.
func (s *Suggester) Suggest(t *types.Transcript, bundle *types.ContextBundle) []types.AliasSuggestion {
	if bundle == nil || len(bundle.Glossary) == 0 {
		return nil
	}

	terms := make([]string, 0, len(bundle.Glossary))
	known := make(map[string]struct{})
	for _, c := range bundle.Glossary {
		term := strings.TrimSpace(c.Term)
		if term == "" {
			continue
		}
		terms = append(terms, term)
		for _, w := range strings.Fields(strings.ToLower(term)) {
			known[w] = struct{}{}
		}
		for _, a := range c.Aliases {
			if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
				known[a] = struct{}{}
			}
		}
	}
	if len(terms) == 0 {
		return nil
	}

	var out []types.AliasSuggestion
	seen := make(map[string]struct{})
	for i := range t.Segments {
		for _, raw := range strings.Fields(t.Segments[i].OriginalContent) {
			token := strings.TrimFunc(raw, func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsDigit(r)
			})
			if len([]rune(token)) < s.minTokenLen {
				continue
			}
			lower := strings.ToLower(token)
			if _, ok := known[lower]; ok {
				continue
			}

			term, score, matched := s.match(lower, terms)
			if !matched {
				continue
			}
			key := lower + "\x00" + term
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, types.AliasSuggestion{
				SegmentIndex: i,
				Token:        token,
				Term:         term,
				Score:        score,
			})
		}
	}
	return out
}

// match finds the glossary term most phonetically similar to token, if any.
func (s *Suggester) match(token string, terms []string) (term string, score float64, matched bool) {
	tokenCodes := codesForTokens([]string{token})

	type candidate struct {
		term     string
		score    float64
		phonetic bool
	}
	var best candidate

	for _, t := range terms {
		termLower := strings.ToLower(t)
		termTokens := strings.Fields(termLower)

		phonetic := codesOverlap(tokenCodes, codesForTokens(termTokens))
		jw := bestJWScore(token, termLower, termTokens)

		if phonetic {
			if jw >= s.phoneticThreshold && (!best.phonetic || jw > best.score) {
				best = candidate{term: t, score: jw, phonetic: true}
			}
		} else if !best.phonetic && jw >= s.fuzzyThreshold && jw > best.score {
			best = candidate{term: t, score: jw, phonetic: false}
		}
	}

	if best.term == "" {
		return "", 0, false
	}
	return best.term, best.score, true
}

// codesForTokens returns the union of Double Metaphone codes for the tokens.
// Empty codes are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore computes the highest Jaro-Winkler similarity between the token
// and the term: against the full term, against the term with spaces stripped,
// and against each term word individually.
func bestJWScore(token, termFull string, termTokens []string) float64 {
	score := matchr.JaroWinkler(token, termFull, false)
	if len(termTokens) > 1 {
		if s := matchr.JaroWinkler(token, strings.Join(termTokens, ""), false); s > score {
			score = s
		}
	}
	for _, tt := range termTokens {
		if s := matchr.JaroWinkler(token, tt, false); s > score {
			score = s
		}
	}
	return score
}
