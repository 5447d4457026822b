package editor

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/veracall/veracall/pkg/types"
)

// CollapseRepetitions removes immediate whole-word repetitions ("de de",
// "oui oui", "Oui, oui") from text, collapsing each run of identical
// consecutive words to a single occurrence. Comparison is case-insensitive
// and ignores trailing punctuation; the kept word takes the first
// occurrence's casing and keeps a trailing punctuation mark from the run.
// One operation is emitted per collapsed run. Idempotent.
func CollapseRepetitions(text string) (string, []types.Operation) {
	tokens, leading, trailing := tokenize(text)
	if len(tokens) < 2 {
		return text, nil
	}

	var ops []types.Operation
	var kept []wordToken
	changed := false

	for i := 0; i < len(tokens); {
		run := 1
		c := wordCore(tokens[i].text)
		for c != "" && i+run < len(tokens) && wordCore(tokens[i+run].text) == c {
			run++
		}
		if run == 1 {
			kept = append(kept, tokens[i])
			i++
			continue
		}

		word := tokens[i]
		// Keep the first occurrence's casing; a punctuation mark carried by
		// the last occurrence survives when the first had none.
		if trailingPunct(word.text) == "" {
			word.text += trailingPunct(tokens[i+run-1].text)
		}

		var before strings.Builder
		before.WriteString(tokens[i].text)
		for k := i + 1; k < i+run; k++ {
			before.WriteString(tokens[k].sep)
			before.WriteString(tokens[k].text)
		}
		ops = append(ops, types.Operation{
			Kind:       types.OpRepetitionCollapse,
			Before:     before.String(),
			After:      word.text,
			Confidence: repetitionConfidence,
			Source:     types.OpSourceRule,
			Detail:     fmt.Sprintf("collapsed %d× '%s'", run, c),
		})

		kept = append(kept, word)
		changed = true
		i += run
	}

	if !changed {
		return text, nil
	}

	var b strings.Builder
	b.WriteString(leading)
	for i, t := range kept {
		if i > 0 {
			b.WriteString(t.sep)
		}
		b.WriteString(t.text)
	}
	b.WriteString(trailing)
	return b.String(), ops
}

// wordToken is one whitespace-delimited token plus the separator that
// preceded it.
type wordToken struct {
	sep  string
	text string
}

// tokenize splits text into whitespace-separated tokens, preserving the exact
// separators so untouched regions survive byte for byte. Whitespace before
// the first token and after the last one is returned separately; token text
// never carries whitespace, so repetition comparison sees the bare word even
// at the end of whitespace-terminated input.
func tokenize(text string) (tokens []wordToken, leading, trailing string) {
	runes := []rune(text)
	i := 0
	first := true
	for i < len(runes) {
		j := i
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		sep := string(runes[i:j])
		i = j
		for j < len(runes) && !unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i {
			if len(tokens) > 0 {
				trailing = sep
			} else {
				leading += sep
			}
			break
		}
		if first {
			leading = sep
			sep = ""
			first = false
		}
		tokens = append(tokens, wordToken{sep: sep, text: string(runes[i:j])})
		i = j
	}
	return tokens, leading, trailing
}

// wordCore lower-cases a token and strips its trailing punctuation for
// repetition comparison. A token with no letters or digits has an empty core
// and never participates in a collapse.
func wordCore(tok string) string {
	core := strings.TrimRightFunc(tok, isTrailingPunct)
	hasWord := false
	for _, r := range core {
		if isWordRune(r) {
			hasWord = true
			break
		}
	}
	if !hasWord {
		return ""
	}
	return strings.ToLower(core)
}

// trailingPunct returns the punctuation suffix of a token ("oui," → ",").
func trailingPunct(tok string) string {
	core := strings.TrimRightFunc(tok, isTrailingPunct)
	return tok[len(core):]
}

func isTrailingPunct(r rune) bool {
	switch r {
	case '.', ',', ';', ':', '!', '?', '…':
		return true
	}
	return false
}
