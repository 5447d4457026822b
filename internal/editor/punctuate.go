package editor

import (
	"strings"
	"unicode"

	"github.com/veracall/veracall/pkg/types"
)

// Punctuate trims surrounding whitespace, upper-cases the first letter of the
// text, and appends a terminal "." when the text does not already end in a
// terminal mark (., !, ?, …, :). Emits at most one operation. Idempotent.
func Punctuate(text string) (string, []types.Operation) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text, nil
	}

	runes := []rune(trimmed)
	for i, r := range runes {
		if unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
			break
		}
	}
	result := string(runes)
	if !isTerminalMark(runes[len(runes)-1]) {
		result += "."
	}

	if result == text {
		return text, nil
	}
	return result, []types.Operation{{
		Kind:       types.OpPunctuate,
		Before:     text,
		After:      result,
		Confidence: punctuationConfidence,
		Source:     types.OpSourceRule,
		Detail:     "capitalization + terminal punctuation",
	}}
}

func isTerminalMark(r rune) bool {
	switch r {
	case '.', '!', '?', '…', ':':
		return true
	}
	return false
}
